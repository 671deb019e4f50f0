package agent

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/advent-agent/pkg/app/errors"
	apphttp "github.com/chainsafe/advent-agent/pkg/app/http"
	"github.com/chainsafe/advent-agent/pkg/auth"
	"github.com/chainsafe/advent-agent/pkg/campaign"
	"github.com/chainsafe/advent-agent/pkg/campaignstore"
	"github.com/chainsafe/advent-agent/pkg/scheduler"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// QueryStore is the read side of the campaign store used by the ops API.
type QueryStore interface {
	Leaderboard(ctx context.Context, limit int) ([]campaign.LeaderboardEntry, error)
	Stats(ctx context.Context, address string) (*campaign.Stats, error)
	ListTransactions(ctx context.Context, participant string) ([]*campaign.Transaction, error)
}

// Sweeper runs one scheduler sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (*scheduler.Result, error)
}

// RouterDeps are the collaborators behind the ops API.
type RouterDeps struct {
	Store      QueryStore
	Sweeper    Sweeper
	Ready      func() bool
	Validator  *auth.JWTValidator
	Metrics    bool
	ReqTimeout time.Duration
	Logger     *zap.Logger
}

type handlers struct {
	store   QueryStore
	sweeper Sweeper
	logger  *zap.Logger
}

// TransactionResponse is the API view of a reward transaction.
type TransactionResponse struct {
	Day         int        `json:"day"`
	Amount      string     `json:"amount"`
	Asset       string     `json:"asset"`
	Kind        string     `json:"kind"`
	ExternalRef string     `json:"external_ref,omitempty"`
	Status      string     `json:"status"`
	Failure     string     `json:"failure,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SweepResponse reports a manually triggered sweep.
type SweepResponse struct {
	ID          string `json:"id"`
	RequestedBy string `json:"requested_by"`
	*scheduler.Result
}

// NewRouter builds the ops router.
func NewRouter(deps RouterDeps) chi.Router {
	if deps.ReqTimeout <= 0 {
		deps.ReqTimeout = 60 * time.Second
	}
	h := &handlers{store: deps.Store, sweeper: deps.Sweeper, logger: deps.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apphttp.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.ReqTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if deps.Ready == nil || !deps.Ready() {
			http.Error(w, "NOT READY", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})
	if deps.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/leaderboard", apphttp.HandleError(h.leaderboard))
		r.Get("/participants/{address}/stats", apphttp.HandleError(h.stats))
		r.Get("/participants/{address}/transactions", apphttp.HandleError(h.transactions))

		r.Group(func(r chi.Router) {
			r.Use(deps.Validator.Middleware)
			r.Post("/admin/sweeps", apphttp.HandleError(h.sweep))
		})
	})

	return r
}

func (h *handlers) leaderboard(w http.ResponseWriter, r *http.Request) error {
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLeaderboardLimit {
			return apperrors.BadRequestError(err, "limit must be between 1 and 100")
		}
		limit = n
	}

	entries, err := h.store.Leaderboard(r.Context(), limit)
	if err != nil {
		return apperrors.GeneralError(err)
	}
	apphttp.WriteJSON(w, http.StatusOK, entries)
	return nil
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) error {
	address := chi.URLParam(r, "address")
	stats, err := h.store.Stats(r.Context(), address)
	if errors.Is(err, campaignstore.ErrParticipantNotFound) {
		return apperrors.ResourceNotFoundError(err, "participant not found")
	}
	if err != nil {
		return apperrors.GeneralError(err)
	}
	apphttp.WriteJSON(w, http.StatusOK, stats)
	return nil
}

func (h *handlers) transactions(w http.ResponseWriter, r *http.Request) error {
	txs, err := h.store.ListTransactions(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		return apperrors.GeneralError(err)
	}

	resp := make([]TransactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = TransactionResponse{
			Day:         tx.Day,
			Amount:      tx.Amount.String(),
			Asset:       tx.Asset,
			Kind:        string(tx.Kind),
			ExternalRef: tx.ExternalRef,
			Status:      string(tx.Status),
			Failure:     string(tx.Failure),
			Error:       tx.Error,
			CreatedAt:   tx.CreatedAt,
			CompletedAt: tx.CompletedAt,
		}
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *handlers) sweep(w http.ResponseWriter, r *http.Request) error {
	subject, _ := auth.SubjectFromContext(r.Context())
	id := uuid.NewString()
	h.logger.Info("Manual sweep requested", zap.String("sweep_id", id), zap.String("subject", subject))

	result, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		return apperrors.DependencyFailureError(err, "sweep failed")
	}
	apphttp.WriteJSON(w, http.StatusOK, &SweepResponse{ID: id, RequestedBy: subject, Result: result})
	return nil
}
