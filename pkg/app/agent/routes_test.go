package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apphttp "github.com/chainsafe/advent-agent/pkg/app/http"
	"github.com/chainsafe/advent-agent/pkg/auth"
	"github.com/chainsafe/advent-agent/pkg/campaign"
	"github.com/chainsafe/advent-agent/pkg/campaignstore"
	"github.com/chainsafe/advent-agent/pkg/migrations/campaigndb"
	"github.com/chainsafe/advent-agent/pkg/pgutil"
	"github.com/chainsafe/advent-agent/pkg/scheduler"
)

const (
	testSecret = "test-secret"
	testIssuer = "advent-agent"
)

var now = time.Date(2025, 12, 1, 6, 0, 0, 0, time.UTC)

type fakeSweeper struct {
	calls  int
	result *scheduler.Result
	err    error
}

func (f *fakeSweeper) Sweep(context.Context) (*scheduler.Result, error) {
	f.calls++
	return f.result, f.err
}

type fixture struct {
	handler http.Handler
	sweeper *fakeSweeper
	ready   bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := pgutil.SetupSQLiteDB(t)
	require.NoError(t, campaigndb.Apply(ctx, db))
	store := campaignstore.NewStore(db)
	seed(t, store)

	f := &fixture{sweeper: &fakeSweeper{result: &scheduler.Result{Participants: 2, Sent: 1, AlreadySent: 1}}}
	f.handler = NewRouter(RouterDeps{
		Store:     store,
		Sweeper:   f.sweeper,
		Ready:     func() bool { return f.ready },
		Validator: auth.NewJWTValidator(testSecret, testIssuer),
		Metrics:   true,
		Logger:    zap.NewNop(),
	})
	return f
}

// seed creates two paid participants. alice solved day 1 in 30s and has a
// completed reward; bob solved day 1 in 90s.
func seed(t *testing.T, store campaignstore.Store) {
	t.Helper()
	ctx := context.Background()

	for i, addr := range []string{"0xalice", "0xbob"} {
		_, err := store.EnsureParticipant(ctx, addr, now)
		require.NoError(t, err)
		_, err = store.MarkPaid(ctx, addr, "", "", now)
		require.NoError(t, err)
		_, err = store.ClaimPuzzleSend(ctx, addr, 1, now)
		require.NoError(t, err)

		answeredAt := now.Add(time.Duration(30+60*i) * time.Second)
		ok, err := store.RecordCorrectAnswer(ctx, campaign.NewAnswerSubmission(addr, 1, "Paris", now, answeredAt, true, 0))
		require.NoError(t, err)
		require.True(t, ok)
	}

	tx := &campaign.Transaction{
		Participant: "0xalice",
		Day:         1,
		Amount:      decimal.RequireFromString("0.001"),
		Asset:       "USDC",
		Kind:        campaign.TransactionKindTransfer,
		Status:      campaign.TransactionStatusPending,
		CreatedAt:   now,
	}
	require.NoError(t, store.CreateTransaction(ctx, tx))
	completed := now.Add(time.Minute)
	tx.Status = campaign.TransactionStatusCompleted
	tx.ExternalRef = "0xhash"
	tx.CompletedAt = &completed
	require.NoError(t, store.CompleteTransaction(ctx, tx))
}

func (f *fixture) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apphttp.ErrorResponse {
	t.Helper()
	var got apphttp.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response JSON: %v", err)
	}
	return got
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.ready = true
	rec = f.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/leaderboard?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []campaign.LeaderboardEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "0xalice", entries[0].Address)
	assert.Equal(t, 1, entries[0].Rank)
	assert.InDelta(t, 30000, entries[0].AvgResponseTimeMS, 1)
	assert.Equal(t, "0xbob", entries[1].Address)

	rec = f.do(t, http.MethodGet, "/api/v1/leaderboard?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)
}

func TestLeaderboard_InvalidLimit(t *testing.T) {
	f := newFixture(t)
	for _, q := range []string{"abc", "0", "101"} {
		rec := f.do(t, http.MethodGet, "/api/v1/leaderboard?limit="+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s: expected status %d, got %d", q, http.StatusBadRequest, rec.Code)
		}
		assert.Equal(t, "limit must be between 1 and 100", decodeError(t, rec).Error)
	}
}

func TestParticipantStats(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/participants/0xbob/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats campaign.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, campaign.Stats{Address: "0xbob", CorrectAnswers: 1, AvgResponseTimeMS: 90000, CurrentDay: 2}, stats)

	rec = f.do(t, http.MethodGet, "/api/v1/participants/0xnobody/stats", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "participant not found", decodeError(t, rec).Error)
}

func TestParticipantTransactions(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/participants/0xalice/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var txs []TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, 1, txs[0].Day)
	assert.Equal(t, "0.001", txs[0].Amount)
	assert.Equal(t, "completed", txs[0].Status)
	assert.Equal(t, "0xhash", txs[0].ExternalRef)
	assert.NotNil(t, txs[0].CompletedAt)

	rec = f.do(t, http.MethodGet, "/api/v1/participants/0xbob/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAdminSweep(t *testing.T) {
	f := newFixture(t)
	validator := auth.NewJWTValidator(testSecret, testIssuer)
	token, err := validator.IssueToken("ops@example.com", time.Hour, time.Now())
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/sweeps", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/sweeps", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.sweeper.calls)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/sweeps", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.sweeper.calls)

	var got SweepResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "ops@example.com", got.RequestedBy)
	assert.Equal(t, 1, got.Sent)
	assert.Equal(t, 1, got.AlreadySent)
}

func TestAdminSweep_Failure(t *testing.T) {
	f := newFixture(t)
	f.sweeper.err = errors.New("database is locked")
	token, err := auth.NewJWTValidator(testSecret, testIssuer).IssueToken("ops", time.Hour, time.Now())
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/sweeps", token)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "sweep failed", decodeError(t, rec).Error)
}

func TestAdminSweep_Disabled(t *testing.T) {
	f := newFixture(t)
	f.handler = NewRouter(RouterDeps{
		Sweeper:   f.sweeper,
		Validator: auth.NewJWTValidator("", testIssuer),
		Logger:    zap.NewNop(),
	})

	rec := f.do(t, http.MethodPost, "/api/v1/admin/sweeps", "anything")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, f.sweeper.calls)
}
