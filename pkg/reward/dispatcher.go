package reward

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainsafe/advent-agent/internal/metrics"
	apperrors "github.com/chainsafe/advent-agent/pkg/app/errors"
	"github.com/chainsafe/advent-agent/pkg/campaign"
	"github.com/chainsafe/advent-agent/pkg/campaignstore"
	"github.com/chainsafe/advent-agent/pkg/clock"
)

// Config holds the reward amounts and swap parameters.
type Config struct {
	// Asset is the display symbol of the reward asset, e.g. "USDC".
	Asset string
	// AssetToken is the reward asset's contract address.
	AssetToken      string
	SafeAmount      decimal.Decimal
	RiskyAmount     decimal.Decimal
	SlippageBps     int
	BonusMultiplier int64
	TokenLimit      int
	// Fallback is used when market data is unavailable or empty.
	Fallback []campaign.Token
}

// Dispatcher executes reward payouts and records them in the ledger.
type Dispatcher struct {
	payments Payments
	tokens   TokenSource
	ledger   Ledger
	clock    clock.Clock
	cfg      Config
	logger   *zap.Logger

	intn func(n int) int
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithRandom replaces the uniform token picker.
func WithRandom(intn func(n int) int) Option {
	return func(d *Dispatcher) {
		d.intn = intn
	}
}

// NewDispatcher creates a reward dispatcher.
func NewDispatcher(
	payments Payments,
	tokens TokenSource,
	ledger Ledger,
	clk clock.Clock,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) *Dispatcher {
	if cfg.BonusMultiplier < 1 {
		cfg.BonusMultiplier = 1
	}
	d := &Dispatcher{
		payments: payments,
		tokens:   tokens,
		ledger:   ledger,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "reward")),
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch pays the reward for req. It never retries: failures are recorded
// on the transaction with a retryable or terminal classification.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *Outcome {
	start := time.Now()
	var out *Outcome
	switch req.Path {
	case campaign.RewardPathRisky:
		out = d.dispatchRisky(ctx, req)
	default:
		out = d.dispatchSafe(ctx, req)
	}

	status := "completed"
	if out.Failed() {
		status = "failed"
		metrics.ErrorsTotal.WithLabelValues("reward", apperrors.CategoryOf(out.Err).String()).Inc()
		d.logger.Error("Reward dispatch failed",
			zap.String("participant", req.Participant.Address),
			zap.Int("day", req.Day),
			zap.String("path", string(req.Path)),
			zap.Bool("retryable", out.Retryable()),
			zap.Error(out.Err))
	} else {
		d.logger.Info("Reward dispatched",
			zap.String("participant", req.Participant.Address),
			zap.Int("day", req.Day),
			zap.String("path", string(req.Path)),
			zap.String("external_ref", out.Transaction.ExternalRef))
	}
	metrics.Rewards.WithLabelValues(string(req.Path), status).Inc()
	metrics.RewardDuration.WithLabelValues(string(req.Path)).Observe(time.Since(start).Seconds())
	return out
}

func (d *Dispatcher) dispatchSafe(ctx context.Context, req Request) *Outcome {
	out := &Outcome{Path: campaign.RewardPathSafe}
	tx, err := d.open(ctx, req, d.cfg.SafeAmount, d.cfg.Asset, campaign.TransactionKindTransfer)
	if err != nil {
		out.Err = err
		return out
	}
	out.Transaction = tx

	recipient := req.Participant.PayoutAddress()
	if recipient == "" {
		out.Err = d.finish(ctx, tx, "", ErrNoPayoutAddress)
		return out
	}

	ref, err := d.payments.Transfer(ctx, d.cfg.AssetToken, recipient, tx.Amount)
	out.Err = d.finish(ctx, tx, ref, err)
	return out
}

func (d *Dispatcher) dispatchRisky(ctx context.Context, req Request) *Outcome {
	out := &Outcome{Path: campaign.RewardPathRisky}

	token, err := d.pickToken(ctx)
	if err != nil {
		// No swap target: the day is still claimed with a failed row.
		tx, openErr := d.open(ctx, req, d.cfg.RiskyAmount, d.cfg.Asset, campaign.TransactionKindSwap)
		if openErr != nil {
			out.Err = openErr
			return out
		}
		out.Transaction = tx
		out.Err = d.finish(ctx, tx, "", err)
		return out
	}
	out.Token = token

	recipient := req.Participant.PayoutAddress()
	multiplier := int64(1)
	if recipient != "" {
		balance, err := d.payments.ReadBalance(ctx, token.Address, recipient)
		switch {
		case err != nil:
			d.logger.Warn("Failed to read token balance for bonus",
				zap.String("token", token.Symbol),
				zap.String("owner", recipient),
				zap.Error(err))
		case balance != nil && balance.Sign() > 0:
			multiplier = d.cfg.BonusMultiplier
			out.Bonus = multiplier > 1
		}
	}

	amount := d.cfg.RiskyAmount.Mul(decimal.NewFromInt(multiplier))
	tx, err := d.open(ctx, req, amount, token.Symbol, campaign.TransactionKindSwap)
	if err != nil {
		out.Err = err
		return out
	}
	out.Transaction = tx

	if recipient == "" {
		out.Err = d.finish(ctx, tx, "", ErrNoPayoutAddress)
		return out
	}

	ref, err := d.payments.Swap(ctx, d.cfg.AssetToken, token.Address, amount, d.cfg.SlippageBps, recipient)
	out.Err = d.finish(ctx, tx, ref, err)
	return out
}

func (d *Dispatcher) pickToken(ctx context.Context) (*campaign.Token, error) {
	candidates, err := d.tokens.ListCandidateTokens(ctx, d.cfg.TokenLimit)
	if err != nil {
		d.logger.Warn("Market data unavailable, using fallback tokens", zap.Error(err))
	}
	if len(candidates) == 0 {
		candidates = d.cfg.Fallback
	}
	if len(candidates) == 0 {
		return nil, ErrNoTokens
	}
	token := candidates[d.intn(len(candidates))]
	return &token, nil
}

// open appends the pending transaction row that claims the payout for the day.
func (d *Dispatcher) open(
	ctx context.Context,
	req Request,
	amount decimal.Decimal,
	asset string,
	kind campaign.TransactionKind,
) (*campaign.Transaction, error) {
	tx := &campaign.Transaction{
		Participant: req.Participant.Address,
		Day:         req.Day,
		Amount:      amount,
		Asset:       asset,
		Kind:        kind,
		Status:      campaign.TransactionStatusPending,
		CreatedAt:   d.clock.Now().UTC(),
	}
	if err := d.ledger.CreateTransaction(ctx, tx); err != nil {
		if errors.Is(err, campaignstore.ErrTransactionExists) {
			metrics.DuplicateSuppressed.WithLabelValues("reward").Inc()
			return nil, ErrAlreadyDispatched
		}
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	return tx, nil
}

// finish records the payout result and returns the payout error, if any.
func (d *Dispatcher) finish(ctx context.Context, tx *campaign.Transaction, ref string, payErr error) error {
	now := d.clock.Now().UTC()
	tx.CompletedAt = &now
	tx.ExternalRef = ref
	if payErr != nil {
		tx.Status = campaign.TransactionStatusFailed
		tx.Failure = Classify(payErr)
		tx.Error = payErr.Error()
	} else {
		tx.Status = campaign.TransactionStatusCompleted
	}

	if err := d.ledger.CompleteTransaction(ctx, tx); err != nil {
		d.logger.Error("Failed to record transaction outcome",
			zap.Int64("transaction_id", tx.ID),
			zap.String("status", string(tx.Status)),
			zap.String("external_ref", ref),
			zap.Error(err))
	}
	return payErr
}

// Classify maps a payout error to the failure kind stored on the transaction.
func Classify(err error) campaign.FailureKind {
	switch {
	case err == nil:
		return campaign.FailureNone
	case errors.Is(err, ErrNoPayoutAddress):
		return campaign.FailureTerminal
	case apperrors.IsRetryable(err):
		return campaign.FailureRetryable
	default:
		return campaign.FailureTerminal
	}
}
