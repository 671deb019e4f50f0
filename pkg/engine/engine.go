// Package engine implements the campaign progression state machine.
//
// A participant moves UNPAID -> AWAITING_PUZZLE(d) -> PUZZLE_OUTSTANDING(d)
// -> AWAITING_REWARD_CHOICE -> AWAITING_PUZZLE(d+1). Every transition that
// guards a side effect is a compare-and-set in the store, so redelivered
// messages and the concurrent daily sweep never produce a second puzzle
// send, a second day advance or a second payout.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainsafe/advent-agent/internal/metrics"
	"github.com/chainsafe/advent-agent/pkg/campaign"
	"github.com/chainsafe/advent-agent/pkg/campaignstore"
	"github.com/chainsafe/advent-agent/pkg/clock"
	"github.com/chainsafe/advent-agent/pkg/reward"
	"github.com/chainsafe/advent-agent/pkg/transport"
)

// Store is the persistence surface the engine needs.
type Store interface {
	EnsureParticipant(ctx context.Context, address string, now time.Time) (*campaign.Participant, error)
	MarkPaid(ctx context.Context, address, reference, wallet string, now time.Time) (bool, error)
	SetWallet(ctx context.Context, address, wallet string) error
	ResolveRewardChoice(ctx context.Context, address string, currentDay int) (bool, error)
	ClaimPuzzleSend(ctx context.Context, participant string, day int, sentAt time.Time) (bool, error)
	GetPuzzleSend(ctx context.Context, participant string, day int) (*campaign.PuzzleSend, error)
	RecordCorrectAnswer(ctx context.Context, sub *campaign.AnswerSubmission) (bool, error)
	RecordIncorrectAnswer(ctx context.Context, sub *campaign.AnswerSubmission) error
	HintsUsed(ctx context.Context, participant string, day int) (int, error)
	ConsumeHint(ctx context.Context, participant string, day, limit int, now time.Time) (int, bool, error)
	Leaderboard(ctx context.Context, limit int) ([]campaign.LeaderboardEntry, error)
	Stats(ctx context.Context, address string) (*campaign.Stats, error)
}

// Catalog looks up puzzles by day.
type Catalog interface {
	Puzzle(day int) (*campaign.Puzzle, bool)
	Days() int
}

// Rewarder pays out a chosen reward.
type Rewarder interface {
	Dispatch(ctx context.Context, req reward.Request) *reward.Outcome
}

// PaymentVerifier checks an entry-fee payment on chain and returns the payer.
type PaymentVerifier interface {
	VerifyEntryFee(ctx context.Context, reference string) (string, error)
}

// Engine handles one inbound message and returns the replies to deliver.
type Engine interface {
	Handle(ctx context.Context, in transport.Inbound) ([]transport.Outbound, error)
}

// Config holds the entry-fee and presentation settings.
type Config struct {
	EntryFee       decimal.Decimal
	Asset          string
	AssetToken     string
	AssetDecimals  int32
	Recipient      string
	ChainID        int64
	Network        string
	OnrampURL      string
	LeaderboardTop int
}

type engine struct {
	store    Store
	catalog  Catalog
	rewarder Rewarder
	verifier PaymentVerifier
	clock    clock.Clock
	cfg      Config
	logger   *zap.Logger
}

// New creates the progression engine. verifier may be nil, in which case
// payment references are accepted without an on-chain check.
func New(
	store Store,
	catalog Catalog,
	rewarder Rewarder,
	verifier PaymentVerifier,
	clk clock.Clock,
	cfg Config,
	logger *zap.Logger,
) Engine {
	if cfg.LeaderboardTop <= 0 {
		cfg.LeaderboardTop = 5
	}
	return &engine{
		store:    store,
		catalog:  catalog,
		rewarder: rewarder,
		verifier: verifier,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "engine")),
	}
}

func (e *engine) Handle(ctx context.Context, in transport.Inbound) ([]transport.Outbound, error) {
	if in.Kind != transport.KindText && in.Kind != transport.KindPaymentReference {
		metrics.InboundMessages.WithLabelValues(string(KindIgnored)).Inc()
		return nil, nil
	}

	p, err := e.store.EnsureParticipant(ctx, in.Address, e.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}

	st, err := e.state(ctx, p)
	if err != nil {
		return nil, err
	}

	msg := Classify(in, st)
	metrics.InboundMessages.WithLabelValues(string(msg.Kind)).Inc()

	switch msg.Kind {
	case KindIgnored:
		if msg.Reason != nil {
			e.logger.Warn("Ignoring malformed payment confirmation",
				zap.String("participant", p.Address),
				zap.Error(msg.Reason))
		}
		return nil, nil
	case KindPaymentReference:
		return e.handlePayment(ctx, p, msg.Payment)
	case KindCommand:
		return e.handleCommand(ctx, p, st, msg)
	}

	switch {
	case !p.Paid:
		return e.paymentRequest(msg.Text), nil
	case p.PendingRewardChoice:
		if msg.Kind == KindRewardChoice {
			return e.handleRewardChoice(ctx, p, msg.Choice)
		}
		return replies(msgChoose), nil
	}

	puzzle, ok := e.catalog.Puzzle(p.CurrentDay)
	if !ok {
		return replies(msgCompleted), nil
	}
	if msg.Kind == KindPuzzleAnswer {
		return e.handleAnswer(ctx, p, puzzle, msg.Text)
	}
	return e.sendPuzzle(ctx, p, puzzle)
}

func (e *engine) state(ctx context.Context, p *campaign.Participant) (State, error) {
	st := State{Paid: p.Paid, PendingRewardChoice: p.PendingRewardChoice}
	if !p.Paid || p.PendingRewardChoice {
		return st, nil
	}
	_, err := e.store.GetPuzzleSend(ctx, p.Address, p.CurrentDay)
	switch {
	case err == nil:
		st.PuzzleOutstanding = true
	case !errors.Is(err, campaignstore.ErrSendNotFound):
		return st, fmt.Errorf("failed to load puzzle send: %w", err)
	}
	return st, nil
}

func (e *engine) paymentRequest(text string) []transport.Outbound {
	lower := strings.ToLower(text)
	if e.cfg.OnrampURL != "" &&
		(strings.Contains(lower, "buy") || strings.Contains(lower, "fund") || strings.Contains(lower, "purchase")) {
		return replies(fmt.Sprintf(msgOnramp, e.cfg.OnrampURL))
	}

	return []transport.Outbound{
		transport.Text(welcomeMessage(e.catalog.Days(), e.cfg.EntryFee, e.cfg.Asset)),
		{Payment: &transport.PaymentRequest{
			Asset:     e.cfg.Asset,
			Token:     e.cfg.AssetToken,
			Recipient: e.cfg.Recipient,
			Amount:    e.cfg.EntryFee,
			Decimals:  e.cfg.AssetDecimals,
			ChainID:   e.cfg.ChainID,
			Network:   e.cfg.Network,
		}},
		transport.Text(msgPaymentPrompt),
	}
}

func (e *engine) handlePayment(ctx context.Context, p *campaign.Participant, ref *transport.PaymentReference) ([]transport.Outbound, error) {
	if p.Paid {
		metrics.Payments.WithLabelValues("already_paid").Inc()
		return replies(msgAlreadyPaid), nil
	}

	var payer string
	if e.verifier != nil {
		var err error
		payer, err = e.verifier.VerifyEntryFee(ctx, ref.Reference)
		if err != nil {
			metrics.Payments.WithLabelValues("rejected").Inc()
			e.logger.Warn("Entry fee verification failed",
				zap.String("participant", p.Address),
				zap.String("reference", ref.Reference),
				zap.Error(err))
			return replies(msgPaymentRejected), nil
		}
	}

	marked, err := e.store.MarkPaid(ctx, p.Address, ref.Reference, payer, e.clock.Now())
	if errors.Is(err, campaignstore.ErrPaymentReferenceUsed) {
		metrics.Payments.WithLabelValues("reused").Inc()
		return replies(msgReferenceUsed), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark participant paid: %w", err)
	}
	if !marked {
		metrics.DuplicateSuppressed.WithLabelValues("payment").Inc()
		return replies(msgAlreadyPaid), nil
	}

	metrics.Payments.WithLabelValues("accepted").Inc()
	e.logger.Info("Participant paid",
		zap.String("participant", p.Address),
		zap.String("network", ref.NetworkID),
		zap.String("reference", ref.Reference))
	return replies(paymentConfirmedMessage(ref.NetworkID, ref.Reference)), nil
}

// sendPuzzle delivers the current puzzle if this call wins the send record.
func (e *engine) sendPuzzle(ctx context.Context, p *campaign.Participant, puzzle *campaign.Puzzle) ([]transport.Outbound, error) {
	won, err := e.store.ClaimPuzzleSend(ctx, p.Address, puzzle.Day, e.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to record puzzle send: %w", err)
	}
	if !won {
		metrics.DuplicateSuppressed.WithLabelValues("puzzle_send").Inc()
		return nil, nil
	}
	metrics.PuzzlesSent.WithLabelValues("reply").Inc()
	return replies(campaign.PuzzleMessage(puzzle)), nil
}

func (e *engine) handleAnswer(ctx context.Context, p *campaign.Participant, puzzle *campaign.Puzzle, text string) ([]transport.Outbound, error) {
	send, err := e.store.GetPuzzleSend(ctx, p.Address, puzzle.Day)
	if err != nil {
		return nil, fmt.Errorf("failed to load puzzle send: %w", err)
	}
	hints, err := e.store.HintsUsed(ctx, p.Address, puzzle.Day)
	if err != nil {
		return nil, fmt.Errorf("failed to load hint usage: %w", err)
	}

	correct := puzzle.Matches(text)
	sub := campaign.NewAnswerSubmission(p.Address, puzzle.Day, text, send.SentAt, e.clock.Now(), correct, hints)

	if !correct {
		if err := e.store.RecordIncorrectAnswer(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to record answer: %w", err)
		}
		metrics.Answers.WithLabelValues("incorrect").Inc()
		return replies(msgIncorrect), nil
	}

	advanced, err := e.store.RecordCorrectAnswer(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}
	if !advanced {
		metrics.DuplicateSuppressed.WithLabelValues("correct_answer").Inc()
		return nil, nil
	}

	metrics.Answers.WithLabelValues("correct").Inc()
	metrics.ResponseTime.Observe(float64(sub.ResponseTimeMS) / 1000)
	return replies(correctMessage(puzzle.Day, sub.ResponseTimeMS), msgRewardPrompt), nil
}

func (e *engine) handleRewardChoice(ctx context.Context, p *campaign.Participant, path campaign.RewardPath) ([]transport.Outbound, error) {
	resolved, err := e.store.ResolveRewardChoice(ctx, p.Address, p.CurrentDay)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve reward choice: %w", err)
	}
	if !resolved {
		metrics.DuplicateSuppressed.WithLabelValues("reward_choice").Inc()
		return nil, nil
	}

	out := e.rewarder.Dispatch(ctx, reward.Request{
		Participant: p,
		Day:         p.CompletedDay(),
		Path:        path,
	})

	if path == campaign.RewardPathSafe {
		msgs := []string{msgNiceChosen}
		switch {
		case errors.Is(out.Err, reward.ErrNoPayoutAddress):
			msgs = append(msgs, msgNoWallet)
		case out.Failed():
			msgs = append(msgs, msgNiceFailed)
		default:
			msgs = append(msgs, msgNiceSent)
		}
		return replies(append(msgs, msgNiceDone)...), nil
	}

	msgs := []string{msgNaughtyChosen}
	var symbol string
	if out.Token != nil {
		symbol = out.Token.Symbol
		msgs = append(msgs, tokenPickedMessage(symbol))
		if out.Bonus {
			msgs = append(msgs, bonusMessage(symbol))
		}
	}
	switch {
	case errors.Is(out.Err, reward.ErrNoPayoutAddress):
		msgs = append(msgs, msgNoWallet)
	case out.Failed():
		msgs = append(msgs, swapFailedMessage(symbol))
	default:
		msgs = append(msgs, swapDoneMessage(symbol))
	}
	return replies(append(msgs, msgNaughtyDone)...), nil
}

func replies(texts ...string) []transport.Outbound {
	out := make([]transport.Outbound, 0, len(texts))
	for _, t := range texts {
		out = append(out, transport.Text(t))
	}
	return out
}
