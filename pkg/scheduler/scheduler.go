// Package scheduler runs the daily puzzle broadcast.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainsafe/advent-agent/internal/metrics"
	"github.com/chainsafe/advent-agent/pkg/campaign"
	"github.com/chainsafe/advent-agent/pkg/clock"
	"github.com/chainsafe/advent-agent/pkg/transport"
)

// Store is the persistence surface the sweep needs.
type Store interface {
	ListPaidParticipants(ctx context.Context) ([]*campaign.Participant, error)
	ClaimPuzzleSend(ctx context.Context, participant string, day int, sentAt time.Time) (bool, error)
}

// Catalog looks up puzzles by day.
type Catalog interface {
	Puzzle(day int) (*campaign.Puzzle, bool)
}

// Trigger computes the next firing time strictly after a given instant.
type Trigger interface {
	Next(after time.Time) time.Time
}

// DailyTrigger fires once a day at a fixed wall-clock time.
type DailyTrigger struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// Next returns the first Hour:Minute in Location strictly after after.
func (t DailyTrigger) Next(after time.Time) time.Time {
	loc := t.Location
	if loc == nil {
		loc = time.UTC
	}
	local := after.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), t.Hour, t.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, t.Hour, t.Minute, 0, 0, loc)
	}
	return next
}

// Result summarises one sweep.
type Result struct {
	Participants int `json:"participants"`
	Sent         int `json:"sent"`
	AlreadySent  int `json:"already_sent"`
	NoPuzzle     int `json:"no_puzzle"`
	Failed       int `json:"failed"`
}

// Scheduler delivers the current-day puzzle to every paid participant who
// has not received it yet.
type Scheduler struct {
	store       Store
	catalog     Catalog
	sender      transport.Sender
	clock       clock.Clock
	trigger     Trigger
	concurrency int
	logger      *zap.Logger
}

// New creates a scheduler.
func New(
	store Store,
	catalog Catalog,
	sender transport.Sender,
	clk clock.Clock,
	trigger Trigger,
	concurrency int,
	logger *zap.Logger,
) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		store:       store,
		catalog:     catalog,
		sender:      sender,
		clock:       clk,
		trigger:     trigger,
		concurrency: concurrency,
		logger:      logger.With(zap.String("component", "scheduler")),
	}
}

// Run sweeps at every trigger until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.clock.Now()
		next := s.trigger.Next(now)
		s.logger.Info("Next puzzle broadcast scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(next.Sub(now)):
		}

		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("Puzzle broadcast failed", zap.Error(err))
		}
	}
}

// Sweep runs one broadcast. Per-participant failures are logged and
// counted; only a failure to list participants aborts the sweep.
func (s *Scheduler) Sweep(ctx context.Context) (*Result, error) {
	start := time.Now()
	participants, err := s.store.ListPaidParticipants(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to list paid participants: %w", err)
	}
	metrics.ActiveParticipants.Set(float64(len(participants)))
	s.logger.Info("Running puzzle broadcast", zap.Int("participants", len(participants)))

	var sent, already, noPuzzle, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, p := range participants {
		g.Go(func() error {
			switch outcome, err := s.deliver(gctx, p); {
			case err != nil:
				failed.Add(1)
				metrics.SweepFailures.Inc()
				s.logger.Warn("Failed to deliver puzzle",
					zap.String("participant", p.Address),
					zap.Int("day", p.CurrentDay),
					zap.Error(err))
			case outcome == outcomeSent:
				sent.Add(1)
			case outcome == outcomeAlreadySent:
				already.Add(1)
			case outcome == outcomeNoPuzzle:
				noPuzzle.Add(1)
			}
			// per-participant errors never cancel the sweep
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{
		Participants: len(participants),
		Sent:         int(sent.Load()),
		AlreadySent:  int(already.Load()),
		NoPuzzle:     int(noPuzzle.Load()),
		Failed:       int(failed.Load()),
	}
	metrics.SweepRuns.WithLabelValues("completed").Inc()
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("Puzzle broadcast complete",
		zap.Int("sent", res.Sent),
		zap.Int("already_sent", res.AlreadySent),
		zap.Int("no_puzzle", res.NoPuzzle),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeAlreadySent
	outcomeNoPuzzle
)

func (s *Scheduler) deliver(ctx context.Context, p *campaign.Participant) (outcome, error) {
	puzzle, ok := s.catalog.Puzzle(p.CurrentDay)
	if !ok {
		return outcomeNoPuzzle, nil
	}

	won, err := s.store.ClaimPuzzleSend(ctx, p.Address, puzzle.Day, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to record puzzle send: %w", err)
	}
	if !won {
		metrics.DuplicateSuppressed.WithLabelValues("puzzle_send").Inc()
		return outcomeAlreadySent, nil
	}

	if err := s.sender.Send(ctx, p.Address, transport.Text(campaign.PuzzleMessage(puzzle))); err != nil {
		return 0, fmt.Errorf("failed to send puzzle: %w", err)
	}
	metrics.PuzzlesSent.WithLabelValues("sweep").Inc()
	return outcomeSent, nil
}
