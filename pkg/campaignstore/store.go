// Package campaignstore persists participants, puzzles and the idempotency,
// hint and transaction ledgers. Every state transition that guards a side
// effect is a single conditional statement (or one transaction) so that
// concurrent writers agree on exactly one winner.
package campaignstore

import (
	"context"
	"errors"
	"time"

	"github.com/chainsafe/advent-agent/pkg/campaign"
)

var (
	// ErrParticipantNotFound is returned when no participant has the address.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrPuzzleNotFound is returned when the catalog has no puzzle for the day.
	ErrPuzzleNotFound = errors.New("puzzle not found")
	// ErrSendNotFound is returned when a puzzle was never delivered for the day.
	ErrSendNotFound = errors.New("puzzle send not found")
	// ErrAnswerNotFound is returned when no answer is recorded for the day.
	ErrAnswerNotFound = errors.New("answer submission not found")
	// ErrTransactionExists is returned when a reward transaction already exists for the day.
	ErrTransactionExists = errors.New("transaction already exists")
	// ErrTransactionNotFound is returned when no pending transaction matches.
	ErrTransactionNotFound = errors.New("pending transaction not found")
	// ErrMissingCompletedAt is returned when a transaction outcome carries no completion time.
	ErrMissingCompletedAt = errors.New("transaction completion time not set")
	// ErrPaymentReferenceUsed is returned when another participant already paid with the reference.
	ErrPaymentReferenceUsed = errors.New("payment reference already used")
)

// ParticipantStore manages participant records.
type ParticipantStore interface {
	EnsureParticipant(ctx context.Context, address string, now time.Time) (*campaign.Participant, error)
	GetParticipant(ctx context.Context, address string) (*campaign.Participant, error)
	ListPaidParticipants(ctx context.Context) ([]*campaign.Participant, error)
	MarkPaid(ctx context.Context, address, reference, wallet string, now time.Time) (bool, error)
	SetWallet(ctx context.Context, address, wallet string) error
	ResolveRewardChoice(ctx context.Context, address string, currentDay int) (bool, error)
}

// PuzzleStore manages the seeded catalog.
type PuzzleStore interface {
	UpsertPuzzles(ctx context.Context, puzzles []*campaign.Puzzle) error
	ListPuzzles(ctx context.Context) ([]*campaign.Puzzle, error)
}

// SendLedger records puzzle deliveries.
type SendLedger interface {
	ClaimPuzzleSend(ctx context.Context, participant string, day int, sentAt time.Time) (bool, error)
	GetPuzzleSend(ctx context.Context, participant string, day int) (*campaign.PuzzleSend, error)
}

// AnswerLedger records answer outcomes.
type AnswerLedger interface {
	RecordCorrectAnswer(ctx context.Context, sub *campaign.AnswerSubmission) (bool, error)
	RecordIncorrectAnswer(ctx context.Context, sub *campaign.AnswerSubmission) error
	GetAnswer(ctx context.Context, participant string, day int) (*campaign.AnswerSubmission, error)
}

// HintLedger counts hint usage.
type HintLedger interface {
	HintsUsed(ctx context.Context, participant string, day int) (int, error)
	ConsumeHint(ctx context.Context, participant string, day, limit int, now time.Time) (int, bool, error)
}

// TransactionLedger is the reward audit trail.
type TransactionLedger interface {
	CreateTransaction(ctx context.Context, tx *campaign.Transaction) error
	CompleteTransaction(ctx context.Context, tx *campaign.Transaction) error
	ListTransactions(ctx context.Context, participant string) ([]*campaign.Transaction, error)
}

// LeaderboardView aggregates answer records.
type LeaderboardView interface {
	Leaderboard(ctx context.Context, limit int) ([]campaign.LeaderboardEntry, error)
	Stats(ctx context.Context, address string) (*campaign.Stats, error)
}

// Store is the full persistence surface.
type Store interface {
	ParticipantStore
	PuzzleStore
	SendLedger
	AnswerLedger
	HintLedger
	TransactionLedger
	LeaderboardView
}
