// Package campaign holds the domain types shared by the puzzle campaign components.
package campaign

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// MaxHints is the largest number of hints a puzzle may carry.
const MaxHints = 3

// Participant is an address-identified user of the campaign.
type Participant struct {
	Address             string
	Wallet              string
	Paid                bool
	CurrentDay          int
	PendingRewardChoice bool
	PaymentReference    string
	JoinedAt            time.Time
	PaidAt              *time.Time
}

// PayoutAddress returns the address rewards are sent to, or "" when none is known.
func (p *Participant) PayoutAddress() string {
	if p.Wallet != "" {
		return p.Wallet
	}
	if strings.HasPrefix(p.Address, "0x") && common.IsHexAddress(p.Address) {
		return p.Address
	}
	return ""
}

// CompletedDay is the day whose completion earned the pending reward.
func (p *Participant) CompletedDay() int {
	return p.CurrentDay - 1
}

// Puzzle is one daily puzzle of the catalog.
type Puzzle struct {
	Day        int
	Question   string
	Answer     string
	Hints      []string
	Category   string
	Difficulty int
}

// Matches reports whether text is the canonical answer, ignoring case and surrounding whitespace.
func (p *Puzzle) Matches(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(p.Answer))
}

// HintCount returns the number of non-empty hints.
func (p *Puzzle) HintCount() int {
	n := 0
	for _, h := range p.Hints {
		if strings.TrimSpace(h) != "" {
			n++
		}
	}
	return n
}

// Hint returns the hint at index i (0-based), skipping empty slots.
func (p *Puzzle) Hint(i int) (string, bool) {
	n := 0
	for _, h := range p.Hints {
		if strings.TrimSpace(h) == "" {
			continue
		}
		if n == i {
			return h, true
		}
		n++
	}
	return "", false
}

// PuzzleSend is the durable proof a day's puzzle was delivered to a participant.
type PuzzleSend struct {
	Participant string
	Day         int
	SentAt      time.Time
}

// AnswerSubmission is the retained answer outcome for a participant and day.
type AnswerSubmission struct {
	Participant    string
	Day            int
	AnswerText     string
	SubmittedAt    time.Time
	SentAt         time.Time
	IsCorrect      bool
	ResponseTimeMS int64
	HintsUsed      int
}

// NewAnswerSubmission builds a submission with the response time derived from the send time.
func NewAnswerSubmission(participant string, day int, text string, sentAt, now time.Time, correct bool, hints int) *AnswerSubmission {
	elapsed := now.Sub(sentAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return &AnswerSubmission{
		Participant:    participant,
		Day:            day,
		AnswerText:     text,
		SubmittedAt:    now,
		SentAt:         sentAt,
		IsCorrect:      correct,
		ResponseTimeMS: elapsed,
		HintsUsed:      hints,
	}
}

// RewardPath is the participant's reward choice.
type RewardPath string

const (
	// RewardPathSafe transfers a fixed amount of the reward asset.
	RewardPathSafe RewardPath = "nice"
	// RewardPathRisky swaps the reward into a random market token.
	RewardPathRisky RewardPath = "naughty"
)

// TransactionStatus is the lifecycle state of a reward transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// TransactionKind is the kind of on-chain action behind a transaction.
type TransactionKind string

const (
	TransactionKindTransfer TransactionKind = "transfer"
	TransactionKindSwap     TransactionKind = "swap"
)

// FailureKind classifies a failed transaction.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureRetryable FailureKind = "retryable"
	FailureTerminal  FailureKind = "terminal"
)

// Transaction is one entry of the reward audit trail.
type Transaction struct {
	ID          int64
	Participant string
	Day         int
	Amount      decimal.Decimal
	Asset       string
	Kind        TransactionKind
	ExternalRef string
	Status      TransactionStatus
	Failure     FailureKind
	Error       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Token is a candidate reward token returned by market data.
type Token struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
	Name    string `json:"name"`
}

// LeaderboardEntry is one ranked participant.
type LeaderboardEntry struct {
	Rank              int     `json:"rank"`
	Address           string  `json:"address"`
	CorrectAnswers    int     `json:"correct_answers"`
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`
}

// Stats summarises a participant's own results.
type Stats struct {
	Address           string  `json:"address"`
	CorrectAnswers    int     `json:"correct_answers"`
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`
	CurrentDay        int     `json:"current_day"`
}
