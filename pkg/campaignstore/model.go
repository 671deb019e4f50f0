package campaignstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/chainsafe/advent-agent/pkg/campaign"
)

// ParticipantDao maps to the 'participants' table.
type ParticipantDao struct {
	bun.BaseModel       `bun:"table:participants,alias:p"`
	Address             string     `bun:"address,pk,type:varchar(255)"`
	Wallet              *string    `bun:"wallet,type:varchar(42)"`
	Paid                bool       `bun:"paid,notnull"`
	CurrentDay          int        `bun:"current_day,notnull"`
	PendingRewardChoice bool       `bun:"pending_reward_choice,notnull"`
	PaymentReference    *string    `bun:"payment_reference,unique,type:varchar(255)"`
	JoinedAt            time.Time  `bun:"joined_at,notnull"`
	PaidAt              *time.Time `bun:"paid_at"`
}

// PuzzleDao maps to the 'puzzles' table.
type PuzzleDao struct {
	bun.BaseModel `bun:"table:puzzles,alias:pz"`
	Day           int     `bun:"day,pk"`
	Question      string  `bun:"question,notnull,type:text"`
	Answer        string  `bun:"answer,notnull,type:varchar(255)"`
	Hint1         *string `bun:"hint1,type:text"`
	Hint2         *string `bun:"hint2,type:text"`
	Hint3         *string `bun:"hint3,type:text"`
	Category      string  `bun:"category,notnull,type:varchar(64)"`
	Difficulty    int     `bun:"difficulty,notnull"`
}

// PuzzleSendDao maps to the 'puzzle_sends' table.
type PuzzleSendDao struct {
	bun.BaseModel `bun:"table:puzzle_sends,alias:ps"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Participant   string    `bun:"participant,notnull,unique:puzzle_sends_participant_day_key,type:varchar(255)"`
	Day           int       `bun:"day,notnull,unique:puzzle_sends_participant_day_key"`
	SentAt        time.Time `bun:"sent_at,notnull"`
}

// AnswerSubmissionDao maps to the 'answer_submissions' table.
type AnswerSubmissionDao struct {
	bun.BaseModel  `bun:"table:answer_submissions,alias:a"`
	ID             int64     `bun:"id,pk,autoincrement"`
	Participant    string    `bun:"participant,notnull,unique:answer_submissions_participant_day_key,type:varchar(255)"`
	Day            int       `bun:"day,notnull,unique:answer_submissions_participant_day_key"`
	AnswerText     string    `bun:"answer_text,notnull,type:text"`
	SubmittedAt    time.Time `bun:"submitted_at,notnull"`
	SentAt         time.Time `bun:"sent_at,notnull"`
	IsCorrect      bool      `bun:"is_correct,notnull"`
	ResponseTimeMS int64     `bun:"response_time_ms,notnull"`
	HintsUsed      int       `bun:"hints_used,notnull"`
}

// HintUsageDao maps to the 'hint_usage' table.
type HintUsageDao struct {
	bun.BaseModel `bun:"table:hint_usage,alias:h"`
	Participant   string    `bun:"participant,pk,type:varchar(255)"`
	Day           int       `bun:"day,pk"`
	HintsUsed     int       `bun:"hints_used,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

// TransactionDao maps to the 'transactions' table. Amounts are kept as
// decimal strings so both dialects round-trip them exactly.
type TransactionDao struct {
	bun.BaseModel `bun:"table:transactions,alias:t"`
	ID            int64      `bun:"id,pk,autoincrement"`
	Participant   string     `bun:"participant,notnull,unique:transactions_participant_day_key,type:varchar(255)"`
	Day           int        `bun:"day,notnull,unique:transactions_participant_day_key"`
	Amount        string     `bun:"amount,notnull,type:varchar(80)"`
	Asset         string     `bun:"asset,notnull,type:varchar(32)"`
	Kind          string     `bun:"kind,notnull,type:varchar(16)"`
	ExternalRef   *string    `bun:"external_ref,type:varchar(255)"`
	Status        string     `bun:"status,notnull,type:varchar(16)"`
	Failure       *string    `bun:"failure,type:varchar(16)"`
	Error         *string    `bun:"error,type:text"`
	CreatedAt     time.Time  `bun:"created_at,notnull"`
	CompletedAt   *time.Time `bun:"completed_at"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nullable returns nil for "" so the value binds as SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func toParticipant(dao *ParticipantDao) *campaign.Participant {
	p := &campaign.Participant{
		Address:             dao.Address,
		Wallet:              deref(dao.Wallet),
		Paid:                dao.Paid,
		CurrentDay:          dao.CurrentDay,
		PendingRewardChoice: dao.PendingRewardChoice,
		PaymentReference:    deref(dao.PaymentReference),
		JoinedAt:            dao.JoinedAt,
	}
	if dao.PaidAt != nil {
		t := *dao.PaidAt
		p.PaidAt = &t
	}
	return p
}

func toPuzzleDao(p *campaign.Puzzle) *PuzzleDao {
	dao := &PuzzleDao{
		Day:        p.Day,
		Question:   p.Question,
		Answer:     p.Answer,
		Category:   p.Category,
		Difficulty: p.Difficulty,
	}
	slots := []**string{&dao.Hint1, &dao.Hint2, &dao.Hint3}
	for i, h := range p.Hints {
		if i >= len(slots) {
			break
		}
		*slots[i] = optional(h)
	}
	return dao
}

func toPuzzle(dao *PuzzleDao) *campaign.Puzzle {
	p := &campaign.Puzzle{
		Day:        dao.Day,
		Question:   dao.Question,
		Answer:     dao.Answer,
		Category:   dao.Category,
		Difficulty: dao.Difficulty,
	}
	for _, h := range []*string{dao.Hint1, dao.Hint2, dao.Hint3} {
		if h != nil && *h != "" {
			p.Hints = append(p.Hints, *h)
		}
	}
	return p
}

func toAnswerSubmission(dao *AnswerSubmissionDao) *campaign.AnswerSubmission {
	return &campaign.AnswerSubmission{
		Participant:    dao.Participant,
		Day:            dao.Day,
		AnswerText:     dao.AnswerText,
		SubmittedAt:    dao.SubmittedAt,
		SentAt:         dao.SentAt,
		IsCorrect:      dao.IsCorrect,
		ResponseTimeMS: dao.ResponseTimeMS,
		HintsUsed:      dao.HintsUsed,
	}
}

func toTransactionDao(tx *campaign.Transaction) *TransactionDao {
	return &TransactionDao{
		Participant: tx.Participant,
		Day:         tx.Day,
		Amount:      tx.Amount.String(),
		Asset:       tx.Asset,
		Kind:        string(tx.Kind),
		ExternalRef: optional(tx.ExternalRef),
		Status:      string(tx.Status),
		Failure:     optional(string(tx.Failure)),
		Error:       optional(tx.Error),
		CreatedAt:   tx.CreatedAt.UTC(),
		CompletedAt: tx.CompletedAt,
	}
}

func toTransaction(dao *TransactionDao) (*campaign.Transaction, error) {
	amount, err := decimal.NewFromString(dao.Amount)
	if err != nil {
		return nil, err
	}
	return &campaign.Transaction{
		ID:          dao.ID,
		Participant: dao.Participant,
		Day:         dao.Day,
		Amount:      amount,
		Asset:       dao.Asset,
		Kind:        campaign.TransactionKind(dao.Kind),
		ExternalRef: deref(dao.ExternalRef),
		Status:      campaign.TransactionStatus(dao.Status),
		Failure:     campaign.FailureKind(deref(dao.Failure)),
		Error:       deref(dao.Error),
		CreatedAt:   dao.CreatedAt,
		CompletedAt: dao.CompletedAt,
	}, nil
}
