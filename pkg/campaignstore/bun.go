package campaignstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/chainsafe/advent-agent/pkg/campaign"
)

// errNotAdvanced rolls back a correct-answer transaction that lost its compare-and-set.
var errNotAdvanced = errors.New("participant not advanced")

type bunStore struct {
	db *bun.DB
}

// NewStore creates a bun implementation of the campaign store. It works
// against both the Postgres and SQLite dialects.
func NewStore(db *bun.DB) *bunStore {
	return &bunStore{db: db}
}

var _ Store = (*bunStore)(nil)

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// Participants

func (s *bunStore) EnsureParticipant(ctx context.Context, address string, now time.Time) (*campaign.Participant, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (address, paid, current_day, pending_reward_choice, joined_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (address) DO NOTHING`,
		address, false, 1, false, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure participant: %w", err)
	}
	return s.GetParticipant(ctx, address)
}

func (s *bunStore) GetParticipant(ctx context.Context, address string) (*campaign.Participant, error) {
	dao := new(ParticipantDao)
	err := s.db.NewSelect().Model(dao).Where("address = ?", address).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return toParticipant(dao), nil
}

func (s *bunStore) ListPaidParticipants(ctx context.Context) ([]*campaign.Participant, error) {
	var daos []ParticipantDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("paid = ?", true).
		Order("address ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list paid participants: %w", err)
	}
	participants := make([]*campaign.Participant, len(daos))
	for i := range daos {
		participants[i] = toParticipant(&daos[i])
	}
	return participants, nil
}

// MarkPaid flips an unpaid participant to paid. It returns false when the
// participant was already paid. A reference already used by another
// participant is rejected with ErrPaymentReferenceUsed.
func (s *bunStore) MarkPaid(ctx context.Context, address, reference, wallet string, now time.Time) (bool, error) {
	var marked bool
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if reference != "" {
			used, err := tx.NewSelect().
				Model((*ParticipantDao)(nil)).
				Where("payment_reference = ?", reference).
				Where("address <> ?", address).
				Exists(ctx)
			if err != nil {
				return fmt.Errorf("failed to check payment reference: %w", err)
			}
			if used {
				return ErrPaymentReferenceUsed
			}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE participants
			SET paid = ?, paid_at = ?, payment_reference = ?, wallet = COALESCE(?, wallet)
			WHERE address = ? AND paid = ?`,
			true, now.UTC(), nullable(reference), nullable(wallet), address, false,
		)
		if err != nil {
			return fmt.Errorf("failed to mark participant paid: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		marked = n == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return marked, nil
}

func (s *bunStore) SetWallet(ctx context.Context, address, wallet string) error {
	res, err := s.db.NewUpdate().
		Model((*ParticipantDao)(nil)).
		Set("wallet = ?", wallet).
		Where("address = ?", address).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set wallet: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// ResolveRewardChoice clears the pending flag if it is still set for the
// given current day. Only the caller that gets true may dispatch the reward.
func (s *bunStore) ResolveRewardChoice(ctx context.Context, address string, currentDay int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE participants SET pending_reward_choice = ?
		WHERE address = ? AND pending_reward_choice = ? AND current_day = ?`,
		false, address, true, currentDay,
	)
	if err != nil {
		return false, fmt.Errorf("failed to resolve reward choice: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Puzzles

// UpsertPuzzles writes puzzles, replacing any existing puzzle for the same day.
func (s *bunStore) UpsertPuzzles(ctx context.Context, puzzles []*campaign.Puzzle) error {
	if len(puzzles) == 0 {
		return nil
	}
	daos := make([]*PuzzleDao, len(puzzles))
	for i, p := range puzzles {
		daos[i] = toPuzzleDao(p)
	}
	_, err := s.db.NewInsert().
		Model(&daos).
		On("CONFLICT (day) DO UPDATE").
		Set("question = EXCLUDED.question").
		Set("answer = EXCLUDED.answer").
		Set("hint1 = EXCLUDED.hint1").
		Set("hint2 = EXCLUDED.hint2").
		Set("hint3 = EXCLUDED.hint3").
		Set("category = EXCLUDED.category").
		Set("difficulty = EXCLUDED.difficulty").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert puzzles: %w", err)
	}
	return nil
}

func (s *bunStore) ListPuzzles(ctx context.Context) ([]*campaign.Puzzle, error) {
	var daos []PuzzleDao
	if err := s.db.NewSelect().Model(&daos).Order("day ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list puzzles: %w", err)
	}
	puzzles := make([]*campaign.Puzzle, len(daos))
	for i := range daos {
		puzzles[i] = toPuzzle(&daos[i])
	}
	return puzzles, nil
}

// Idempotency ledger

// ClaimPuzzleSend records that the puzzle for (participant, day) is being
// delivered. It returns true only for the writer that created the record.
func (s *bunStore) ClaimPuzzleSend(ctx context.Context, participant string, day int, sentAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO puzzle_sends (participant, day, sent_at)
		VALUES (?, ?, ?)
		ON CONFLICT (participant, day) DO NOTHING`,
		participant, day, sentAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim puzzle send: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *bunStore) GetPuzzleSend(ctx context.Context, participant string, day int) (*campaign.PuzzleSend, error) {
	dao := new(PuzzleSendDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("participant = ?", participant).
		Where("day = ?", day).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSendNotFound
		}
		return nil, fmt.Errorf("failed to get puzzle send: %w", err)
	}
	return &campaign.PuzzleSend{Participant: dao.Participant, Day: dao.Day, SentAt: dao.SentAt}, nil
}

// upsertAnswer writes sub unless a correct answer is already retained for
// the same (participant, day).
func upsertAnswer(ctx context.Context, db bun.IDB, sub *campaign.AnswerSubmission) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO answer_submissions
			(participant, day, answer_text, submitted_at, sent_at, is_correct, response_time_ms, hints_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (participant, day) DO UPDATE SET
			answer_text = EXCLUDED.answer_text,
			submitted_at = EXCLUDED.submitted_at,
			sent_at = EXCLUDED.sent_at,
			is_correct = EXCLUDED.is_correct,
			response_time_ms = EXCLUDED.response_time_ms,
			hints_used = EXCLUDED.hints_used
		WHERE answer_submissions.is_correct = ?`,
		sub.Participant, sub.Day, sub.AnswerText, sub.SubmittedAt.UTC(), sub.SentAt.UTC(),
		sub.IsCorrect, sub.ResponseTimeMS, sub.HintsUsed, false,
	)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// RecordCorrectAnswer retains a correct answer and advances the participant
// from sub.Day to sub.Day+1 with a pending reward choice, atomically. It
// returns false, without changing anything, when the answer is a duplicate
// or the participant is no longer on sub.Day.
func (s *bunStore) RecordCorrectAnswer(ctx context.Context, sub *campaign.AnswerSubmission) (bool, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		n, err := upsertAnswer(ctx, tx, sub)
		if err != nil {
			return fmt.Errorf("failed to record answer: %w", err)
		}
		if n == 0 {
			return errNotAdvanced
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE participants SET current_day = ?, pending_reward_choice = ?
			WHERE address = ? AND current_day = ? AND pending_reward_choice = ?`,
			sub.Day+1, true, sub.Participant, sub.Day, false,
		)
		if err != nil {
			return fmt.Errorf("failed to advance participant: %w", err)
		}
		n, err = rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return errNotAdvanced
		}
		return nil
	})
	if errors.Is(err, errNotAdvanced) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordIncorrectAnswer retains the latest incorrect attempt. It never
// replaces a correct answer.
func (s *bunStore) RecordIncorrectAnswer(ctx context.Context, sub *campaign.AnswerSubmission) error {
	if _, err := upsertAnswer(ctx, s.db, sub); err != nil {
		return fmt.Errorf("failed to record answer: %w", err)
	}
	return nil
}

func (s *bunStore) GetAnswer(ctx context.Context, participant string, day int) (*campaign.AnswerSubmission, error) {
	dao := new(AnswerSubmissionDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("participant = ?", participant).
		Where("day = ?", day).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnswerNotFound
		}
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}
	return toAnswerSubmission(dao), nil
}

// Hint ledger

func hintsUsed(ctx context.Context, db bun.IDB, participant string, day int) (int, error) {
	dao := new(HintUsageDao)
	err := db.NewSelect().
		Model(dao).
		Where("participant = ?", participant).
		Where("day = ?", day).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get hint usage: %w", err)
	}
	return dao.HintsUsed, nil
}

func (s *bunStore) HintsUsed(ctx context.Context, participant string, day int) (int, error) {
	return hintsUsed(ctx, s.db, participant, day)
}

// ConsumeHint increments the hint counter if it is below limit. It returns
// the counter after the call and whether a hint was granted.
func (s *bunStore) ConsumeHint(ctx context.Context, participant string, day, limit int, now time.Time) (int, bool, error) {
	if limit <= 0 {
		used, err := s.HintsUsed(ctx, participant, day)
		return used, false, err
	}

	var (
		used    int
		granted bool
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO hint_usage (participant, day, hints_used, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (participant, day) DO UPDATE SET
				hints_used = hint_usage.hints_used + 1,
				updated_at = EXCLUDED.updated_at
			WHERE hint_usage.hints_used < ?`,
			participant, day, 1, now.UTC(), limit,
		)
		if err != nil {
			return fmt.Errorf("failed to consume hint: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		granted = n == 1

		used, err = hintsUsed(ctx, tx, participant, day)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return used, granted, nil
}

// Transaction ledger

// CreateTransaction appends a transaction and sets tx.ID.
func (s *bunStore) CreateTransaction(ctx context.Context, tx *campaign.Transaction) error {
	dao := toTransactionDao(tx)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, btx bun.Tx) error {
		exists, err := btx.NewSelect().
			Model((*TransactionDao)(nil)).
			Where("participant = ?", tx.Participant).
			Where("day = ?", tx.Day).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check transaction: %w", err)
		}
		if exists {
			return ErrTransactionExists
		}
		if _, err := btx.NewInsert().Model(dao).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	tx.ID = dao.ID
	return nil
}

// CompleteTransaction attaches the outcome to the pending transaction of
// (tx.Participant, tx.Day). tx.CompletedAt must be set.
func (s *bunStore) CompleteTransaction(ctx context.Context, tx *campaign.Transaction) error {
	if tx.CompletedAt == nil {
		return ErrMissingCompletedAt
	}
	completedAt := tx.CompletedAt.UTC()
	res, err := s.db.NewUpdate().
		Model((*TransactionDao)(nil)).
		Set("status = ?", string(tx.Status)).
		Set("external_ref = ?", nullable(tx.ExternalRef)).
		Set("failure = ?", nullable(string(tx.Failure))).
		Set("error = ?", nullable(tx.Error)).
		Set("asset = ?", tx.Asset).
		Set("amount = ?", tx.Amount.String()).
		Set("completed_at = ?", completedAt).
		Where("participant = ?", tx.Participant).
		Where("day = ?", tx.Day).
		Where("status = ?", string(campaign.TransactionStatusPending)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to complete transaction: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (s *bunStore) ListTransactions(ctx context.Context, participant string) ([]*campaign.Transaction, error) {
	var daos []TransactionDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("participant = ?", participant).
		Order("day ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs := make([]*campaign.Transaction, 0, len(daos))
	for i := range daos {
		tx, err := toTransaction(&daos[i])
		if err != nil {
			return nil, fmt.Errorf("failed to decode transaction %d: %w", daos[i].ID, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Views

type leaderboardRow struct {
	Participant       string  `bun:"participant"`
	CorrectAnswers    int     `bun:"correct_answers"`
	AvgResponseTimeMS float64 `bun:"avg_response_time_ms"`
}

// Leaderboard ranks paid participants with at least one correct answer by
// correct count, then by average response time over correct answers.
func (s *bunStore) Leaderboard(ctx context.Context, limit int) ([]campaign.LeaderboardEntry, error) {
	var rows []leaderboardRow
	err := s.db.NewRaw(
		`SELECT a.participant AS participant,
			COUNT(*) AS correct_answers,
			CAST(AVG(a.response_time_ms) AS DOUBLE PRECISION) AS avg_response_time_ms
		FROM answer_submissions AS a
		JOIN participants AS p ON p.address = a.participant
		WHERE a.is_correct = ? AND p.paid = ?
		GROUP BY a.participant
		ORDER BY correct_answers DESC, avg_response_time_ms ASC, a.participant ASC
		LIMIT ?`,
		true, true, limit,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}

	entries := make([]campaign.LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = campaign.LeaderboardEntry{
			Rank:              i + 1,
			Address:           r.Participant,
			CorrectAnswers:    r.CorrectAnswers,
			AvgResponseTimeMS: r.AvgResponseTimeMS,
		}
	}
	return entries, nil
}

// statsRow scans the average as nullable: AVG over no rows is NULL, and a
// COALESCE fallback literal comes back as an integer on SQLite.
type statsRow struct {
	CorrectAnswers    int             `bun:"correct_answers"`
	AvgResponseTimeMS sql.NullFloat64 `bun:"avg_response_time_ms"`
}

func (s *bunStore) Stats(ctx context.Context, address string) (*campaign.Stats, error) {
	p, err := s.GetParticipant(ctx, address)
	if err != nil {
		return nil, err
	}

	var row statsRow
	err = s.db.NewRaw(
		`SELECT COUNT(*) AS correct_answers,
			CAST(AVG(response_time_ms) AS DOUBLE PRECISION) AS avg_response_time_ms
		FROM answer_submissions
		WHERE participant = ? AND is_correct = ?`,
		address, true,
	).Scan(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}

	return &campaign.Stats{
		Address:           address,
		CorrectAnswers:    row.CorrectAnswers,
		AvgResponseTimeMS: row.AvgResponseTimeMS.Float64,
		CurrentDay:        p.CurrentDay,
	}, nil
}
