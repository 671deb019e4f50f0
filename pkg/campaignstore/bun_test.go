package campaignstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainsafe/advent-agent/pkg/campaign"
	"github.com/chainsafe/advent-agent/pkg/pgutil"
	mghelper "github.com/chainsafe/advent-agent/pkg/pgutil/migrations"
)

var base = time.Date(2025, 12, 1, 6, 0, 0, 0, time.UTC)

var allModels = []any{
	&ParticipantDao{},
	&PuzzleDao{},
	&PuzzleSendDao{},
	&AnswerSubmissionDao{},
	&HintUsageDao{},
	&TransactionDao{},
}

func setupStore(t *testing.T) (context.Context, *bunStore) {
	t.Helper()

	ctx := context.Background()
	db := pgutil.SetupSQLiteDB(t)
	if err := mghelper.CreateSchema(ctx, db, allModels...); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return ctx, NewStore(db)
}

func paidParticipant(t *testing.T, ctx context.Context, s *bunStore, address string) {
	t.Helper()
	if _, err := s.EnsureParticipant(ctx, address, base); err != nil {
		t.Fatalf("EnsureParticipant(%s): %v", address, err)
	}
	if _, err := s.MarkPaid(ctx, address, "", "", base); err != nil {
		t.Fatalf("MarkPaid(%s): %v", address, err)
	}
}

// solve walks a participant through one full day: send, correct answer, reward resolution.
func solve(t *testing.T, ctx context.Context, s *bunStore, address string, day int, took time.Duration) {
	t.Helper()
	sentAt := base.Add(time.Duration(day) * 24 * time.Hour)
	if _, err := s.ClaimPuzzleSend(ctx, address, day, sentAt); err != nil {
		t.Fatalf("ClaimPuzzleSend: %v", err)
	}
	sub := campaign.NewAnswerSubmission(address, day, "x", sentAt, sentAt.Add(took), true, 0)
	advanced, err := s.RecordCorrectAnswer(ctx, sub)
	if err != nil || !advanced {
		t.Fatalf("RecordCorrectAnswer(%s, %d) = %v, %v", address, day, advanced, err)
	}
	resolved, err := s.ResolveRewardChoice(ctx, address, day+1)
	if err != nil || !resolved {
		t.Fatalf("ResolveRewardChoice(%s, %d) = %v, %v", address, day+1, resolved, err)
	}
}

func TestStore_EnsureParticipantIsIdempotent(t *testing.T) {
	ctx, s := setupStore(t)

	p, err := s.EnsureParticipant(ctx, "alice", base)
	if err != nil {
		t.Fatalf("EnsureParticipant: %v", err)
	}
	if p.Paid || p.CurrentDay != 1 || p.PendingRewardChoice {
		t.Fatalf("unexpected new participant: %+v", p)
	}

	again, err := s.EnsureParticipant(ctx, "alice", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("EnsureParticipant again: %v", err)
	}
	if !again.JoinedAt.Equal(base) {
		t.Fatalf("joined_at changed: got %v want %v", again.JoinedAt, base)
	}

	if _, err := s.GetParticipant(ctx, "nobody"); !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestStore_MarkPaid(t *testing.T) {
	ctx, s := setupStore(t)
	const wallet = "0x00000000000000000000000000000000000000aa"

	if _, err := s.EnsureParticipant(ctx, "alice", base); err != nil {
		t.Fatalf("EnsureParticipant: %v", err)
	}
	marked, err := s.MarkPaid(ctx, "alice", "0xref1", wallet, base)
	if err != nil || !marked {
		t.Fatalf("MarkPaid = %v, %v", marked, err)
	}
	marked, err = s.MarkPaid(ctx, "alice", "0xref1", "", base)
	if err != nil || marked {
		t.Fatalf("second MarkPaid = %v, %v; want false, nil", marked, err)
	}

	p, err := s.GetParticipant(ctx, "alice")
	if err != nil {
		t.Fatalf("GetParticipant: %v", err)
	}
	if !p.Paid || p.PaidAt == nil || p.PaymentReference != "0xref1" || p.Wallet != wallet {
		t.Fatalf("unexpected paid participant: %+v", p)
	}

	if _, err := s.EnsureParticipant(ctx, "bob", base); err != nil {
		t.Fatalf("EnsureParticipant: %v", err)
	}
	if _, err := s.MarkPaid(ctx, "bob", "0xref1", "", base); !errors.Is(err, ErrPaymentReferenceUsed) {
		t.Fatalf("expected ErrPaymentReferenceUsed, got %v", err)
	}

	paid, err := s.ListPaidParticipants(ctx)
	if err != nil {
		t.Fatalf("ListPaidParticipants: %v", err)
	}
	if len(paid) != 1 || paid[0].Address != "alice" {
		t.Fatalf("unexpected paid list: %+v", paid)
	}
}

func TestStore_SetWallet(t *testing.T) {
	ctx, s := setupStore(t)

	if err := s.SetWallet(ctx, "ghost", "0x1"); !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
	if _, err := s.EnsureParticipant(ctx, "alice", base); err != nil {
		t.Fatalf("EnsureParticipant: %v", err)
	}
	if err := s.SetWallet(ctx, "alice", "0x00000000000000000000000000000000000000bb"); err != nil {
		t.Fatalf("SetWallet: %v", err)
	}
	p, _ := s.GetParticipant(ctx, "alice")
	if p.Wallet != "0x00000000000000000000000000000000000000bb" {
		t.Fatalf("wallet not stored: %+v", p)
	}
}

func TestStore_ClaimPuzzleSendHasOneWinner(t *testing.T) {
	ctx, s := setupStore(t)
	paidParticipant(t, ctx, s, "alice")

	const writers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := s.ClaimPuzzleSend(ctx, "alice", 1, base)
			if err != nil {
				t.Errorf("ClaimPuzzleSend: %v", err)
				return
			}
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winning send, got %d", wins)
	}
	pgutil.AssertRowCount(t, s.db, "puzzle_sends", 1)

	send, err := s.GetPuzzleSend(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("GetPuzzleSend: %v", err)
	}
	if !send.SentAt.Equal(base) {
		t.Fatalf("sent_at mismatch: %v", send.SentAt)
	}
	if _, err := s.GetPuzzleSend(ctx, "alice", 2); !errors.Is(err, ErrSendNotFound) {
		t.Fatalf("expected ErrSendNotFound, got %v", err)
	}
}

func TestStore_RecordCorrectAnswerAdvancesOnce(t *testing.T) {
	ctx, s := setupStore(t)
	paidParticipant(t, ctx, s, "alice")
	if _, err := s.ClaimPuzzleSend(ctx, "alice", 1, base); err != nil {
		t.Fatalf("ClaimPuzzleSend: %v", err)
	}

	wrong := campaign.NewAnswerSubmission("alice", 1, "London", base, base.Add(5*time.Second), false, 0)
	if err := s.RecordIncorrectAnswer(ctx, wrong); err != nil {
		t.Fatalf("RecordIncorrectAnswer: %v", err)
	}

	right := campaign.NewAnswerSubmission("alice", 1, "Paris", base, base.Add(12*time.Second), true, 1)
	advanced, err := s.RecordCorrectAnswer(ctx, right)
	if err != nil || !advanced {
		t.Fatalf("RecordCorrectAnswer = %v, %v", advanced, err)
	}

	dup := campaign.NewAnswerSubmission("alice", 1, "paris", base, base.Add(20*time.Second), true, 1)
	advanced, err = s.RecordCorrectAnswer(ctx, dup)
	if err != nil || advanced {
		t.Fatalf("duplicate RecordCorrectAnswer = %v, %v; want false, nil", advanced, err)
	}

	late := campaign.NewAnswerSubmission("alice", 1, "Rome", base, base.Add(30*time.Second), false, 1)
	if err := s.RecordIncorrectAnswer(ctx, late); err != nil {
		t.Fatalf("RecordIncorrectAnswer after correct: %v", err)
	}

	p, err := s.GetParticipant(ctx, "alice")
	if err != nil {
		t.Fatalf("GetParticipant: %v", err)
	}
	if p.CurrentDay != 2 || !p.PendingRewardChoice {
		t.Fatalf("expected day 2 with pending choice, got %+v", p)
	}

	got, err := s.GetAnswer(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("GetAnswer: %v", err)
	}
	if !got.IsCorrect || got.AnswerText != "Paris" || got.ResponseTimeMS != 12000 || got.HintsUsed != 1 {
		t.Fatalf("correct answer was not retained: %+v", got)
	}
	pgutil.AssertRowCount(t, s.db, "answer_submissions", 1)
}

func TestStore_RecordCorrectAnswerRequiresCurrentDay(t *testing.T) {
	ctx, s := setupStore(t)
	paidParticipant(t, ctx, s, "alice")

	// participant is on day 1; an answer for day 2 must not advance or persist
	sub := campaign.NewAnswerSubmission("alice", 2, "Jupiter", base, base.Add(time.Second), true, 0)
	advanced, err := s.RecordCorrectAnswer(ctx, sub)
	if err != nil || advanced {
		t.Fatalf("RecordCorrectAnswer = %v, %v; want false, nil", advanced, err)
	}
	if _, err := s.GetAnswer(ctx, "alice", 2); !errors.Is(err, ErrAnswerNotFound) {
		t.Fatalf("expected rolled back answer, got %v", err)
	}
}

func TestStore_ResolveRewardChoiceOnce(t *testing.T) {
	ctx, s := setupStore(t)
	paidParticipant(t, ctx, s, "alice")
	if _, err := s.ClaimPuzzleSend(ctx, "alice", 1, base); err != nil {
		t.Fatalf("ClaimPuzzleSend: %v", err)
	}
	sub := campaign.NewAnswerSubmission("alice", 1, "Paris", base, base.Add(time.Second), true, 0)
	if _, err := s.RecordCorrectAnswer(ctx, sub); err != nil {
		t.Fatalf("RecordCorrectAnswer: %v", err)
	}

	if ok, err := s.ResolveRewardChoice(ctx, "alice", 1); err != nil || ok {
		t.Fatalf("stale day resolve = %v, %v; want false, nil", ok, err)
	}
	if ok, err := s.ResolveRewardChoice(ctx, "alice", 2); err != nil || !ok {
		t.Fatalf("ResolveRewardChoice = %v, %v", ok, err)
	}
	if ok, err := s.ResolveRewardChoice(ctx, "alice", 2); err != nil || ok {
		t.Fatalf("second ResolveRewardChoice = %v, %v; want false, nil", ok, err)
	}
}

func TestStore_ConsumeHintIsCapped(t *testing.T) {
	ctx, s := setupStore(t)

	for want := 1; want <= 3; want++ {
		used, granted, err := s.ConsumeHint(ctx, "alice", 1, 3, base)
		if err != nil || !granted || used != want {
			t.Fatalf("ConsumeHint #%d = %d, %v, %v", want, used, granted, err)
		}
	}

	used, granted, err := s.ConsumeHint(ctx, "alice", 1, 3, base)
	if err != nil || granted || used != 3 {
		t.Fatalf("ConsumeHint past limit = %d, %v, %v; want 3, false, nil", used, granted, err)
	}

	used, granted, err = s.ConsumeHint(ctx, "alice", 2, 0, base)
	if err != nil || granted || used != 0 {
		t.Fatalf("ConsumeHint with no hints = %d, %v, %v", used, granted, err)
	}

	used, err = s.HintsUsed(ctx, "alice", 1)
	if err != nil || used != 3 {
		t.Fatalf("HintsUsed = %d, %v", used, err)
	}

	var dao HintUsageDao
	if err := s.db.NewSelect().Model(&dao).Where("participant = ?", "alice").Where("day = ?", 1).Scan(ctx); err != nil {
		t.Fatalf("load hint usage: %v", err)
	}
	if !dao.UpdatedAt.Equal(base) {
		t.Fatalf("updated_at = %s, want %s", dao.UpdatedAt, base)
	}
}

func TestStore_StatsWithoutCorrectAnswers(t *testing.T) {
	ctx, s := setupStore(t)
	if _, err := s.EnsureParticipant(ctx, "newbie", base); err != nil {
		t.Fatalf("EnsureParticipant: %v", err)
	}

	stats, err := s.Stats(ctx, "newbie")
	if err != nil {
		t.Fatalf("Stats for new participant: %v", err)
	}
	if stats.CorrectAnswers != 0 || stats.AvgResponseTimeMS != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	wrong := campaign.NewAnswerSubmission("newbie", 1, "Lyon", base, base.Add(3*time.Second), false, 0)
	if err := s.RecordIncorrectAnswer(ctx, wrong); err != nil {
		t.Fatalf("RecordIncorrectAnswer: %v", err)
	}
	stats, err = s.Stats(ctx, "newbie")
	if err != nil {
		t.Fatalf("Stats after wrong answer: %v", err)
	}
	if stats.CorrectAnswers != 0 || stats.AvgResponseTimeMS != 0 {
		t.Fatalf("wrong answers must not count: %+v", stats)
	}
}

func TestStore_Transactions(t *testing.T) {
	ctx, s := setupStore(t)

	tx := &campaign.Transaction{
		Participant: "alice",
		Day:         1,
		Amount:      decimal.RequireFromString("0.001"),
		Asset:       "USDC",
		Kind:        campaign.TransactionKindTransfer,
		Status:      campaign.TransactionStatusPending,
		CreatedAt:   base,
	}
	if err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.ID == 0 {
		t.Fatal("expected transaction id to be assigned")
	}

	dup := *tx
	if err := s.CreateTransaction(ctx, &dup); !errors.Is(err, ErrTransactionExists) {
		t.Fatalf("expected ErrTransactionExists, got %v", err)
	}

	tx.Status = campaign.TransactionStatusCompleted
	tx.ExternalRef = "0xabc"
	if err := s.CompleteTransaction(ctx, tx); !errors.Is(err, ErrMissingCompletedAt) {
		t.Fatalf("expected ErrMissingCompletedAt, got %v", err)
	}
	completedAt := base.Add(90 * time.Second)
	tx.CompletedAt = &completedAt
	if err := s.CompleteTransaction(ctx, tx); err != nil {
		t.Fatalf("CompleteTransaction: %v", err)
	}
	if err := s.CompleteTransaction(ctx, tx); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound on second completion, got %v", err)
	}

	txs, err := s.ListTransactions(ctx, "alice")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	got := txs[0]
	if got.Status != campaign.TransactionStatusCompleted || got.ExternalRef != "0xabc" || got.CompletedAt == nil {
		t.Fatalf("unexpected completed transaction: %+v", got)
	}
	if !got.CompletedAt.Equal(completedAt) {
		t.Fatalf("completed_at = %s, want %s", got.CompletedAt, completedAt)
	}
	if !got.Amount.Equal(decimal.RequireFromString("0.001")) {
		t.Fatalf("amount mismatch: %s", got.Amount)
	}
}

func TestStore_LeaderboardOrdering(t *testing.T) {
	ctx, s := setupStore(t)

	for _, addr := range []string{"fast", "slow", "few", "none"} {
		paidParticipant(t, ctx, s, addr)
	}
	for day := 1; day <= 5; day++ {
		solve(t, ctx, s, "fast", day, 8*time.Second)
		solve(t, ctx, s, "slow", day, 10*time.Second)
	}
	for day := 1; day <= 3; day++ {
		solve(t, ctx, s, "few", day, time.Second)
	}

	// correct answers of an unpaid participant never rank
	if _, err := s.EnsureParticipant(ctx, "unpaid", base); err != nil {
		t.Fatalf("EnsureParticipant: %v", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO answer_submissions (participant, day, answer_text, submitted_at, sent_at, is_correct, response_time_ms, hints_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"unpaid", 1, "x", base, base, true, 1, 0,
	); err != nil {
		t.Fatalf("insert unpaid answer: %v", err)
	}

	entries, err := s.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 ranked participants, got %+v", entries)
	}

	want := []struct {
		addr    string
		correct int
		avg     float64
	}{
		{"fast", 5, 8000},
		{"slow", 5, 10000},
		{"few", 3, 1000},
	}
	for i, w := range want {
		e := entries[i]
		if e.Rank != i+1 || e.Address != w.addr || e.CorrectAnswers != w.correct || e.AvgResponseTimeMS != w.avg {
			t.Fatalf("rank %d: got %+v, want %+v", i+1, e, w)
		}
	}

	top, err := s.Leaderboard(ctx, 1)
	if err != nil || len(top) != 1 || top[0].Address != "fast" {
		t.Fatalf("Leaderboard(1) = %+v, %v", top, err)
	}
}

func TestStore_Stats(t *testing.T) {
	ctx, s := setupStore(t)
	paidParticipant(t, ctx, s, "alice")

	stats, err := s.Stats(ctx, "alice")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.CorrectAnswers != 0 || stats.AvgResponseTimeMS != 0 || stats.CurrentDay != 1 {
		t.Fatalf("unexpected empty stats: %+v", stats)
	}

	solve(t, ctx, s, "alice", 1, 4*time.Second)
	solve(t, ctx, s, "alice", 2, 6*time.Second)

	stats, err = s.Stats(ctx, "alice")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.CorrectAnswers != 2 || stats.AvgResponseTimeMS != 5000 || stats.CurrentDay != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if _, err := s.Stats(ctx, "ghost"); !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestStore_UpsertPuzzlesReplaces(t *testing.T) {
	ctx, s := setupStore(t)

	first := []*campaign.Puzzle{
		{Day: 1, Question: "q1", Answer: "a1", Hints: []string{"h1", "h2"}, Category: "c", Difficulty: 1},
		{Day: 2, Question: "q2", Answer: "a2"},
	}
	if err := s.UpsertPuzzles(ctx, first); err != nil {
		t.Fatalf("UpsertPuzzles: %v", err)
	}
	replacement := []*campaign.Puzzle{{Day: 1, Question: "q1b", Answer: "a1b", Hints: []string{"only"}}}
	if err := s.UpsertPuzzles(ctx, replacement); err != nil {
		t.Fatalf("UpsertPuzzles replace: %v", err)
	}

	puzzles, err := s.ListPuzzles(ctx)
	if err != nil {
		t.Fatalf("ListPuzzles: %v", err)
	}
	if len(puzzles) != 2 {
		t.Fatalf("expected 2 puzzles, got %d", len(puzzles))
	}
	p1 := puzzles[0]
	if p1.Day != 1 || p1.Question != "q1b" || p1.Answer != "a1b" || len(p1.Hints) != 1 || p1.Hints[0] != "only" {
		t.Fatalf("puzzle 1 was not replaced: %+v", p1)
	}
	if puzzles[1].Day != 2 || len(puzzles[1].Hints) != 0 {
		t.Fatalf("unexpected puzzle 2: %+v", puzzles[1])
	}
}
