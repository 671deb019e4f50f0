package campaignstore

import (
	"context"
	"testing"
	"time"

	"github.com/chainsafe/advent-agent/pkg/campaign"
	"github.com/chainsafe/advent-agent/pkg/pgutil"
	mghelper "github.com/chainsafe/advent-agent/pkg/pgutil/migrations"
)

func setupPostgresStore(t *testing.T) (context.Context, *bunStore) {
	t.Helper()

	ctx := context.Background()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	if err := mghelper.CreateSchema(ctx, db, allModels...); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return ctx, NewStore(db)
}

func TestPostgresStore_Progression(t *testing.T) {
	ctx, s := setupPostgresStore(t)

	paidParticipant(t, ctx, s, "alice")
	paidParticipant(t, ctx, s, "bob")

	won, err := s.ClaimPuzzleSend(ctx, "alice", 1, base)
	if err != nil || !won {
		t.Fatalf("ClaimPuzzleSend = %v, %v", won, err)
	}
	won, err = s.ClaimPuzzleSend(ctx, "alice", 1, base)
	if err != nil || won {
		t.Fatalf("second ClaimPuzzleSend = %v, %v; want false, nil", won, err)
	}

	sub := campaign.NewAnswerSubmission("alice", 1, "Paris", base, base.Add(8*time.Second), true, 0)
	advanced, err := s.RecordCorrectAnswer(ctx, sub)
	if err != nil || !advanced {
		t.Fatalf("RecordCorrectAnswer = %v, %v", advanced, err)
	}
	advanced, err = s.RecordCorrectAnswer(ctx, sub)
	if err != nil || advanced {
		t.Fatalf("duplicate RecordCorrectAnswer = %v, %v; want false, nil", advanced, err)
	}

	for i := 1; i <= 4; i++ {
		_, granted, err := s.ConsumeHint(ctx, "bob", 1, 3, base)
		if err != nil {
			t.Fatalf("ConsumeHint: %v", err)
		}
		if granted != (i <= 3) {
			t.Fatalf("ConsumeHint #%d granted=%v", i, granted)
		}
	}

	entries, err := s.Leaderboard(ctx, 5)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].Address != "alice" || entries[0].AvgResponseTimeMS != 8000 {
		t.Fatalf("unexpected leaderboard: %+v", entries)
	}
}
