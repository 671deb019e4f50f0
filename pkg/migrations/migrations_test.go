package migrations

import (
	"context"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/chainsafe/advent-agent/pkg/migrations/campaigndb"
	mghelper "github.com/chainsafe/advent-agent/pkg/pgutil"
	pgmigrations "github.com/chainsafe/advent-agent/pkg/pgutil/migrations"
)

var expectedTables = []string{
	"participants",
	"puzzles",
	"puzzle_sends",
	"answer_submissions",
	"hint_usage",
	"transactions",
	"bun_migrations",
}

func applyAll(t *testing.T, db *bun.DB) *migrate.Migrator {
	t.Helper()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, campaigndb.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if group.IsZero() {
		t.Error("Expected migrations to run, but none were applied")
	}
	return migrator
}

func TestCampaignDBMigrations_ApplySQLite(t *testing.T) {
	db := mghelper.SetupSQLiteDB(t)
	applyAll(t, db)

	for _, table := range expectedTables {
		mghelper.AssertTableExists(t, db, table)
	}

	mghelper.AssertIndexExists(t, db, "idx_participants_paid")
	mghelper.AssertIndexExists(t, db, "idx_puzzle_sends_day")
	mghelper.AssertIndexExists(t, db, "idx_answer_submissions_is_correct")
	mghelper.AssertIndexExists(t, db, "idx_transactions_status")

	// seed migration
	mghelper.AssertRowCount(t, db, "puzzles", 12)
}

func TestCampaignDBMigrations_ApplyPostgres(t *testing.T) {
	db, cleanup := mghelper.SetupTestDB(t)
	defer cleanup()

	applyAll(t, db)

	for _, table := range expectedTables {
		mghelper.AssertTableExists(t, db, table)
	}
	mghelper.AssertIndexExists(t, db, "idx_participants_paid")
	mghelper.AssertRowCount(t, db, "puzzles", 12)
}

func TestMigrations_Idempotency(t *testing.T) {
	db := mghelper.SetupSQLiteDB(t)
	ctx := context.Background()
	migrator := applyAll(t, db)

	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Second Migrate() failed: %v", err)
	}
	if !group.IsZero() {
		t.Errorf("Expected no migrations on second run, got %s", group)
	}
	mghelper.AssertRowCount(t, db, "puzzles", 12)
}

func TestMigrations_Rollback(t *testing.T) {
	db := mghelper.SetupSQLiteDB(t)
	ctx := context.Background()
	migrator := applyAll(t, db)

	group, err := migrator.Rollback(ctx)
	if err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}
	if group.IsZero() {
		t.Error("Expected a migration group to be rolled back")
	}

	for _, table := range expectedTables[:6] {
		mghelper.AssertTableNotExists(t, db, table)
	}
}

func TestApply(t *testing.T) {
	db := mghelper.SetupSQLiteDB(t)
	if err := campaigndb.Apply(context.Background(), db); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	mghelper.AssertRowCount(t, db, "puzzles", 12)
}

func TestRunMigrations_Commands(t *testing.T) {
	db := mghelper.SetupSQLiteDB(t)
	ctx := context.Background()
	migrator := migrate.NewMigrator(db, campaigndb.Migrations)

	for _, cmd := range []string{"init", "up", "status"} {
		if err := pgmigrations.RunMigrations(ctx, migrator, cmd); err != nil {
			t.Fatalf("RunMigrations(%s) failed: %v", cmd, err)
		}
	}
	mghelper.AssertRowCount(t, db, "puzzles", 12)

	// A second up is a no-op.
	if err := pgmigrations.RunMigrations(ctx, migrator, "up"); err != nil {
		t.Fatalf("RunMigrations(up) failed: %v", err)
	}

	if err := pgmigrations.RunMigrations(ctx, migrator, "reset"); err != nil {
		t.Fatalf("RunMigrations(reset) failed: %v", err)
	}
	for _, table := range expectedTables[:6] {
		mghelper.AssertTableNotExists(t, db, table)
	}
}

func TestRunMigrations_BadInput(t *testing.T) {
	db := mghelper.SetupSQLiteDB(t)
	migrator := migrate.NewMigrator(db, campaigndb.Migrations)

	if err := pgmigrations.RunMigrations(context.Background(), migrator); err == nil {
		t.Error("expected an error without a command")
	}
	if err := pgmigrations.RunMigrations(context.Background(), migrator, "sideways"); err == nil {
		t.Error("expected an error for an unknown command")
	}
}
