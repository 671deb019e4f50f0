// Package migrations holds the schema helpers shared by the campaign
// migrations and the migrate command.
package migrations

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const usageText = `Usage:
  advent-migrate [-config file] <command>

Commands:
  init     create the bun migration bookkeeping tables
  up       apply every pending migration group
  down     roll back the most recent migration group
  reset    roll back every applied group (wipes campaign data)
  status   list migrations and whether they are applied

Examples:
  go run ./cmd/advent-agent/migrate -config config.yaml init
  go run ./cmd/advent-agent/migrate -config config.yaml up
  go run ./cmd/advent-agent/migrate -config config.yaml status
`

// Usage prints the command help and exits with status 2.
func Usage() {
	fmt.Fprint(os.Stderr, usageText)
	flag.PrintDefaults()
	os.Exit(2)
}

// Exitf prints the message followed by the usage text and exits.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	Usage()
}

// CreateSchema creates the table behind each model if it does not exist.
func CreateSchema(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		table := tableName(db, model)
		log.Printf("creating table %s", table)
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}
	return nil
}

// DropTables drops the table behind each model. Dialects without DROP ...
// CASCADE support ignore the cascade flag.
func DropTables(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		table := tableName(db, model)
		log.Printf("dropping table %s", table)
		if _, err := db.NewDropTable().Model(model).IfExists().Cascade().Exec(ctx); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	return nil
}

// TruncateTables deletes every row of each model's table, keeping the table.
func TruncateTables(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		if _, err := db.NewDelete().Model(model).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clear table %s: %w", tableName(db, model), err)
		}
	}
	return nil
}

// CreateModelIndexes adds a single-column index named idx_<table>_<column>
// for each column.
func CreateModelIndexes(ctx context.Context, db bun.IDB, model any, columns ...string) error {
	for _, column := range columns {
		name, err := modelIndexName(db, model, column)
		if err != nil {
			return err
		}
		q := db.NewCreateIndex().Model(model).Index(name).Column(column).IfNotExists()
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	return nil
}

// DropModelIndexes removes indexes created by CreateModelIndexes.
func DropModelIndexes(ctx context.Context, db bun.IDB, model any, columns ...string) error {
	for _, column := range columns {
		name, err := modelIndexName(db, model, column)
		if err != nil {
			return err
		}
		if _, err := db.NewDropIndex().Model(model).Index(name).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop index %s: %w", name, err)
		}
	}
	return nil
}

func tableName(db bun.IDB, model any) string {
	if model == nil {
		return ""
	}
	return strings.ReplaceAll(db.NewCreateIndex().Model(model).GetTableName(), `"`, "")
}

func modelIndexName(db bun.IDB, model any, column string) (string, error) {
	if model == nil {
		return "", fmt.Errorf("model cannot be nil")
	}
	table := tableName(db, model)
	if table == "" {
		return "", fmt.Errorf("no table name for model %T", model)
	}
	return "idx_" + strings.ReplaceAll(table, ".", "_") + "_" + column, nil
}

type command func(ctx context.Context, m *migrate.Migrator) error

var commands = map[string]command{
	"init":   initCommand,
	"up":     locked(upCommand),
	"down":   locked(downCommand),
	"reset":  locked(resetCommand),
	"status": statusCommand,
}

// Commands returns the supported command names in sorted order.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunMigrations dispatches args[0] to the matching migrate command.
func RunMigrations(ctx context.Context, migrator *migrate.Migrator, args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command provided (want one of %s)", strings.Join(Commands(), ", "))
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return cmd(ctx, migrator)
}

// locked holds the bun migration lock for the duration of cmd.
func locked(cmd command) command {
	return func(ctx context.Context, m *migrate.Migrator) (err error) {
		if err := m.Lock(ctx); err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		defer func() {
			if uerr := m.Unlock(ctx); uerr != nil && err == nil {
				err = fmt.Errorf("release migration lock: %w", uerr)
			}
		}()
		return cmd(ctx, m)
	}
}

func initCommand(ctx context.Context, m *migrate.Migrator) error {
	if err := m.Init(ctx); err != nil {
		return err
	}
	log.Println("migration tables ready")
	return nil
}

func upCommand(ctx context.Context, m *migrate.Migrator) error {
	group, err := m.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Println("schema is up to date")
		return nil
	}
	log.Printf("applied %s", group)
	return nil
}

func downCommand(ctx context.Context, m *migrate.Migrator) error {
	group, err := m.Rollback(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Println("nothing to roll back")
		return nil
	}
	log.Printf("rolled back %s", group)
	return nil
}

func resetCommand(ctx context.Context, m *migrate.Migrator) error {
	groups := 0
	for {
		group, err := m.Rollback(ctx)
		if err != nil {
			return err
		}
		if group.IsZero() {
			break
		}
		groups++
		log.Printf("rolled back %s", group)
	}
	log.Printf("reset complete (%d groups)", groups)
	return nil
}

func statusCommand(ctx context.Context, m *migrate.Migrator) error {
	ms, err := m.MigrationsWithStatus(ctx)
	if err != nil {
		return err
	}
	for _, mig := range ms {
		state := "pending"
		if mig.IsApplied() {
			state = fmt.Sprintf("applied (group %d)", mig.GroupID)
		}
		log.Printf("%-40s %s", mig.Name, state)
	}
	log.Printf("%d pending, last group %s", len(ms.Unapplied()), ms.LastGroup())
	return nil
}
