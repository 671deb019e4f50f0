package pgutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/chainsafe/advent-agent/pkg/config"
)

// SetupSQLiteDB returns an isolated in-memory SQLite database.
func SetupSQLiteDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := OpenSQLite(context.Background(), dsn, nil)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// RequireDocker skips the test when no Docker daemon socket is reachable.
func RequireDocker(t *testing.T) {
	t.Helper()

	candidates := []string{
		"/var/run/docker.sock",
		filepath.Join(os.Getenv("HOME"), ".docker/run/docker.sock"),
	}
	for _, sock := range candidates {
		if _, err := os.Stat(sock); err != nil {
			continue
		}
		conn, err := (&net.Dialer{}).DialContext(context.Background(), "unix", sock)
		if err == nil {
			_ = conn.Close()
			return
		}
	}

	t.Skip("docker daemon socket is not accessible; skipping testcontainer-backed tests")
}

const (
	testPGImage    = "postgres:15-alpine"
	testPGDatabase = "advent_test"
	testPGUser     = "advent"
	testPGPassword = "advent"
)

// SetupTestDB starts a throwaway PostgreSQL container and connects to it.
// The returned func closes the pool and removes the container.
func SetupTestDB(t *testing.T) (*bun.DB, func()) {
	t.Helper()
	RequireDocker(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx, testPGImage,
		postgres.WithDatabase(testPGDatabase),
		postgres.WithUsername(testPGUser),
		postgres.WithPassword(testPGPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	terminate := func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	}

	cfg, err := containerConfig(ctx, container)
	if err != nil {
		terminate()
		t.Fatalf("resolve postgres container address: %v", err)
	}

	db, err := connectWithRetry(ctx, cfg, 10)
	if err != nil {
		terminate()
		t.Fatalf("connect to test database: %v", err)
	}

	return db, func() {
		_ = db.Close()
		terminate()
	}
}

func containerConfig(ctx context.Context, c *postgres.PostgresContainer) (*config.DatabaseConfig, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		return nil, err
	}
	return &config.DatabaseConfig{
		Driver:   config.DriverPostgres,
		Host:     host,
		Port:     port.Int(),
		User:     testPGUser,
		Password: testPGPassword,
		Database: testPGDatabase,
		SSLMode:  "disable",
	}, nil
}

// connectWithRetry backs off exponentially from 100ms between attempts.
func connectWithRetry(ctx context.Context, cfg *config.DatabaseConfig, attempts int) (*bun.DB, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		db, err := ConnectDB(ctx, cfg, nil)
		if err == nil {
			return db, nil
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond << uint(i))
	}
	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// catalogCount counts schema objects of the given kind ("table" or "index")
// with the given name.
func catalogCount(t *testing.T, db *bun.DB, kind, name string) int {
	t.Helper()
	ctx := context.Background()

	var q *bun.RawQuery
	switch {
	case db.Dialect().Name() == dialect.SQLite:
		q = db.NewRaw("SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?", kind, name)
	case kind == "index":
		q = db.NewRaw("SELECT COUNT(*) FROM pg_indexes WHERE schemaname = 'public' AND indexname = ?", name)
	default:
		q = db.NewRaw("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = ?", name)
	}

	var n int
	if err := q.Scan(ctx, &n); err != nil {
		t.Fatalf("look up %s %s: %v", kind, name, err)
	}
	return n
}

// AssertTableExists fails the test when tableName is missing.
func AssertTableExists(t *testing.T, db *bun.DB, tableName string) {
	t.Helper()
	if catalogCount(t, db, "table", tableName) == 0 {
		t.Errorf("table %s does not exist", tableName)
	}
}

// AssertTableNotExists fails the test when tableName is present.
func AssertTableNotExists(t *testing.T, db *bun.DB, tableName string) {
	t.Helper()
	if catalogCount(t, db, "table", tableName) != 0 {
		t.Errorf("table %s should not exist but it does", tableName)
	}
}

// AssertIndexExists fails the test when indexName is missing.
func AssertIndexExists(t *testing.T, db *bun.DB, indexName string) {
	t.Helper()
	if catalogCount(t, db, "index", indexName) == 0 {
		t.Errorf("index %s does not exist", indexName)
	}
}

// AssertRowCount fails the test unless tableName holds exactly expected rows.
func AssertRowCount(t *testing.T, db *bun.DB, tableName string, expected int) {
	t.Helper()

	var count int
	err := db.NewSelect().TableExpr("?", bun.Ident(tableName)).ColumnExpr("COUNT(*)").Scan(context.Background(), &count)
	if err != nil {
		t.Fatalf("count rows in %s: %v", tableName, err)
	}
	if count != expected {
		t.Errorf("table %s: expected %d rows, got %d", tableName, expected, count)
	}
}
