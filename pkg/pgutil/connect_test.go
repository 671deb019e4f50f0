package pgutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/advent-agent/pkg/config"
)

func TestOpen_SQLite(t *testing.T) {
	db := SetupSQLiteDB(t)
	require.NoError(t, db.Ping())
	assert.Equal(t, 1, db.DB.Stats().MaxOpenConnections)
}

func TestOpen_Postgres(t *testing.T) {
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	var one int
	require.NoError(t, db.NewRaw("SELECT 1").Scan(context.Background(), &one))
	assert.Equal(t, 1, one)
}

func TestOpen_UnreachableHost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Open(ctx, &config.DatabaseConfig{
		Driver:   config.DriverPostgres,
		Host:     "invalid-host-that-does-not-exist",
		Port:     5432,
		User:     "advent",
		Password: "advent",
		Database: "advent",
		SSLMode:  "disable",
	}, nil)
	if err == nil {
		_ = db.Close()
		t.Fatal("Open() should fail for an unreachable host")
	}
	assert.Contains(t, err.Error(), "advent")
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: "mysql"}, nil)
	assert.ErrorContains(t, err, `unsupported database driver "mysql"`)
}
