package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
database:
  driver: sqlite
  path: ":memory:"
telegram:
  token: ${ADVENT_TEST_TOKEN}
ethereum:
  rpc_url: https://sepolia.base.org
  private_key: ${ADVENT_TEST_KEY}
`

func TestParse_DefaultsAndEnvExpansion(t *testing.T) {
	t.Setenv("ADVENT_TEST_TOKEN", "123:abc")
	t.Setenv("ADVENT_TEST_KEY", "deadbeef")

	cfg, err := Parse([]byte(minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, "deadbeef", cfg.Ethereum.PrivateKey)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(84532), cfg.Ethereum.ChainID)
	assert.Equal(t, "0x036CbD53842c5426634e7929541eC2318f3dCF7e", cfg.Ethereum.USDCContract)
	assert.Equal(t, int32(6), cfg.Ethereum.USDCDecimals)
	assert.Equal(t, 500, cfg.Reward.SlippageBps)
	assert.Equal(t, int64(2), cfg.Reward.BonusMultiplier)
	assert.Equal(t, 6, cfg.Scheduler.Hour)
	assert.Equal(t, 0, cfg.Scheduler.Minute)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.True(t, cfg.Monitoring.Enabled)

	assert.Equal(t, "0.01", cfg.Campaign.EntryFeeAmount().String())
	assert.Equal(t, "0.001", cfg.Reward.SafeRewardAmount().String())
	assert.Equal(t, time.UTC, cfg.Scheduler.Location())
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("ADVENT_TEST_TOKEN", "t")
	t.Setenv("ADVENT_TEST_KEY", "k")

	doc := minimalConfig + `
scheduler:
  hour: 9
  minute: 30
  timezone: Europe/Berlin
monitoring:
  enabled: false
reward:
  safe_amount: "0.5"
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Scheduler.Hour)
	assert.Equal(t, 30, cfg.Scheduler.Minute)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, "0.5", cfg.Reward.SafeRewardAmount().String())
}

func TestParse_Invalid(t *testing.T) {
	t.Setenv("ADVENT_TEST_TOKEN", "t")
	t.Setenv("ADVENT_TEST_KEY", "k")

	cases := map[string]string{
		"bad hour":     "scheduler:\n  hour: 24\n",
		"bad slippage": "reward:\n  slippage_bps: 20000\n",
		"zero reward":  "reward:\n  safe_amount: \"0\"\n",
		"bad timezone": "scheduler:\n  timezone: Mars/Olympus\n",
		"bad workers":  "agent:\n  workers: 0\n",
	}
	for name, override := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(minimalConfig + override))
			assert.Error(t, err)
		})
	}
}

func TestParse_InvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"bad driver": `
database:
  driver: mysql
telegram:
  token: t
ethereum:
  rpc_url: https://sepolia.base.org
  private_key: k
`,
		"bad usdc address": `
database:
  driver: sqlite
telegram:
  token: t
ethereum:
  rpc_url: https://sepolia.base.org
  private_key: k
  usdc_contract: nope
`,
		"missing token": `
database:
  driver: sqlite
ethereum:
  rpc_url: https://sepolia.base.org
  private_key: k
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_PostgresRequiresUser(t *testing.T) {
	doc := `
database:
  driver: postgres
telegram:
  token: t
ethereum:
  rpc_url: https://sepolia.base.org
  private_key: k
`
	_, err := Parse([]byte(doc))
	assert.ErrorContains(t, err, "database.user")
}

func TestLoad_ReadsFile(t *testing.T) {
	t.Setenv("ADVENT_TEST_TOKEN", "t")
	t.Setenv("ADVENT_TEST_KEY", "k")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "t", cfg.Telegram.Token)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = NewLogger(LoggingConfig{Level: "loud", Format: "console"})
	assert.Error(t, err)
}
