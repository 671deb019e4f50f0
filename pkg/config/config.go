package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Admin      AdminConfig      `yaml:"admin"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Ethereum   EthereumConfig   `yaml:"ethereum"`
	Campaign   CampaignConfig   `yaml:"campaign"`
	Reward     RewardConfig     `yaml:"reward"`
	Market     MarketConfig     `yaml:"market"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Agent      AgentConfig      `yaml:"agent"`
}

// ServerConfig contains ops HTTP server settings
type ServerConfig struct {
	Host              string        `yaml:"host" default:"0.0.0.0"`
	Port              int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout       time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout      time.Duration `yaml:"write_timeout" default:"15s"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" default:"30s"`
	MiddlewareTimeout time.Duration `yaml:"middleware_timeout" default:"60s"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Driver   string `yaml:"driver" default:"postgres" validate:"oneof=postgres sqlite"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"advent"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
	// Path is the SQLite data source, e.g. "file:advent.db" or ":memory:".
	Path string `yaml:"path" default:"file:advent.db"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// MonitoringConfig contains metrics settings
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

// AdminConfig protects the admin API
type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer" default:"advent-agent"`
}

// TelegramConfig contains transport settings
type TelegramConfig struct {
	Token       string `yaml:"token" validate:"required"`
	PollTimeout int    `yaml:"poll_timeout" default:"30" validate:"min=1"`
	Debug       bool   `yaml:"debug"`
}

// EthereumConfig contains chain and custodial wallet settings
type EthereumConfig struct {
	RPCURL       string `yaml:"rpc_url" validate:"required,url"`
	ChainID      int64  `yaml:"chain_id" default:"84532" validate:"min=1"`
	Network      string `yaml:"network" default:"base-sepolia"`
	PrivateKey   string `yaml:"private_key" validate:"required"`
	USDCContract string `yaml:"usdc_contract" default:"0x036CbD53842c5426634e7929541eC2318f3dCF7e" validate:"eth_addr"`
	USDCDecimals int32  `yaml:"usdc_decimals" default:"6" validate:"min=0,max=36"`
	SwapRouter   string `yaml:"swap_router" default:"0x94cC0AaC535CCDB3C01d6787D6413C739ae12bc4" validate:"eth_addr"`
	SwapQuoter   string `yaml:"swap_quoter" default:"0xC5290058841028F1614F3A6F0F5816cAd0df5E27" validate:"eth_addr"`
	PoolFee      uint32 `yaml:"pool_fee" default:"3000" validate:"oneof=100 500 3000 10000"`
	GasLimit     uint64 `yaml:"gas_limit" default:"300000"`
	MaxGasPrice  string `yaml:"max_gas_price" validate:"omitempty,numeric"`
	// ReceiptTimeout bounds how long a payout waits to be mined.
	ReceiptTimeout  time.Duration `yaml:"receipt_timeout" default:"2m"`
	PollingInterval time.Duration `yaml:"polling_interval" default:"2s"`
}

// CampaignConfig contains entry settings
type CampaignConfig struct {
	EntryFee       string `yaml:"entry_fee" default:"0.01" validate:"numeric"`
	VerifyPayments bool   `yaml:"verify_payments"`
	OnrampURL      string `yaml:"onramp_url" validate:"omitempty,url"`
	LeaderboardTop int    `yaml:"leaderboard_top" default:"5" validate:"min=1"`
}

// RewardConfig contains reward dispatch settings
type RewardConfig struct {
	SafeAmount      string `yaml:"safe_amount" default:"0.001" validate:"numeric"`
	RiskyAmount     string `yaml:"risky_amount" default:"0.001" validate:"numeric"`
	SlippageBps     int    `yaml:"slippage_bps" default:"500" validate:"min=0,max=10000"`
	BonusMultiplier int64  `yaml:"bonus_multiplier" default:"2" validate:"min=1"`
	TokenLimit      int    `yaml:"token_limit" default:"100" validate:"min=1,max=250"`
}

// MarketConfig contains market-data settings
type MarketConfig struct {
	URL       string        `yaml:"url" default:"https://api.coingecko.com/api/v3" validate:"url"`
	APIKey    string        `yaml:"api_key"`
	Category  string        `yaml:"category" default:"base-ecosystem"`
	Platform  string        `yaml:"platform" default:"base"`
	Timeout   time.Duration `yaml:"timeout" default:"10s"`
	CacheTTL  time.Duration `yaml:"cache_ttl" default:"15m"`
	RedisAddr string        `yaml:"redis_addr"`
}

// SchedulerConfig contains daily broadcast settings
type SchedulerConfig struct {
	Enabled     bool   `yaml:"enabled" default:"true"`
	Hour        int    `yaml:"hour" default:"6" validate:"min=0,max=23"`
	Minute      int    `yaml:"minute" default:"0" validate:"min=0,max=59"`
	Timezone    string `yaml:"timezone" default:"UTC"`
	Concurrency int    `yaml:"concurrency" default:"8" validate:"min=1"`
}

// AgentConfig contains inbound processing settings
type AgentConfig struct {
	Workers int `yaml:"workers" default:"16" validate:"min=1"`
}

// Load reads configuration from file. A .env file next to the working
// directory is loaded first and ${VAR} references in the file are expanded.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	raw, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(raw)
}

// Parse decodes a YAML document, applies defaults and validates the result.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	if cfg.Database.Driver == DriverPostgres && cfg.Database.User == "" {
		return fmt.Errorf("database.user is required for postgres")
	}
	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	for name, amount := range map[string]string{
		"campaign.entry_fee":  cfg.Campaign.EntryFee,
		"reward.safe_amount":  cfg.Reward.SafeAmount,
		"reward.risky_amount": cfg.Reward.RiskyAmount,
	} {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if !d.IsPositive() {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// EntryFeeAmount returns the entry fee as a decimal.
func (c *CampaignConfig) EntryFeeAmount() decimal.Decimal {
	return decimal.RequireFromString(c.EntryFee)
}

// SafeRewardAmount returns the safe-path reward as a decimal.
func (c *RewardConfig) SafeRewardAmount() decimal.Decimal {
	return decimal.RequireFromString(c.SafeAmount)
}

// RiskyRewardAmount returns the risky-path base reward as a decimal.
func (c *RewardConfig) RiskyRewardAmount() decimal.Decimal {
	return decimal.RequireFromString(c.RiskyAmount)
}

// Location returns the scheduler's time zone.
func (c *SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
