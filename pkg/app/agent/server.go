// Package agent implements app.Runner for the campaign agent process.
package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	agentpkg "github.com/chainsafe/advent-agent/pkg/agent"
	apphttp "github.com/chainsafe/advent-agent/pkg/app/http"
	"github.com/chainsafe/advent-agent/pkg/auth"
	"github.com/chainsafe/advent-agent/pkg/campaignstore"
	"github.com/chainsafe/advent-agent/pkg/catalog"
	"github.com/chainsafe/advent-agent/pkg/clock"
	"github.com/chainsafe/advent-agent/pkg/config"
	"github.com/chainsafe/advent-agent/pkg/engine"
	"github.com/chainsafe/advent-agent/pkg/ethereum"
	"github.com/chainsafe/advent-agent/pkg/market"
	"github.com/chainsafe/advent-agent/pkg/migrations/campaigndb"
	"github.com/chainsafe/advent-agent/pkg/pgutil"
	"github.com/chainsafe/advent-agent/pkg/reward"
	"github.com/chainsafe/advent-agent/pkg/scheduler"
	"github.com/chainsafe/advent-agent/pkg/transport/telegram"
)

const rewardAsset = "USDC"

// Server holds the configuration of the agent process.
type Server struct {
	cfg *config.Config
}

// NewServer initializes a new agent Server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run wires the service graph and blocks until an OS shutdown signal is
// received or one of the long-running components fails.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting advent agent",
		zap.String("network", cfg.Ethereum.Network),
		zap.String("entry_fee", cfg.Campaign.EntryFee),
		zap.Bool("verify_payments", cfg.Campaign.VerifyPayments),
	)

	db, err := pgutil.Open(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := campaigndb.Apply(ctx, db); err != nil {
		return fmt.Errorf("migrate campaign db: %w", err)
	}

	store := campaignstore.NewStore(db)
	puzzles, err := loadCatalog(ctx, store)
	if err != nil {
		return err
	}
	logger.Info("Puzzle catalog loaded", zap.Int("days", puzzles.Days()))

	ethClient, err := ethereum.NewClient(&cfg.Ethereum, logger)
	if err != nil {
		return fmt.Errorf("create ethereum client: %w", err)
	}
	defer ethClient.Close()
	logger.Info("Custodial wallet ready", zap.String("address", ethClient.Address().Hex()))

	var verifier engine.PaymentVerifier
	if cfg.Campaign.VerifyPayments {
		v, err := ethereum.NewEntryFeeVerifier(ethClient, cfg.Campaign.EntryFeeAmount())
		if err != nil {
			return fmt.Errorf("create entry fee verifier: %w", err)
		}
		verifier = v
	}

	marketCache, closeCache, err := s.openMarketCache(ctx, logger)
	if err != nil {
		return err
	}
	defer closeCache()
	tokens := market.NewClient(&cfg.Market, marketCache, logger)

	clk := clock.Real{}
	dispatcher := reward.NewDispatcher(ethClient, tokens, store, clk, reward.Config{
		Asset:           rewardAsset,
		AssetToken:      cfg.Ethereum.USDCContract,
		SafeAmount:      cfg.Reward.SafeRewardAmount(),
		RiskyAmount:     cfg.Reward.RiskyRewardAmount(),
		SlippageBps:     cfg.Reward.SlippageBps,
		BonusMultiplier: cfg.Reward.BonusMultiplier,
		TokenLimit:      cfg.Reward.TokenLimit,
		Fallback:        market.FallbackTokens,
	}, logger)

	eng := engine.NewLog(engine.New(store, puzzles, dispatcher, verifier, clk, engine.Config{
		EntryFee:       cfg.Campaign.EntryFeeAmount(),
		Asset:          rewardAsset,
		AssetToken:     cfg.Ethereum.USDCContract,
		AssetDecimals:  cfg.Ethereum.USDCDecimals,
		Recipient:      ethClient.Address().Hex(),
		ChainID:        cfg.Ethereum.ChainID,
		Network:        cfg.Ethereum.Network,
		OnrampURL:      cfg.Campaign.OnrampURL,
		LeaderboardTop: cfg.Campaign.LeaderboardTop,
	}, logger), logger)

	tg, err := telegram.New(&cfg.Telegram, logger)
	if err != nil {
		return err
	}

	sched := scheduler.New(store, puzzles, tg, clk, scheduler.DailyTrigger{
		Hour:     cfg.Scheduler.Hour,
		Minute:   cfg.Scheduler.Minute,
		Location: cfg.Scheduler.Location(),
	}, cfg.Scheduler.Concurrency, logger)

	inbound := agentpkg.New(tg, eng, cfg.Agent.Workers, logger)

	router := NewRouter(RouterDeps{
		Store:      store,
		Sweeper:    sched,
		Ready:      inbound.Ready,
		Validator:  auth.NewJWTValidator(cfg.Admin.JWTSecret, cfg.Admin.Issuer),
		Metrics:    cfg.Monitoring.Enabled,
		ReqTimeout: cfg.Server.MiddlewareTimeout,
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(inbound.Run(gctx))
	})
	if cfg.Scheduler.Enabled {
		g.Go(func() error {
			return ignoreCanceled(sched.Run(gctx))
		})
	} else {
		logger.Info("Daily scheduler disabled")
	}
	g.Go(func() error {
		return apphttp.ServeAndWait(gctx, router, logger, &cfg.Server)
	})

	err = g.Wait()
	logger.Info("Advent agent stopped", zap.Error(err))
	return err
}

// loadCatalog reads the seeded puzzles from the store.
func loadCatalog(ctx context.Context, store campaignstore.PuzzleStore) (*catalog.Catalog, error) {
	rows, err := store.ListPuzzles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load puzzles: %w", err)
	}
	c, err := catalog.New(rows)
	if err != nil {
		return nil, fmt.Errorf("invalid puzzle catalog: %w", err)
	}
	return c, nil
}

// openMarketCache connects to Redis when configured. A nil cache disables
// market-data caching.
func (s *Server) openMarketCache(ctx context.Context, logger *zap.Logger) (market.Cache, func(), error) {
	addr := s.cfg.Market.RedisAddr
	if addr == "" {
		return nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	logger.Info("Market data cache enabled", zap.String("redis_addr", addr), zap.Duration("ttl", s.cfg.Market.CacheTTL))
	return market.NewRedisCache(client), func() { _ = client.Close() }, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
