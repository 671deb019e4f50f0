// Package market lists candidate tokens for the risky reward path from
// CoinGecko market data.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/advent-agent/internal/metrics"
	apperrors "github.com/chainsafe/advent-agent/pkg/app/errors"
	"github.com/chainsafe/advent-agent/pkg/auth"
	"github.com/chainsafe/advent-agent/pkg/campaign"
	"github.com/chainsafe/advent-agent/pkg/config"
)

const (
	apiKeyHeader = "x-cg-demo-api-key"
	maxBodyBytes = 8 << 20
)

// FallbackTokens are used when market data is unavailable.
var FallbackTokens = []campaign.Token{
	{Symbol: "DEGEN", Address: "0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed", Name: "Degen"},
	{Symbol: "TOSHI", Address: "0xa62d2f01f8e0361b15f9596d5fd339fd00c9f717", Name: "Toshi"},
	{Symbol: "BRETT", Address: "0x3363e87f0723d92685589a4d9a3195d47124dde0", Name: "Brett"},
}

// Cache stores token lists between lookups.
type Cache interface {
	Get(ctx context.Context, key string) ([]campaign.Token, bool, error)
	Set(ctx context.Context, key string, tokens []campaign.Token, ttl time.Duration) error
}

type marketCoin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

type listedCoin struct {
	ID        string            `json:"id"`
	Platforms map[string]string `json:"platforms"`
}

// Client queries CoinGecko.
type Client struct {
	cfg        *config.MarketConfig
	httpClient *http.Client
	cache      Cache
	logger     *zap.Logger
}

// NewClient creates a market client. cache may be nil.
func NewClient(cfg *config.MarketConfig, cache Cache, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		logger:     logger.With(zap.String("component", "market")),
	}
}

// ListCandidateTokens returns up to limit tokens of the configured category,
// ordered by market cap, that have a contract address on the configured
// platform. Symbols are upper-cased.
func (c *Client) ListCandidateTokens(ctx context.Context, limit int) ([]campaign.Token, error) {
	key := fmt.Sprintf("market:%s:%s:%d", c.cfg.Category, c.cfg.Platform, limit)
	if c.cache != nil {
		tokens, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("Token cache read failed", zap.Error(err))
		} else if ok {
			metrics.MarketRequests.WithLabelValues("cache").Inc()
			return tokens, nil
		}
	}

	tokens, err := c.fetch(ctx, limit)
	if err != nil {
		metrics.MarketRequests.WithLabelValues("error").Inc()
		return nil, apperrors.DependencyFailureError(err, "market data unavailable")
	}
	metrics.MarketRequests.WithLabelValues("api").Inc()
	c.logger.Info("Fetched candidate tokens", zap.Int("count", len(tokens)))

	if c.cache != nil && len(tokens) > 0 {
		if err := c.cache.Set(ctx, key, tokens, c.cfg.CacheTTL); err != nil {
			c.logger.Warn("Token cache write failed", zap.Error(err))
		}
	}
	return tokens, nil
}

func (c *Client) fetch(ctx context.Context, limit int) ([]campaign.Token, error) {
	var coins []marketCoin
	q := url.Values{
		"vs_currency": {"usd"},
		"category":    {c.cfg.Category},
		"order":       {"market_cap_desc"},
		"per_page":    {strconv.Itoa(limit)},
		"page":        {"1"},
		"sparkline":   {"false"},
	}
	if err := c.get(ctx, "/coins/markets", q, &coins); err != nil {
		return nil, err
	}

	var listed []listedCoin
	if err := c.get(ctx, "/coins/list", url.Values{"include_platform": {"true"}}, &listed); err != nil {
		return nil, err
	}
	addresses := make(map[string]string, len(listed))
	for _, coin := range listed {
		if addr := coin.Platforms[c.cfg.Platform]; addr != "" {
			addresses[coin.ID] = addr
		}
	}

	tokens := make([]campaign.Token, 0, len(coins))
	for _, coin := range coins {
		addr := addresses[coin.ID]
		if !strings.HasPrefix(addr, "0x") || !auth.ValidateEVMAddress(addr) {
			continue
		}
		tokens = append(tokens, campaign.Token{
			Symbol:  strings.ToUpper(coin.Symbol),
			Address: addr,
			Name:    coin.Name,
		})
	}
	return tokens, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := strings.TrimSuffix(c.cfg.URL, "/") + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("coingecko %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
