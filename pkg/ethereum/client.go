package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/chainsafe/advent-agent/pkg/config"
	"github.com/chainsafe/advent-agent/pkg/ethereum/contracts"
)

// Backend is the RPC surface the client needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ErrReverted is returned when a mined transaction has a failed status.
var ErrReverted = errors.New("transaction reverted")

// Client represents the agent's custodial wallet on an EVM chain
type Client struct {
	config     *config.EthereumConfig
	backend    Backend
	closer     func()
	privateKey *ecdsa.PrivateKey
	address    common.Address
	logger     *zap.Logger

	router *contracts.SwapRouter
	quoter *contracts.Quoter

	// txMu serialises nonce allocation and submission
	txMu     sync.Mutex
	decimals sync.Map // common.Address -> int32
}

// NewClient dials the RPC endpoint and loads the custodial key
func NewClient(cfg *config.EthereumConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}

	c, err := NewClientWithBackend(client, cfg, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	c.closer = client.Close

	logger.Info("Connected to Ethereum",
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("agent_address", c.address.Hex()))
	return c, nil
}

// NewClientWithBackend creates a client over an existing backend
func NewClientWithBackend(backend Backend, cfg *config.EthereumConfig, logger *zap.Logger) (*Client, error) {
	privateKey, err := crypto.HexToECDSA(trimHexPrefix(cfg.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	c := &Client{
		config:     cfg,
		backend:    backend,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		logger:     logger.With(zap.String("component", "ethereum")),
		router:     contracts.NewSwapRouter(common.HexToAddress(cfg.SwapRouter), backend),
		quoter:     contracts.NewQuoter(common.HexToAddress(cfg.SwapQuoter), backend),
	}
	c.decimals.Store(common.HexToAddress(cfg.USDCContract), cfg.USDCDecimals)
	return c, nil
}

// Close closes the RPC connection
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Address returns the custodial wallet address
func (c *Client) Address() common.Address {
	return c.address
}

// GetTransactor returns a transaction signer. Callers must hold txMu.
func (c *Client) GetTransactor(ctx context.Context) (*bind.TransactOpts, error) {
	chainID := big.NewInt(c.config.ChainID)

	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx

	nonce, err := c.backend.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	auth.Nonce = new(big.Int).SetUint64(nonce)
	auth.GasLimit = c.config.GasLimit

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	auth.GasPrice = gasPrice

	// Cap gas price if configured
	if c.config.MaxGasPrice != "" {
		maxGasPrice, ok := new(big.Int).SetString(c.config.MaxGasPrice, 10)
		if ok && gasPrice.Cmp(maxGasPrice) > 0 {
			c.logger.Warn("Suggested gas price exceeds maximum",
				zap.String("suggested", gasPrice.String()),
				zap.String("max", maxGasPrice.String()))
			auth.GasPrice = maxGasPrice
		}
	}

	return auth, nil
}

// WaitMined polls for the receipt of txHash until it is mined, the
// configured receipt timeout passes or ctx is cancelled.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.config.PollingInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%w: %s", ErrReverted, txHash.Hex())
			}
			return receipt, nil
		case errors.Is(err, geth.NotFound):
		default:
			c.logger.Warn("Failed to fetch receipt", zap.String("tx_hash", txHash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			// unwrapped: a transaction that may still land is not retryable
			return nil, fmt.Errorf("timed out waiting for %s: %v", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetLatestBlockNumber gets the latest block number
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	header, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
