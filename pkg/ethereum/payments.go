package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainsafe/advent-agent/internal/metrics"
	apperrors "github.com/chainsafe/advent-agent/pkg/app/errors"
	"github.com/chainsafe/advent-agent/pkg/auth"
	"github.com/chainsafe/advent-agent/pkg/ethereum/contracts"
)

// Transfer sends amount whole units of token to the recipient and waits for
// the transfer to be mined. It returns the transaction hash.
func (c *Client) Transfer(ctx context.Context, token, to string, amount decimal.Decimal) (string, error) {
	tokenAddr, recipient, err := parseAddresses(token, to)
	if err != nil {
		return "", err
	}
	erc20 := contracts.NewERC20(tokenAddr, c.backend)

	units, err := c.baseUnits(ctx, erc20, amount)
	if err != nil {
		return "", err
	}

	c.logger.Info("Submitting transfer",
		zap.String("token", tokenAddr.Hex()),
		zap.String("recipient", recipient.Hex()),
		zap.String("amount", amount.String()))

	tx, err := c.submit(ctx, "transfer", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return erc20.Transfer(opts, recipient, units)
	})
	if err != nil {
		return "", err
	}

	if _, err := c.WaitMined(ctx, tx.Hash()); err != nil {
		return tx.Hash().Hex(), err
	}
	c.logger.Info("Transfer mined", zap.String("tx_hash", tx.Hash().Hex()))
	return tx.Hash().Hex(), nil
}

// Swap exchanges amount whole units of from into to, delivering the output
// to recipient. The minimum output is the quoter's estimate reduced by
// slippageBps. It returns the swap transaction hash.
func (c *Client) Swap(
	ctx context.Context,
	from, to string,
	amount decimal.Decimal,
	slippageBps int,
	recipient string,
) (string, error) {
	fromAddr, toAddr, err := parseAddresses(from, to)
	if err != nil {
		return "", err
	}
	if !auth.ValidateEVMAddress(recipient) {
		return "", apperrors.BadRequestError(nil, "invalid recipient "+recipient)
	}
	recipientAddr := common.HexToAddress(recipient)

	tokenIn := contracts.NewERC20(fromAddr, c.backend)
	amountIn, err := c.baseUnits(ctx, tokenIn, amount)
	if err != nil {
		return "", err
	}
	fee := new(big.Int).SetUint64(uint64(c.config.PoolFee))

	quote, err := c.quoter.QuoteExactInputSingle(&bind.CallOpts{Context: ctx}, contracts.QuoteExactInputSingleParams{
		TokenIn:           fromAddr,
		TokenOut:          toAddr,
		AmountIn:          amountIn,
		Fee:               fee,
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return "", apperrors.DependencyFailureError(err, "failed to quote swap")
	}
	minOut := applySlippage(quote, slippageBps)

	if err := c.ensureAllowance(ctx, tokenIn, c.router.Address(), amountIn); err != nil {
		return "", err
	}

	c.logger.Info("Submitting swap",
		zap.String("token_in", fromAddr.Hex()),
		zap.String("token_out", toAddr.Hex()),
		zap.String("amount_in", amountIn.String()),
		zap.String("min_out", minOut.String()),
		zap.String("recipient", recipientAddr.Hex()))

	tx, err := c.submit(ctx, "swap", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.router.ExactInputSingle(opts, contracts.ExactInputSingleParams{
			TokenIn:           fromAddr,
			TokenOut:          toAddr,
			Fee:               fee,
			Recipient:         recipientAddr,
			AmountIn:          amountIn,
			AmountOutMinimum:  minOut,
			SqrtPriceLimitX96: big.NewInt(0),
		})
	})
	if err != nil {
		return "", err
	}

	if _, err := c.WaitMined(ctx, tx.Hash()); err != nil {
		return tx.Hash().Hex(), err
	}
	c.logger.Info("Swap mined", zap.String("tx_hash", tx.Hash().Hex()))
	return tx.Hash().Hex(), nil
}

// ReadBalance returns owner's balance of token in base units.
func (c *Client) ReadBalance(ctx context.Context, token, owner string) (*big.Int, error) {
	tokenAddr, ownerAddr, err := parseAddresses(token, owner)
	if err != nil {
		return nil, err
	}
	balance, err := contracts.NewERC20(tokenAddr, c.backend).BalanceOf(&bind.CallOpts{Context: ctx}, ownerAddr)
	if err != nil {
		return nil, apperrors.DependencyFailureError(err, "failed to read balance")
	}
	return balance, nil
}

func (c *Client) ensureAllowance(ctx context.Context, token *contracts.ERC20, spender common.Address, amount *big.Int) error {
	allowance, err := token.Allowance(&bind.CallOpts{Context: ctx}, c.address, spender)
	if err != nil {
		return apperrors.DependencyFailureError(err, "failed to read allowance")
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}

	tx, err := c.submit(ctx, "approve", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return token.Approve(opts, spender, amount)
	})
	if err != nil {
		return err
	}
	if _, err := c.WaitMined(ctx, tx.Hash()); err != nil {
		return fmt.Errorf("approval failed: %w", err)
	}
	return nil
}

// submit signs and broadcasts one transaction under the nonce lock.
func (c *Client) submit(
	ctx context.Context,
	operation string,
	send func(opts *bind.TransactOpts) (*types.Transaction, error),
) (*types.Transaction, error) {
	c.txMu.Lock()
	defer c.txMu.Unlock()

	opts, err := c.GetTransactor(ctx)
	if err != nil {
		return nil, apperrors.DependencyFailureError(err, "failed to prepare transaction")
	}
	tx, err := send(opts)
	if err != nil {
		return nil, apperrors.DependencyFailureError(err, "failed to submit "+operation)
	}
	metrics.GasUsed.WithLabelValues(operation).Observe(float64(tx.Gas()))
	c.logger.Debug("Transaction submitted",
		zap.String("operation", operation),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("nonce", tx.Nonce()))
	return tx, nil
}

func (c *Client) baseUnits(ctx context.Context, token *contracts.ERC20, amount decimal.Decimal) (*big.Int, error) {
	decimals, err := c.tokenDecimals(ctx, token)
	if err != nil {
		return nil, err
	}
	units, err := ToBaseUnits(amount, decimals)
	if err != nil {
		return nil, apperrors.BadRequestError(err, "invalid amount")
	}
	return units, nil
}

func (c *Client) tokenDecimals(ctx context.Context, token *contracts.ERC20) (int32, error) {
	if d, ok := c.decimals.Load(token.Address()); ok {
		return d.(int32), nil
	}
	d, err := token.Decimals(&bind.CallOpts{Context: ctx})
	if err != nil {
		return 0, apperrors.DependencyFailureError(err, "failed to read token decimals")
	}
	c.decimals.Store(token.Address(), int32(d))
	return int32(d), nil
}

func parseAddresses(a, b string) (common.Address, common.Address, error) {
	for _, addr := range []string{a, b} {
		if !auth.ValidateEVMAddress(addr) {
			return common.Address{}, common.Address{}, apperrors.BadRequestError(nil, "invalid address "+addr)
		}
	}
	return common.HexToAddress(a), common.HexToAddress(b), nil
}
