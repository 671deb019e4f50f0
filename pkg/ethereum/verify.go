package ethereum

import (
	"context"
	"errors"
	"math/big"
	"regexp"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/advent-agent/pkg/app/errors"
	"github.com/chainsafe/advent-agent/pkg/ethereum/contracts"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// EntryFeeVerifier checks that a payment reference is a mined transaction
// moving at least the entry fee of the payment asset into the agent wallet.
type EntryFeeVerifier struct {
	client *Client
	token  common.Address
	fee    *big.Int
}

// NewEntryFeeVerifier creates a verifier for fee whole units of the
// configured payment asset.
func NewEntryFeeVerifier(client *Client, fee decimal.Decimal) (*EntryFeeVerifier, error) {
	units, err := ToBaseUnits(fee, client.config.USDCDecimals)
	if err != nil {
		return nil, err
	}
	return &EntryFeeVerifier{
		client: client,
		token:  common.HexToAddress(client.config.USDCContract),
		fee:    units,
	}, nil
}

// VerifyEntryFee returns the paying address for reference.
func (v *EntryFeeVerifier) VerifyEntryFee(ctx context.Context, reference string) (string, error) {
	if !txHashPattern.MatchString(reference) {
		return "", apperrors.BadRequestError(nil, "payment reference is not a transaction hash")
	}
	hash := common.HexToHash(reference)

	receipt, err := v.client.backend.TransactionReceipt(ctx, hash)
	if errors.Is(err, geth.NotFound) {
		return "", apperrors.ResourceNotFoundError(err, "payment transaction not found")
	}
	if err != nil {
		return "", apperrors.DependencyFailureError(err, "failed to fetch payment receipt")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", apperrors.BadRequestError(ErrReverted, "payment transaction failed")
	}

	payer, paid := v.paidToAgent(receipt)
	if paid.Cmp(v.fee) < 0 {
		v.client.logger.Info("Entry fee not covered",
			zap.String("reference", reference),
			zap.String("paid", paid.String()),
			zap.String("required", v.fee.String()))
		return "", apperrors.BadRequestError(nil, "payment does not cover the entry fee")
	}
	return payer.Hex(), nil
}

// paidToAgent sums payment-asset transfers into the agent wallet and
// returns the sender of the first one.
func (v *EntryFeeVerifier) paidToAgent(receipt *types.Receipt) (common.Address, *big.Int) {
	var payer common.Address
	total := new(big.Int)
	for _, l := range receipt.Logs {
		if l == nil || l.Address != v.token {
			continue
		}
		transfer, err := contracts.ParseERC20Transfer(*l)
		if err != nil || transfer.To != v.client.address {
			continue
		}
		if total.Sign() == 0 {
			payer = transfer.From
		}
		total.Add(total, transfer.Value)
	}
	return payer, total
}
