// Package reward pays out the prize chosen after a solved puzzle.
//
// The safe path transfers a fixed amount of the reward asset. The risky path
// swaps the reward into a randomly picked market token, doubled when the
// participant already holds that token. Every dispatch leaves exactly one
// transaction row for the participant and day, whatever the outcome.
package reward

import (
	"context"
	"errors"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/chainsafe/advent-agent/pkg/campaign"
)

var (
	// ErrNoPayoutAddress is returned when neither a linked wallet nor an EVM address is known.
	ErrNoPayoutAddress = errors.New("participant has no payout address")
	// ErrAlreadyDispatched is returned when a transaction already exists for the day.
	ErrAlreadyDispatched = errors.New("reward already dispatched for this day")
	// ErrNoTokens is returned when neither market data nor the fallback list yields a token.
	ErrNoTokens = errors.New("no candidate tokens available")
)

// Payments is the custodial payment and swap collaborator. Amounts are in
// whole token units; implementations convert to base units.
//
//go:generate mockery --name Payments --output mocks --outpkg mocks --filename mock_payments.go --with-expecter
type Payments interface {
	Transfer(ctx context.Context, token, to string, amount decimal.Decimal) (string, error)
	Swap(ctx context.Context, from, to string, amount decimal.Decimal, slippageBps int, recipient string) (string, error)
	ReadBalance(ctx context.Context, token, owner string) (*big.Int, error)
}

// TokenSource lists candidate tokens for the risky path.
//
//go:generate mockery --name TokenSource --output mocks --outpkg mocks --filename mock_token_source.go --with-expecter
type TokenSource interface {
	ListCandidateTokens(ctx context.Context, limit int) ([]campaign.Token, error)
}

// Ledger is the narrow transaction store used by the dispatcher.
type Ledger interface {
	CreateTransaction(ctx context.Context, tx *campaign.Transaction) error
	CompleteTransaction(ctx context.Context, tx *campaign.Transaction) error
}

// Request identifies the reward to pay.
type Request struct {
	Participant *campaign.Participant
	Day         int
	Path        campaign.RewardPath
}

// Outcome describes what happened during a dispatch.
type Outcome struct {
	Path        campaign.RewardPath
	Transaction *campaign.Transaction
	Token       *campaign.Token
	Bonus       bool
	Err         error
}

// Failed reports whether the payout did not complete.
func (o *Outcome) Failed() bool {
	return o.Err != nil
}

// Retryable reports whether an operator may safely retry the payout.
func (o *Outcome) Retryable() bool {
	return o.Transaction != nil && o.Transaction.Failure == campaign.FailureRetryable
}
