package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// SwapRouterABI covers exactInputSingle of a Uniswap V3 style SwapRouter02.
const SwapRouterABI = `[
{"type":"function","name":"exactInputSingle","stateMutability":"payable",
 "inputs":[{"name":"params","type":"tuple","components":[
  {"name":"tokenIn","type":"address"},
  {"name":"tokenOut","type":"address"},
  {"name":"fee","type":"uint24"},
  {"name":"recipient","type":"address"},
  {"name":"amountIn","type":"uint256"},
  {"name":"amountOutMinimum","type":"uint256"},
  {"name":"sqrtPriceLimitX96","type":"uint160"}]}],
 "outputs":[{"name":"amountOut","type":"uint256"}]}
]`

// QuoterABI covers quoteExactInputSingle of a Uniswap V3 style QuoterV2.
const QuoterABI = `[
{"type":"function","name":"quoteExactInputSingle","stateMutability":"nonpayable",
 "inputs":[{"name":"params","type":"tuple","components":[
  {"name":"tokenIn","type":"address"},
  {"name":"tokenOut","type":"address"},
  {"name":"amountIn","type":"uint256"},
  {"name":"fee","type":"uint24"},
  {"name":"sqrtPriceLimitX96","type":"uint160"}]}],
 "outputs":[
  {"name":"amountOut","type":"uint256"},
  {"name":"sqrtPriceX96After","type":"uint160"},
  {"name":"initializedTicksCrossed","type":"uint32"},
  {"name":"gasEstimate","type":"uint256"}]}
]`

var (
	swapRouterABI = mustParse(SwapRouterABI)
	quoterABI     = mustParse(QuoterABI)
)

// ExactInputSingleParams mirrors the router's ExactInputSingleParams tuple.
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// QuoteExactInputSingleParams mirrors the quoter's QuoteExactInputSingleParams tuple.
type QuoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// SwapRouter is a binding for the swap router.
type SwapRouter struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewSwapRouter binds the router at address.
func NewSwapRouter(address common.Address, backend bind.ContractBackend) *SwapRouter {
	return &SwapRouter{
		address:  address,
		contract: bind.NewBoundContract(address, swapRouterABI, backend, backend, backend),
	}
}

// Address returns the router address.
func (r *SwapRouter) Address() common.Address {
	return r.address
}

// ExactInputSingle submits a single-pool exact-input swap.
func (r *SwapRouter) ExactInputSingle(opts *bind.TransactOpts, params ExactInputSingleParams) (*types.Transaction, error) {
	return r.contract.Transact(opts, "exactInputSingle", params)
}

// Quoter is a binding for the quoter.
type Quoter struct {
	contract *bind.BoundContract
}

// NewQuoter binds the quoter at address.
func NewQuoter(address common.Address, backend bind.ContractBackend) *Quoter {
	return &Quoter{
		contract: bind.NewBoundContract(address, quoterABI, backend, backend, backend),
	}
}

// QuoteExactInputSingle simulates a swap and returns the expected output amount.
func (q *Quoter) QuoteExactInputSingle(opts *bind.CallOpts, params QuoteExactInputSingleParams) (*big.Int, error) {
	var out []interface{}
	if err := q.contract.Call(opts, &out, "quoteExactInputSingle", params); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// SwapRouterMethod returns the ABI method used for swaps, for decoding submitted calldata.
func SwapRouterMethod() abi.Method {
	return swapRouterABI.Methods["exactInputSingle"]
}

// ERC20Method returns an ERC-20 ABI method by name, for decoding submitted calldata.
func ERC20Method(name string) abi.Method {
	return erc20ABI.Methods[name]
}
