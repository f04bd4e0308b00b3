// Package feeswap converts deposit fees into native currency for the reward
// sink. It keeps a registry of constant-product pairs whose reserves are held
// by params.SwapRouterAddress and routes amounts hop by hop along a path.
package feeswap

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/tos-network/gfarm/access"
)

var (
	ErrUnauthorized             = access.ErrUnauthorized
	ErrSwapRouteUnavailable     = errors.New("feeswap: swap route unavailable")
	ErrInsufficientOutputAmount = errors.New("feeswap: insufficient output amount")
	ErrInvalidAmount            = errors.New("feeswap: invalid amount")
	ErrIdenticalAssets          = errors.New("feeswap: identical assets")
	ErrPairExists               = errors.New("feeswap: pair already registered")
	ErrInsufficientValue        = errors.New("feeswap: native liquidity does not match call value")
	ErrInsufficientBalance      = errors.New("feeswap: insufficient native balance")
	ErrArithmeticOverflow       = errors.New("feeswap: arithmetic overflow")
)

// Ledger moves fungible assets other than the native currency.
type Ledger interface {
	Transfer(db vm.StateDB, asset, from, to common.Address, amount *big.Int) error
}

// Pair is the public view of a registered pair. Token0 sorts before Token1.
type Pair struct {
	Token0   common.Address
	Token1   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// RegisterPairPayload is the payload for SWAP_REGISTER_PAIR. A native leg is
// funded by the call value, a token leg by the caller's balance.
type RegisterPairPayload struct {
	TokenA  common.Address `json:"tokenA"`
	TokenB  common.Address `json:"tokenB"`
	AmountA *big.Int       `json:"amountA,omitempty"`
	AmountB *big.Int       `json:"amountB,omitempty"`
}

// PairRegistered is the data of a PairRegistered log.
type PairRegistered struct {
	Token0   common.Address
	Token1   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// Swapped is the data of a Swapped log, one per hop.
type Swapped struct {
	AssetIn   common.Address
	AssetOut  common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
}
