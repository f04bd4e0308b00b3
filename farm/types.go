// Package farm implements the reward ledger: pools of staked assets that
// accrue a per-block emission of the reward token, shared by allocation
// points and paid out through reward-per-share accounting. Pool
// configuration is reserved to the governor (the timelock); deposits,
// withdrawals and harvests are public.
package farm

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/tos-network/gfarm/access"
)

var (
	ErrUnauthorized        = access.ErrUnauthorized
	ErrNotInitialized      = errors.New("farm: not initialized")
	ErrAlreadyInitialized  = errors.New("farm: already initialized")
	ErrUnknownPool         = errors.New("farm: unknown pool")
	ErrDuplicatePool       = errors.New("farm: asset already has a pool")
	ErrDepositFeeTooHigh   = errors.New("farm: deposit fee exceeds maximum")
	ErrInvalidAmount       = errors.New("farm: invalid amount")
	ErrInsufficientStake   = errors.New("farm: withdraw amount exceeds stake")
	ErrLockupActive        = errors.New("farm: stake is locked")
	ErrArithmeticOverflow  = errors.New("farm: arithmetic overflow")
	ErrNoRewardSink        = errors.New("farm: reward sink not set")
	ErrAllocationOverflow  = errors.New("farm: total allocation points overflow")
	ErrInvalidRewardConfig = errors.New("farm: invalid reward configuration")
)

// Config is the ledger-wide configuration written at genesis.
type Config struct {
	Governor         common.Address // only caller allowed to configure pools
	RewardToken      common.Address // minted per block, paid to stakers
	RewardSink       common.Address // receives swapped deposit fees
	EmissionPerBlock *big.Int
	StartBlock       uint64
}

// Pool is the public view of one pool.
type Pool struct {
	ID                uint64
	Asset             common.Address
	IsLiquidityPair   bool
	AllocPoints       uint64
	DepositFeeBPS     uint64
	LockupBlocks      uint64
	LastRewardBlock   uint64
	AccRewardPerShare *big.Int // scaled by params.RewardPrecision
	TotalStaked       *big.Int
}

// UserStake is the public view of one account's position in one pool.
type UserStake struct {
	Amount        *big.Int
	RewardDebt    *big.Int
	LockupStarted uint64 // block of the last deposit that (re)started the lockup
}

// PoolConfig is the governor-supplied part of a pool.
type PoolConfig struct {
	Asset           common.Address
	IsLiquidityPair bool
	AllocPoints     uint64
	DepositFeeBPS   uint64
	LockupBlocks    uint64
}

// Assets is the fungible balance ledger the farm takes custody through.
// Failures are fatal to the enclosing call.
type Assets interface {
	BalanceOf(db vm.StateDB, asset, holder common.Address) *big.Int
	Transfer(db vm.StateDB, asset, from, to common.Address, amount *big.Int) error
	TransferFrom(db vm.StateDB, asset, spender, from, to common.Address, amount *big.Int) error
	Mint(db vm.StateDB, asset, minter, to common.Address, amount *big.Int) error
}

// FeeSwapper converts amountIn of path[0], held by holder, along path and
// pays the final amount to sink, returning it. The last path element is the
// currency the sink receives.
type FeeSwapper interface {
	SwapForRewards(db vm.StateDB, holder common.Address, path []common.Address, amountIn *big.Int, sink common.Address) (*big.Int, error)
}

// AddPoolPayload is the payload for FARM_ADD_POOL.
type AddPoolPayload struct {
	Asset           common.Address `json:"asset"`
	IsLiquidityPair bool           `json:"isLiquidityPair"`
	AllocPoints     uint64         `json:"allocPoints"`
	DepositFeeBPS   uint64         `json:"depositFeeBps"`
	LockupBlocks    uint64         `json:"lockupBlocks"`
	WithUpdate      bool           `json:"withUpdate"`
}

// SetPoolPayload is the payload for FARM_SET_POOL.
type SetPoolPayload struct {
	PoolID        uint64 `json:"pid"`
	AllocPoints   uint64 `json:"allocPoints"`
	DepositFeeBPS uint64 `json:"depositFeeBps"`
	LockupBlocks  uint64 `json:"lockupBlocks"`
	WithUpdate    bool   `json:"withUpdate"`
}

// EmissionPayload is the payload for FARM_UPDATE_EMISSION.
type EmissionPayload struct {
	EmissionPerBlock *big.Int `json:"emissionPerBlock"`
}

// RewardSinkPayload is the payload for FARM_SET_REWARD_SINK.
type RewardSinkPayload struct {
	Sink common.Address `json:"sink"`
}

// PoolPayload is the payload for FARM_UPDATE_POOL and FARM_EMERGENCY_WITHDRAW.
type PoolPayload struct {
	PoolID uint64 `json:"pid"`
}

// AmountPayload is the payload for FARM_DEPOSIT and FARM_WITHDRAW.
type AmountPayload struct {
	PoolID uint64   `json:"pid"`
	Amount *big.Int `json:"amount"`
}
