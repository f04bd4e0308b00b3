package farm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/gfarm/sysaction"
)

// Event ids.
var (
	PoolAddedID         = sysaction.EventID("PoolAdded(uint256,address,uint256,uint256,uint256,bool)")
	PoolUpdatedID       = sysaction.EventID("PoolUpdated(uint256,uint256,uint256,uint256)")
	DepositID           = sysaction.EventID("Deposit(address,uint256,uint256)")
	WithdrawID          = sysaction.EventID("Withdraw(address,uint256,uint256)")
	EmergencyWithdrawID = sysaction.EventID("EmergencyWithdraw(address,uint256,uint256)")
	HarvestID           = sysaction.EventID("Harvest(address,uint256,uint256)")
	SwappedForRewardsID = sysaction.EventID("SwappedForRewards(address,uint256,uint256)")
	EmissionUpdatedID   = sysaction.EventID("EmissionUpdated(uint256,uint256)")
	RewardSinkUpdatedID = sysaction.EventID("RewardSinkUpdated(address,address)")
)

type PoolAdded struct {
	PoolID          uint64
	Asset           common.Address
	AllocPoints     uint64
	DepositFeeBPS   uint64
	LockupBlocks    uint64
	IsLiquidityPair bool
}

type PoolUpdated struct {
	PoolID        uint64
	AllocPoints   uint64
	DepositFeeBPS uint64
	LockupBlocks  uint64
}

// UserAmount is the data of Deposit, Withdraw, EmergencyWithdraw and Harvest logs.
type UserAmount struct {
	User   common.Address
	PoolID uint64
	Amount *big.Int
}

type SwappedForRewards struct {
	Asset     common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
}

type EmissionUpdated struct {
	Old *big.Int
	New *big.Int
}

type RewardSinkUpdated struct {
	Old common.Address
	New common.Address
}

func emitUser(ctx *sysaction.Context, id common.Hash, user common.Address, pid uint64, amount *big.Int) error {
	return ctx.Emit(id, &UserAmount{User: user, PoolID: pid, Amount: amount},
		sysaction.AddressTopic(user), sysaction.Uint64Topic(pid))
}
