package farm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"

	"github.com/tos-network/gfarm/internal/slots"
	"github.com/tos-network/gfarm/params"
)

// Storage layout under params.FarmAddress.
var (
	initializedSlot = slots.Key("farm.initialized")
	governorSlot    = slots.Key("farm.governor")
	rewardTokenSlot = slots.Key("farm.rewardToken")
	rewardSinkSlot  = slots.Key("farm.rewardSink")
	emissionSlot    = slots.Key("farm.emission")
	startBlockSlot  = slots.Key("farm.startBlock")
	totalAllocSlot  = slots.Key("farm.totalAlloc")
	poolCountSlot   = slots.Key("farm.poolCount")
)

const (
	poolAsset = iota
	poolIsPair
	poolAlloc
	poolFee
	poolLockup
	poolLastReward
	poolAcc
	poolStaked
)

const (
	userAmount = iota
	userDebt
	userLockup
)

func poolSlot(pid uint64, field uint64) common.Hash {
	return slots.Key("farm.pool", slots.Index(pid), slots.Index(field))
}

func userSlot(pid uint64, user common.Address, field uint64) common.Hash {
	return slots.Key("farm.user", slots.Index(pid), user.Bytes(), slots.Index(field))
}

func assetSlot(asset common.Address) common.Hash {
	return slots.Key("farm.asset", asset.Bytes())
}

// config is the in-memory form of Config used by the ledger operations.
type config struct {
	governor    common.Address
	rewardToken common.Address
	rewardSink  common.Address
	emission    *uint256.Int
	startBlock  uint64
	totalAlloc  uint64
	poolCount   uint64
}

type poolState struct {
	id              uint64
	asset           common.Address
	isPair          bool
	alloc           uint64
	feeBPS          uint64
	lockup          uint64
	lastRewardBlock uint64
	acc             *uint256.Int
	staked          *uint256.Int
}

type userState struct {
	amount        *uint256.Int
	debt          *uint256.Int
	lockupStarted uint64
}

// Initialize writes the ledger configuration. Genesis-only.
func Initialize(db vm.StateDB, cfg Config) error {
	if slots.ReadBool(db, params.FarmAddress, initializedSlot) {
		return ErrAlreadyInitialized
	}
	emission := cfg.EmissionPerBlock
	if emission == nil {
		emission = params.DefaultEmissionPerBlock
	}
	e, overflow := uint256.FromBig(emission)
	if overflow || emission.Sign() < 0 || cfg.RewardToken == (common.Address{}) {
		return ErrInvalidRewardConfig
	}
	a := params.FarmAddress
	slots.WriteBool(db, a, initializedSlot, true)
	slots.WriteAddress(db, a, governorSlot, cfg.Governor)
	slots.WriteAddress(db, a, rewardTokenSlot, cfg.RewardToken)
	slots.WriteAddress(db, a, rewardSinkSlot, cfg.RewardSink)
	slots.WriteUint256(db, a, emissionSlot, e)
	slots.WriteUint64(db, a, startBlockSlot, cfg.StartBlock)
	return nil
}

func readConfig(db vm.StateDB) (*config, error) {
	a := params.FarmAddress
	if !slots.ReadBool(db, a, initializedSlot) {
		return nil, ErrNotInitialized
	}
	return &config{
		governor:    slots.ReadAddress(db, a, governorSlot),
		rewardToken: slots.ReadAddress(db, a, rewardTokenSlot),
		rewardSink:  slots.ReadAddress(db, a, rewardSinkSlot),
		emission:    slots.ReadUint256(db, a, emissionSlot),
		startBlock:  slots.ReadUint64(db, a, startBlockSlot),
		totalAlloc:  slots.ReadUint64(db, a, totalAllocSlot),
		poolCount:   slots.ReadUint64(db, a, poolCountSlot),
	}, nil
}

// ReadConfig returns the ledger configuration.
func ReadConfig(db vm.StateDB) (Config, error) {
	cfg, err := readConfig(db)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Governor:         cfg.governor,
		RewardToken:      cfg.rewardToken,
		RewardSink:       cfg.rewardSink,
		EmissionPerBlock: cfg.emission.ToBig(),
		StartBlock:       cfg.startBlock,
	}, nil
}

// PoolLength returns the number of pools ever added.
func PoolLength(db vm.StateDB) uint64 {
	return slots.ReadUint64(db, params.FarmAddress, poolCountSlot)
}

// TotalAllocPoints returns the sum of allocation points over all pools.
func TotalAllocPoints(db vm.StateDB) uint64 {
	return slots.ReadUint64(db, params.FarmAddress, totalAllocSlot)
}

// HasPool reports whether asset already backs a pool.
func HasPool(db vm.StateDB, asset common.Address) bool {
	return slots.ReadBool(db, params.FarmAddress, assetSlot(asset))
}

func readPool(db vm.StateDB, pid uint64) (*poolState, error) {
	if pid >= PoolLength(db) {
		return nil, ErrUnknownPool
	}
	a := params.FarmAddress
	return &poolState{
		id:              pid,
		asset:           slots.ReadAddress(db, a, poolSlot(pid, poolAsset)),
		isPair:          slots.ReadBool(db, a, poolSlot(pid, poolIsPair)),
		alloc:           slots.ReadUint64(db, a, poolSlot(pid, poolAlloc)),
		feeBPS:          slots.ReadUint64(db, a, poolSlot(pid, poolFee)),
		lockup:          slots.ReadUint64(db, a, poolSlot(pid, poolLockup)),
		lastRewardBlock: slots.ReadUint64(db, a, poolSlot(pid, poolLastReward)),
		acc:             slots.ReadUint256(db, a, poolSlot(pid, poolAcc)),
		staked:          slots.ReadUint256(db, a, poolSlot(pid, poolStaked)),
	}, nil
}

func writePool(db vm.StateDB, p *poolState) {
	a := params.FarmAddress
	slots.WriteAddress(db, a, poolSlot(p.id, poolAsset), p.asset)
	slots.WriteBool(db, a, poolSlot(p.id, poolIsPair), p.isPair)
	slots.WriteUint64(db, a, poolSlot(p.id, poolAlloc), p.alloc)
	slots.WriteUint64(db, a, poolSlot(p.id, poolFee), p.feeBPS)
	slots.WriteUint64(db, a, poolSlot(p.id, poolLockup), p.lockup)
	slots.WriteUint64(db, a, poolSlot(p.id, poolLastReward), p.lastRewardBlock)
	slots.WriteUint256(db, a, poolSlot(p.id, poolAcc), p.acc)
	slots.WriteUint256(db, a, poolSlot(p.id, poolStaked), p.staked)
}

func readUser(db vm.StateDB, pid uint64, user common.Address) *userState {
	a := params.FarmAddress
	return &userState{
		amount:        slots.ReadUint256(db, a, userSlot(pid, user, userAmount)),
		debt:          slots.ReadUint256(db, a, userSlot(pid, user, userDebt)),
		lockupStarted: slots.ReadUint64(db, a, userSlot(pid, user, userLockup)),
	}
}

func writeUser(db vm.StateDB, pid uint64, user common.Address, u *userState) {
	a := params.FarmAddress
	slots.WriteUint256(db, a, userSlot(pid, user, userAmount), u.amount)
	slots.WriteUint256(db, a, userSlot(pid, user, userDebt), u.debt)
	slots.WriteUint64(db, a, userSlot(pid, user, userLockup), u.lockupStarted)
}

func (p *poolState) view() *Pool {
	return &Pool{
		ID:                p.id,
		Asset:             p.asset,
		IsLiquidityPair:   p.isPair,
		AllocPoints:       p.alloc,
		DepositFeeBPS:     p.feeBPS,
		LockupBlocks:      p.lockup,
		LastRewardBlock:   p.lastRewardBlock,
		AccRewardPerShare: p.acc.ToBig(),
		TotalStaked:       p.staked.ToBig(),
	}
}

// ReadPool returns pool pid.
func ReadPool(db vm.StateDB, pid uint64) (*Pool, error) {
	p, err := readPool(db, pid)
	if err != nil {
		return nil, err
	}
	return p.view(), nil
}

// ReadPools returns every pool in id order.
func ReadPools(db vm.StateDB) []*Pool {
	n := PoolLength(db)
	pools := make([]*Pool, 0, n)
	for pid := uint64(0); pid < n; pid++ {
		p, _ := readPool(db, pid)
		pools = append(pools, p.view())
	}
	return pools
}

// ReadUserStake returns user's position in pool pid.
func ReadUserStake(db vm.StateDB, pid uint64, user common.Address) (*UserStake, error) {
	if pid >= PoolLength(db) {
		return nil, ErrUnknownPool
	}
	u := readUser(db, pid, user)
	return &UserStake{
		Amount:        u.amount.ToBig(),
		RewardDebt:    u.debt.ToBig(),
		LockupStarted: u.lockupStarted,
	}, nil
}

func toAmount(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrInvalidAmount
	}
	return v, nil
}
