package farm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/holiman/uint256"

	"github.com/tos-network/gfarm/internal/slots"
	"github.com/tos-network/gfarm/params"
	"github.com/tos-network/gfarm/sysaction"
)

var (
	depositCounter   = metrics.NewRegisteredCounter("farm/deposit", nil)
	withdrawCounter  = metrics.NewRegisteredCounter("farm/withdraw", nil)
	emergencyCounter = metrics.NewRegisteredCounter("farm/emergency", nil)
	harvestCounter   = metrics.NewRegisteredCounter("farm/harvest", nil)
	swapCounter      = metrics.NewRegisteredCounter("farm/swap/in", nil)
)

// Farm executes ledger operations against its asset ledger and fee swapper.
type Farm struct {
	assets  Assets
	swapper FeeSwapper
}

// New returns a Farm taking custody through assets and converting deposit
// fees through swapper.
func New(assets Assets, swapper FeeSwapper) *Farm {
	return &Farm{assets: assets, swapper: swapper}
}

func requireGovernor(ctx *sysaction.Context, cfg *config) error {
	if ctx.From != cfg.governor {
		return fmt.Errorf("%w: %s is not the farm governor", ErrUnauthorized, ctx.From.Hex())
	}
	return nil
}

func checkFee(feeBPS uint64) error {
	if feeBPS > params.MaxDepositFeeBPS {
		return fmt.Errorf("%w: %d > %d", ErrDepositFeeTooHigh, feeBPS, params.MaxDepositFeeBPS)
	}
	return nil
}

// AddPool registers a new pool for cfg.Asset and returns its id. Governor only.
func (f *Farm) AddPool(ctx *sysaction.Context, pc PoolConfig, withUpdate bool) (uint64, error) {
	db := ctx.StateDB
	cfg, err := readConfig(db)
	if err != nil {
		return 0, err
	}
	if err := requireGovernor(ctx, cfg); err != nil {
		return 0, err
	}
	if err := checkFee(pc.DepositFeeBPS); err != nil {
		return 0, err
	}
	if HasPool(db, pc.Asset) {
		return 0, fmt.Errorf("%w: %s", ErrDuplicatePool, pc.Asset.Hex())
	}
	total := cfg.totalAlloc + pc.AllocPoints
	if total < cfg.totalAlloc {
		return 0, ErrAllocationOverflow
	}
	pid := cfg.poolCount
	err = sysaction.Atomic(db, func() error {
		if withUpdate {
			if err := f.massUpdate(ctx, cfg); err != nil {
				return err
			}
		}
		last := ctx.Block()
		if last < cfg.startBlock {
			last = cfg.startBlock
		}
		writePool(db, &poolState{
			id:              pid,
			asset:           pc.Asset,
			isPair:          pc.IsLiquidityPair,
			alloc:           pc.AllocPoints,
			feeBPS:          pc.DepositFeeBPS,
			lockup:          pc.LockupBlocks,
			lastRewardBlock: last,
			acc:             new(uint256.Int),
			staked:          new(uint256.Int),
		})
		a := params.FarmAddress
		slots.WriteUint64(db, a, poolCountSlot, pid+1)
		slots.WriteUint64(db, a, totalAllocSlot, total)
		slots.WriteBool(db, a, assetSlot(pc.Asset), true)

		log.Info("farm: pool added", "pid", pid, "asset", pc.Asset, "alloc", pc.AllocPoints,
			"feeBps", pc.DepositFeeBPS, "lockup", pc.LockupBlocks, "pair", pc.IsLiquidityPair)
		return ctx.Emit(PoolAddedID, &PoolAdded{
			PoolID:          pid,
			Asset:           pc.Asset,
			AllocPoints:     pc.AllocPoints,
			DepositFeeBPS:   pc.DepositFeeBPS,
			LockupBlocks:    pc.LockupBlocks,
			IsLiquidityPair: pc.IsLiquidityPair,
		}, sysaction.Uint64Topic(pid), sysaction.AddressTopic(pc.Asset))
	})
	if err != nil {
		return 0, err
	}
	return pid, nil
}

// SetPool changes the weight, deposit fee and lockup of pool pid. The pool
// is settled at the old weight first. Governor only.
func (f *Farm) SetPool(ctx *sysaction.Context, pid, allocPoints, feeBPS, lockup uint64, withUpdate bool) error {
	db := ctx.StateDB
	cfg, err := readConfig(db)
	if err != nil {
		return err
	}
	if err := requireGovernor(ctx, cfg); err != nil {
		return err
	}
	if err := checkFee(feeBPS); err != nil {
		return err
	}
	return sysaction.Atomic(db, func() error {
		if withUpdate {
			if err := f.massUpdate(ctx, cfg); err != nil {
				return err
			}
		}
		p, err := f.updatePool(ctx, cfg, pid)
		if err != nil {
			return err
		}
		total := cfg.totalAlloc - p.alloc + allocPoints
		if total < allocPoints {
			return ErrAllocationOverflow
		}
		p.alloc, p.feeBPS, p.lockup = allocPoints, feeBPS, lockup
		writePool(db, p)
		slots.WriteUint64(db, params.FarmAddress, totalAllocSlot, total)

		log.Info("farm: pool updated", "pid", pid, "alloc", allocPoints, "feeBps", feeBPS, "lockup", lockup)
		return ctx.Emit(PoolUpdatedID, &PoolUpdated{
			PoolID:        pid,
			AllocPoints:   allocPoints,
			DepositFeeBPS: feeBPS,
			LockupBlocks:  lockup,
		}, sysaction.Uint64Topic(pid))
	})
}

// UpdateEmission settles every pool at the old rate and switches to
// emission. Governor only.
func (f *Farm) UpdateEmission(ctx *sysaction.Context, emission *big.Int) error {
	db := ctx.StateDB
	cfg, err := readConfig(db)
	if err != nil {
		return err
	}
	if err := requireGovernor(ctx, cfg); err != nil {
		return err
	}
	e, err := toAmount(emission)
	if err != nil {
		return err
	}
	return sysaction.Atomic(db, func() error {
		if err := f.massUpdate(ctx, cfg); err != nil {
			return err
		}
		slots.WriteUint256(db, params.FarmAddress, emissionSlot, e)
		log.Info("farm: emission updated", "old", cfg.emission.ToBig(), "new", emission)
		return ctx.Emit(EmissionUpdatedID, &EmissionUpdated{Old: cfg.emission.ToBig(), New: e.ToBig()})
	})
}

// SetRewardSink changes the recipient of swapped deposit fees. Governor only.
func (f *Farm) SetRewardSink(ctx *sysaction.Context, sink common.Address) error {
	db := ctx.StateDB
	cfg, err := readConfig(db)
	if err != nil {
		return err
	}
	if err := requireGovernor(ctx, cfg); err != nil {
		return err
	}
	return sysaction.Atomic(db, func() error {
		slots.WriteAddress(db, params.FarmAddress, rewardSinkSlot, sink)
		return ctx.Emit(RewardSinkUpdatedID, &RewardSinkUpdated{Old: cfg.rewardSink, New: sink},
			sysaction.AddressTopic(cfg.rewardSink), sysaction.AddressTopic(sink))
	})
}

// UpdatePool brings pool pid's reward accounting up to the current block.
// Anyone may call it.
func (f *Farm) UpdatePool(ctx *sysaction.Context, pid uint64) error {
	cfg, err := readConfig(ctx.StateDB)
	if err != nil {
		return err
	}
	return sysaction.Atomic(ctx.StateDB, func() error {
		_, err := f.updatePool(ctx, cfg, pid)
		return err
	})
}

// MassUpdatePools updates every pool.
func (f *Farm) MassUpdatePools(ctx *sysaction.Context) error {
	cfg, err := readConfig(ctx.StateDB)
	if err != nil {
		return err
	}
	return sysaction.Atomic(ctx.StateDB, func() error {
		return f.massUpdate(ctx, cfg)
	})
}

func (f *Farm) massUpdate(ctx *sysaction.Context, cfg *config) error {
	for pid := uint64(0); pid < cfg.poolCount; pid++ {
		if _, err := f.updatePool(ctx, cfg, pid); err != nil {
			return fmt.Errorf("pool %d: %w", pid, err)
		}
	}
	return nil
}

// updatePool accrues pool pid to the current block, minting the emitted
// reward to the farm. lastRewardBlock advances even when nothing accrues.
func (f *Farm) updatePool(ctx *sysaction.Context, cfg *config, pid uint64) (*poolState, error) {
	db := ctx.StateDB
	p, err := readPool(db, pid)
	if err != nil {
		return nil, err
	}
	block := ctx.Block()
	if block <= p.lastRewardBlock {
		return p, nil
	}
	acc, reward, err := accrue(p, block, cfg.emission, cfg.totalAlloc)
	if err != nil {
		return nil, err
	}
	if !reward.IsZero() {
		if err := f.assets.Mint(db, cfg.rewardToken, params.FarmAddress, params.FarmAddress, reward.ToBig()); err != nil {
			return nil, fmt.Errorf("farm: mint reward: %w", err)
		}
	}
	p.acc = acc
	p.lastRewardBlock = block
	writePool(db, p)
	log.Trace("farm: pool accrued", "pid", pid, "block", block, "reward", reward.ToBig(), "acc", acc.ToBig())
	return p, nil
}

// harvest pays u its pending reward in pool p.
func (f *Farm) harvest(ctx *sysaction.Context, cfg *config, p *poolState, u *userState, user common.Address) error {
	owed, err := pending(u, p.acc)
	if err != nil {
		return err
	}
	if owed.IsZero() {
		return nil
	}
	if err := f.assets.Transfer(ctx.StateDB, cfg.rewardToken, params.FarmAddress, user, owed.ToBig()); err != nil {
		return fmt.Errorf("farm: pay reward: %w", err)
	}
	harvestCounter.Inc(1)
	return emitUser(ctx, HarvestID, user, p.id, owed.ToBig())
}

// swapFee routes a deposit fee held by the farm to the reward sink.
// Liquidity-pair tokens are routed through the reward token.
func (f *Farm) swapFee(ctx *sysaction.Context, cfg *config, p *poolState, fee *uint256.Int) error {
	if cfg.rewardSink == (common.Address{}) {
		return ErrNoRewardSink
	}
	path := []common.Address{p.asset, params.NativeCurrency}
	if p.isPair && p.asset != cfg.rewardToken {
		path = []common.Address{p.asset, cfg.rewardToken, params.NativeCurrency}
	}
	out, err := f.swapper.SwapForRewards(ctx.StateDB, params.FarmAddress, path, fee.ToBig(), cfg.rewardSink)
	if err != nil {
		return fmt.Errorf("farm: deposit fee swap: %w", err)
	}
	swapCounter.Inc(1)
	log.Debug("farm: swapped deposit fee", "pid", p.id, "asset", p.asset, "in", fee.ToBig(), "out", out)
	return ctx.Emit(SwappedForRewardsID, &SwappedForRewards{Asset: p.asset, AmountIn: fee.ToBig(), AmountOut: out},
		sysaction.AddressTopic(p.asset))
}

// Deposit stakes amount of pool pid's asset for the caller, who must have
// approved the farm. Pending rewards are paid first. A deposit fee is
// carved out and swapped to the reward sink; the rest is credited. A
// deposit of zero only harvests.
func (f *Farm) Deposit(ctx *sysaction.Context, pid uint64, amount *big.Int) error {
	db := ctx.StateDB
	v, err := toAmount(amount)
	if err != nil {
		return err
	}
	cfg, err := readConfig(db)
	if err != nil {
		return err
	}
	user := ctx.From
	return sysaction.Atomic(db, func() error {
		p, err := f.updatePool(ctx, cfg, pid)
		if err != nil {
			return err
		}
		u := readUser(db, pid, user)
		if !u.amount.IsZero() {
			if err := f.harvest(ctx, cfg, p, u, user); err != nil {
				return err
			}
		}
		net := new(uint256.Int).Set(v)
		if !v.IsZero() {
			if err := f.assets.TransferFrom(db, p.asset, params.FarmAddress, user, params.FarmAddress, amount); err != nil {
				return fmt.Errorf("farm: take deposit: %w", err)
			}
			if p.feeBPS > 0 {
				fee, err := depositFee(v, p.feeBPS)
				if err != nil {
					return err
				}
				if !fee.IsZero() {
					if err := f.swapFee(ctx, cfg, p, fee); err != nil {
						return err
					}
					net.Sub(net, fee)
				}
			}
			block := ctx.Block()
			if u.amount.IsZero() || block >= lockupEnd(u.lockupStarted, p.lockup) {
				u.lockupStarted = block
			}
			var overflow bool
			if _, overflow = u.amount.AddOverflow(u.amount, net); overflow {
				return ErrArithmeticOverflow
			}
			if _, overflow = p.staked.AddOverflow(p.staked, net); overflow {
				return ErrArithmeticOverflow
			}
		}
		if u.debt, err = accumulated(u.amount, p.acc); err != nil {
			return err
		}
		writePool(db, p)
		writeUser(db, pid, user, u)
		depositCounter.Inc(1)
		log.Debug("farm: deposit", "user", user, "pid", pid, "amount", amount, "net", net.ToBig())
		return emitUser(ctx, DepositID, user, pid, net.ToBig())
	})
}

// Withdraw returns amount of the caller's stake in pool pid after paying
// pending rewards. A non-zero withdrawal fails while the lockup runs; a
// withdrawal of zero only harvests.
func (f *Farm) Withdraw(ctx *sysaction.Context, pid uint64, amount *big.Int) error {
	db := ctx.StateDB
	v, err := toAmount(amount)
	if err != nil {
		return err
	}
	cfg, err := readConfig(db)
	if err != nil {
		return err
	}
	user := ctx.From
	return sysaction.Atomic(db, func() error {
		p, err := f.updatePool(ctx, cfg, pid)
		if err != nil {
			return err
		}
		u := readUser(db, pid, user)
		if v.Gt(u.amount) {
			return fmt.Errorf("%w: have %v, want %v", ErrInsufficientStake, u.amount.ToBig(), amount)
		}
		if !v.IsZero() && p.lockup > 0 {
			if end := lockupEnd(u.lockupStarted, p.lockup); ctx.Block() < end {
				return fmt.Errorf("%w: until block %d", ErrLockupActive, end)
			}
		}
		if err := f.harvest(ctx, cfg, p, u, user); err != nil {
			return err
		}
		if !v.IsZero() {
			u.amount.Sub(u.amount, v)
			p.staked.Sub(p.staked, v)
			if err := f.assets.Transfer(db, p.asset, params.FarmAddress, user, amount); err != nil {
				return fmt.Errorf("farm: return stake: %w", err)
			}
		}
		if u.debt, err = accumulated(u.amount, p.acc); err != nil {
			return err
		}
		writePool(db, p)
		writeUser(db, pid, user, u)
		withdrawCounter.Inc(1)
		log.Debug("farm: withdraw", "user", user, "pid", pid, "amount", amount)
		return emitUser(ctx, WithdrawID, user, pid, amount)
	})
}

// EmergencyWithdraw returns the caller's whole stake in pool pid, forfeiting
// pending rewards. It neither updates the pool nor honours the lockup.
func (f *Farm) EmergencyWithdraw(ctx *sysaction.Context, pid uint64) error {
	db := ctx.StateDB
	user := ctx.From
	return sysaction.Atomic(db, func() error {
		p, err := readPool(db, pid)
		if err != nil {
			return err
		}
		u := readUser(db, pid, user)
		amount := u.amount
		if _, underflow := p.staked.SubOverflow(p.staked, amount); underflow {
			return ErrArithmeticOverflow
		}
		writePool(db, p)
		writeUser(db, pid, user, &userState{amount: new(uint256.Int), debt: new(uint256.Int)})
		if !amount.IsZero() {
			if err := f.assets.Transfer(db, p.asset, params.FarmAddress, user, amount.ToBig()); err != nil {
				return fmt.Errorf("farm: return stake: %w", err)
			}
		}
		emergencyCounter.Inc(1)
		log.Warn("farm: emergency withdraw", "user", user, "pid", pid, "amount", amount.ToBig())
		return emitUser(ctx, EmergencyWithdrawID, user, pid, amount.ToBig())
	})
}

// PendingReward returns the reward user could harvest from pool pid at
// block, without changing state.
func PendingReward(db vm.StateDB, pid uint64, user common.Address, block uint64) (*big.Int, error) {
	cfg, err := readConfig(db)
	if err != nil {
		return nil, err
	}
	p, err := readPool(db, pid)
	if err != nil {
		return nil, err
	}
	acc, _, err := accrue(p, block, cfg.emission, cfg.totalAlloc)
	if err != nil {
		return nil, err
	}
	owed, err := pending(readUser(db, pid, user), acc)
	if err != nil {
		return nil, err
	}
	return owed.ToBig(), nil
}
