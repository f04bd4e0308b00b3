package farm

import (
	"github.com/holiman/uint256"

	"github.com/tos-network/gfarm/params"
)

var (
	precision      = mustU256(params.RewardPrecision.Uint64())
	bpsDenominator = mustU256(params.BPSDenominator)
)

func mustU256(n uint64) *uint256.Int { return new(uint256.Int).SetUint64(n) }

// accrue returns the pool's accRewardPerShare advanced to block together
// with the reward emitted to the pool over that interval. Nothing accrues
// for an empty pool, a zero-weight pool or a block at or before the last
// reward block.
func accrue(p *poolState, block uint64, emission *uint256.Int, totalAlloc uint64) (acc, reward *uint256.Int, err error) {
	acc = new(uint256.Int).Set(p.acc)
	reward = new(uint256.Int)
	if block <= p.lastRewardBlock || p.staked.IsZero() || p.alloc == 0 || totalAlloc == 0 {
		return acc, reward, nil
	}
	// reward = blocks * emission * alloc / totalAlloc
	r, overflow := new(uint256.Int).MulOverflow(mustU256(block-p.lastRewardBlock), emission)
	if overflow {
		return nil, nil, ErrArithmeticOverflow
	}
	if r, overflow = new(uint256.Int).MulOverflow(r, mustU256(p.alloc)); overflow {
		return nil, nil, ErrArithmeticOverflow
	}
	reward = new(uint256.Int).Div(r, mustU256(totalAlloc))

	// acc += reward * precision / staked
	delta, overflow := new(uint256.Int).MulOverflow(reward, precision)
	if overflow {
		return nil, nil, ErrArithmeticOverflow
	}
	delta.Div(delta, p.staked)
	if _, overflow = acc.AddOverflow(acc, delta); overflow {
		return nil, nil, ErrArithmeticOverflow
	}
	return acc, reward, nil
}

// accumulated is amount * acc / precision, the share of the pool's lifetime
// reward attributed to amount.
func accumulated(amount, acc *uint256.Int) (*uint256.Int, error) {
	v, overflow := new(uint256.Int).MulOverflow(amount, acc)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return v.Div(v, precision), nil
}

// pending is the reward owed to u at acc.
func pending(u *userState, acc *uint256.Int) (*uint256.Int, error) {
	total, err := accumulated(u.amount, acc)
	if err != nil {
		return nil, err
	}
	out, underflow := new(uint256.Int).SubOverflow(total, u.debt)
	if underflow {
		return nil, ErrArithmeticOverflow
	}
	return out, nil
}

// depositFee is amount * feeBPS / 10000, rounded down.
func depositFee(amount *uint256.Int, feeBPS uint64) (*uint256.Int, error) {
	fee, overflow := new(uint256.Int).MulOverflow(amount, mustU256(feeBPS))
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return fee.Div(fee, bpsDenominator), nil
}

// lockupEnd is the first block at which a stake started at started may be
// withdrawn, saturating at the largest block number.
func lockupEnd(started, lockup uint64) uint64 {
	end := started + lockup
	if end < started {
		return ^uint64(0)
	}
	return end
}
