package feeswap

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"

	"github.com/tos-network/gfarm/internal/slots"
	"github.com/tos-network/gfarm/params"
)

var governorSlot = slots.Key("feeswap.governor")

func pairSlot(token0, token1 common.Address, field uint64) common.Hash {
	return slots.Key("feeswap.pair", token0.Bytes(), token1.Bytes(), slots.Index(field))
}

const (
	pairExists = iota
	pairReserve0
	pairReserve1
)

// SortTokens orders a and b the way pairs are keyed.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// SetGovernor records the account allowed to register pairs. Genesis-only.
func SetGovernor(db vm.StateDB, governor common.Address) {
	slots.WriteAddress(db, params.SwapRouterAddress, governorSlot, governor)
}

func Governor(db vm.StateDB) common.Address {
	return slots.ReadAddress(db, params.SwapRouterAddress, governorSlot)
}

// HasPair reports whether a pair of a and b is registered.
func HasPair(db vm.StateDB, a, b common.Address) bool {
	t0, t1 := SortTokens(a, b)
	return slots.ReadBool(db, params.SwapRouterAddress, pairSlot(t0, t1, pairExists))
}

// GetPair returns the pair of a and b, or nil if none is registered.
func GetPair(db vm.StateDB, a, b common.Address) *Pair {
	if !HasPair(db, a, b) {
		return nil
	}
	t0, t1 := SortTokens(a, b)
	r := params.SwapRouterAddress
	return &Pair{
		Token0:   t0,
		Token1:   t1,
		Reserve0: slots.ReadBig(db, r, pairSlot(t0, t1, pairReserve0)),
		Reserve1: slots.ReadBig(db, r, pairSlot(t0, t1, pairReserve1)),
	}
}

// Seed records a pair with the given reserves. Genesis-only; the caller
// funds params.SwapRouterAddress with the reserves.
func Seed(db vm.StateDB, a, b common.Address, amountA, amountB *big.Int) error {
	if a == b {
		return ErrIdenticalAssets
	}
	if HasPair(db, a, b) {
		return ErrPairExists
	}
	ra, err := toAmount(amountA)
	if err != nil {
		return err
	}
	rb, err := toAmount(amountB)
	if err != nil {
		return err
	}
	writeReserves(db, a, b, ra, rb)
	return nil
}

// reserves returns the reserves of the pair ordered as (in, out).
func reserves(db vm.StateDB, in, out common.Address) (rIn, rOut *uint256.Int, ok bool) {
	t0, t1 := SortTokens(in, out)
	r := params.SwapRouterAddress
	if !slots.ReadBool(db, r, pairSlot(t0, t1, pairExists)) {
		return nil, nil, false
	}
	r0 := slots.ReadUint256(db, r, pairSlot(t0, t1, pairReserve0))
	r1 := slots.ReadUint256(db, r, pairSlot(t0, t1, pairReserve1))
	if in == t0 {
		return r0, r1, true
	}
	return r1, r0, true
}

// writeReserves stores reserves given in (a, b) order.
func writeReserves(db vm.StateDB, a, b common.Address, ra, rb *uint256.Int) {
	t0, t1 := SortTokens(a, b)
	if t0 != a {
		ra, rb = rb, ra
	}
	r := params.SwapRouterAddress
	slots.WriteBool(db, r, pairSlot(t0, t1, pairExists), true)
	slots.WriteUint256(db, r, pairSlot(t0, t1, pairReserve0), ra)
	slots.WriteUint256(db, r, pairSlot(t0, t1, pairReserve1), rb)
}

func toAmount(amount *big.Int) (*uint256.Int, error) {
	if amount == nil {
		return new(uint256.Int), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrInvalidAmount
	}
	return v, nil
}
