package feeswap

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/tos-network/gfarm/params"
	"github.com/tos-network/gfarm/sysaction"
)

// Event ids.
var (
	PairRegisteredID = sysaction.EventID("PairRegistered(address,address,uint256,uint256)")
	SwappedID        = sysaction.EventID("Swapped(address,address,uint256,uint256)")
)

var (
	feeNumerator   = new(uint256.Int).SetUint64(params.SwapFeeNumerator)
	feeDenominator = new(uint256.Int).SetUint64(params.SwapFeeDenominator)
)

// GetAmountOut returns the output of swapping amountIn against reserves
// (reserveIn, reserveOut) after the swap fee:
//
//	out = in*9975*reserveOut / (reserveIn*10000 + in*9975)
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	in, err := toAmount(amountIn)
	if err != nil {
		return nil, err
	}
	rIn, err := toAmount(reserveIn)
	if err != nil {
		return nil, err
	}
	rOut, err := toAmount(reserveOut)
	if err != nil {
		return nil, err
	}
	out, err := amountOut(in, rIn, rOut)
	if err != nil {
		return nil, err
	}
	return out.ToBig(), nil
}

func amountOut(in, rIn, rOut *uint256.Int) (*uint256.Int, error) {
	if in.IsZero() {
		return nil, ErrInsufficientOutputAmount
	}
	if rIn.IsZero() || rOut.IsZero() {
		return nil, ErrSwapRouteUnavailable
	}
	inWithFee, overflow := new(uint256.Int).MulOverflow(in, feeNumerator)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	num, overflow := new(uint256.Int).MulOverflow(inWithFee, rOut)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	den, overflow := new(uint256.Int).MulOverflow(rIn, feeDenominator)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	if _, overflow = den.AddOverflow(den, inWithFee); overflow {
		return nil, ErrArithmeticOverflow
	}
	return num.Div(num, den), nil
}

// Router swaps along registered pairs. Its zero value is not usable; build
// one with NewRouter.
type Router struct {
	ledger Ledger
}

func NewRouter(ledger Ledger) *Router {
	return &Router{ledger: ledger}
}

// move transfers amount of asset, treating params.NativeCurrency as the
// account balance.
func (r *Router) move(db vm.StateDB, asset, from, to common.Address, amount *big.Int) error {
	if asset != params.NativeCurrency {
		return r.ledger.Transfer(db, asset, from, to, amount)
	}
	if db.GetBalance(from).Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %v, want %v", ErrInsufficientBalance, db.GetBalance(from), amount)
	}
	db.SubBalance(from, amount)
	db.AddBalance(to, amount)
	return nil
}

// SwapForRewards takes amountIn of path[0] from holder, swaps it hop by hop
// through the registered pairs and pays the final output to sink. A missing
// or empty pair on any hop fails the whole swap with ErrSwapRouteUnavailable.
func (r *Router) SwapForRewards(db vm.StateDB, holder common.Address, path []common.Address, amountIn *big.Int, sink common.Address) (*big.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("%w: path too short", ErrSwapRouteUnavailable)
	}
	amount, err := toAmount(amountIn)
	if err != nil {
		return nil, err
	}
	var out *big.Int
	err = sysaction.Atomic(db, func() error {
		if err := r.move(db, path[0], holder, params.SwapRouterAddress, amountIn); err != nil {
			return err
		}
		for i := 0; i+1 < len(path); i++ {
			in, next := path[i], path[i+1]
			if in == next {
				return fmt.Errorf("%w: hop %d: %v", ErrSwapRouteUnavailable, i, ErrIdenticalAssets)
			}
			rIn, rOut, ok := reserves(db, in, next)
			if !ok {
				return fmt.Errorf("%w: no pair %s/%s", ErrSwapRouteUnavailable, in.Hex(), next.Hex())
			}
			got, err := amountOut(amount, rIn, rOut)
			if err != nil {
				return fmt.Errorf("hop %d: %w", i, err)
			}
			if got.IsZero() {
				return fmt.Errorf("%w: hop %d", ErrInsufficientOutputAmount, i)
			}
			if _, overflow := rIn.AddOverflow(rIn, amount); overflow {
				return ErrArithmeticOverflow
			}
			rOut.Sub(rOut, got)
			writeReserves(db, in, next, rIn, rOut)
			if err := emit(db, SwappedID, &Swapped{AssetIn: in, AssetOut: next, AmountIn: amount.ToBig(), AmountOut: got.ToBig()}); err != nil {
				return err
			}
			amount = got
		}
		out = amount.ToBig()
		return r.move(db, path[len(path)-1], params.SwapRouterAddress, sink, out)
	})
	if err != nil {
		return nil, err
	}
	log.Debug("feeswap: swapped", "path", len(path), "in", amountIn, "out", out, "sink", sink)
	return out, nil
}

func emit(db vm.StateDB, id common.Hash, ev interface{}) error {
	data, err := rlp.EncodeToBytes(ev)
	if err != nil {
		return fmt.Errorf("feeswap: encode event: %w", err)
	}
	db.AddLog(&types.Log{Address: params.SwapRouterAddress, Topics: []common.Hash{id}, Data: data})
	return nil
}

// RegisterPair records the pair (tokenA, tokenB) with the liquidity the
// caller supplies. Only the router governor may call it.
func (r *Router) RegisterPair(ctx *sysaction.Context, p *RegisterPairPayload) error {
	db := ctx.StateDB
	if ctx.From != Governor(db) {
		return fmt.Errorf("%w: %s is not the router governor", ErrUnauthorized, ctx.From.Hex())
	}
	if p.TokenA == p.TokenB {
		return ErrIdenticalAssets
	}
	if HasPair(db, p.TokenA, p.TokenB) {
		return ErrPairExists
	}
	ra, err := toAmount(p.AmountA)
	if err != nil {
		return err
	}
	rb, err := toAmount(p.AmountB)
	if err != nil {
		return err
	}
	return sysaction.Atomic(db, func() error {
		if err := r.fund(ctx, p.TokenA, ra, p.TokenB, rb); err != nil {
			return err
		}
		writeReserves(db, p.TokenA, p.TokenB, ra, rb)
		pair := GetPair(db, p.TokenA, p.TokenB)
		log.Info("feeswap: pair registered", "token0", pair.Token0, "token1", pair.Token1,
			"reserve0", pair.Reserve0, "reserve1", pair.Reserve1)
		return ctx.Emit(PairRegisteredID, &PairRegistered{
			Token0:   pair.Token0,
			Token1:   pair.Token1,
			Reserve0: pair.Reserve0,
			Reserve1: pair.Reserve1,
		}, sysaction.AddressTopic(pair.Token0), sysaction.AddressTopic(pair.Token1))
	})
}

// fund pulls initial liquidity. Native liquidity arrives as the call value,
// which must match exactly; token liquidity is transferred from the caller.
func (r *Router) fund(ctx *sysaction.Context, a common.Address, ra *uint256.Int, b common.Address, rb *uint256.Int) error {
	native := new(big.Int)
	for _, leg := range []struct {
		asset  common.Address
		amount *uint256.Int
	}{{a, ra}, {b, rb}} {
		if leg.amount.IsZero() {
			continue
		}
		if leg.asset == params.NativeCurrency {
			native = leg.amount.ToBig()
			continue
		}
		if err := r.ledger.Transfer(ctx.StateDB, leg.asset, ctx.From, params.SwapRouterAddress, leg.amount.ToBig()); err != nil {
			return err
		}
	}
	value := ctx.Value
	if value == nil {
		value = new(big.Int)
	}
	if value.Cmp(native) != 0 {
		return fmt.Errorf("%w: value %v, native leg %v", ErrInsufficientValue, value, native)
	}
	return nil
}
