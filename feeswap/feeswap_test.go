package feeswap

import (
	"errors"
	"math/big"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"

	"github.com/tos-network/gfarm/params"
	"github.com/tos-network/gfarm/sysaction"
	"github.com/tos-network/gfarm/token"
)

var (
	governor = common.Address{0x90}
	holder   = common.Address{0x70}
	sink     = common.Address{0x5c}

	tokenA = common.HexToAddress("0x0000000000000000000000000000000000002000")
	tokenB = common.HexToAddress("0x0000000000000000000000000000000000001000")
)

func newTestState() *state.StateDB {
	db := state.NewDatabase(rawdb.NewMemoryDatabase())
	s, _ := state.New(common.Hash{}, db, nil)
	token.Register(s, tokenA)
	token.Register(s, tokenB)
	SetGovernor(s, governor)
	return s
}

func mustMint(t *testing.T, st *state.StateDB, asset, to common.Address, amount int64) {
	t.Helper()
	if err := token.Mint(st, asset, to, big.NewInt(amount)); err != nil {
		t.Fatal(err)
	}
}

func TestGetAmountOut(t *testing.T) {
	tests := []struct {
		in, rIn, rOut int64
		want          int64
		err           error
	}{
		{in: 100, rIn: 10000, rOut: 10000, want: 98},
		{in: 1000, rIn: 1000, rOut: 1000, want: 499},
		{in: 1, rIn: 1000000, rOut: 1000, want: 0},
		{in: 0, rIn: 10, rOut: 10, err: ErrInsufficientOutputAmount},
		{in: 10, rIn: 0, rOut: 10, err: ErrSwapRouteUnavailable},
		{in: 10, rIn: 10, rOut: 0, err: ErrSwapRouteUnavailable},
	}
	for i, tt := range tests {
		got, err := GetAmountOut(big.NewInt(tt.in), big.NewInt(tt.rIn), big.NewInt(tt.rOut))
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("test %d: want %v, got %v", i, tt.err, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		if got.Int64() != tt.want {
			t.Errorf("test %d: got %v, want %d", i, got, tt.want)
		}
	}
	if _, err := GetAmountOut(big.NewInt(-1), big.NewInt(1), big.NewInt(1)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative input: want ErrInvalidAmount, got %v", err)
	}
}

func TestSeedOrdersReserves(t *testing.T) {
	st := newTestState()
	if err := Seed(st, tokenA, tokenB, big.NewInt(300), big.NewInt(700)); err != nil {
		t.Fatal(err)
	}
	pair := GetPair(st, tokenB, tokenA)
	if pair == nil {
		t.Fatal("pair not found in reverse order")
	}
	// tokenB sorts first.
	if pair.Token0 != tokenB || pair.Reserve0.Int64() != 700 || pair.Reserve1.Int64() != 300 {
		t.Fatalf("unexpected pair %s", spew.Sdump(pair))
	}
	if err := Seed(st, tokenB, tokenA, big.NewInt(1), big.NewInt(1)); !errors.Is(err, ErrPairExists) {
		t.Fatalf("want ErrPairExists, got %v", err)
	}
	if err := Seed(st, tokenA, tokenA, big.NewInt(1), big.NewInt(1)); !errors.Is(err, ErrIdenticalAssets) {
		t.Fatalf("want ErrIdenticalAssets, got %v", err)
	}
}

func TestSwapMultiHop(t *testing.T) {
	st := newTestState()
	mustMint(t, st, tokenA, params.SwapRouterAddress, 10000)
	mustMint(t, st, tokenB, params.SwapRouterAddress, 20000)
	st.AddBalance(params.SwapRouterAddress, big.NewInt(10000))
	if err := Seed(st, tokenA, tokenB, big.NewInt(10000), big.NewInt(10000)); err != nil {
		t.Fatal(err)
	}
	if err := Seed(st, tokenB, params.NativeCurrency, big.NewInt(10000), big.NewInt(10000)); err != nil {
		t.Fatal(err)
	}
	mustMint(t, st, tokenA, holder, 500)

	path := []common.Address{tokenA, tokenB, params.NativeCurrency}
	out, err := DefaultRouter.SwapForRewards(st, holder, path, big.NewInt(200), sink)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	hop1, _ := GetAmountOut(big.NewInt(200), big.NewInt(10000), big.NewInt(10000))
	hop2, _ := GetAmountOut(hop1, big.NewInt(10000), big.NewInt(10000))
	if out.Cmp(hop2) != 0 || st.GetBalance(sink).Cmp(hop2) != 0 {
		t.Fatalf("out %v, sink %v, want %v", out, st.GetBalance(sink), hop2)
	}
	if bal := token.BalanceOf(st, tokenA, holder); bal.Int64() != 300 {
		t.Fatalf("holder balance %v, want 300", bal)
	}
	ab := GetPair(st, tokenA, tokenB)
	if ab.Reserve1.Int64() != 10200 || ab.Reserve0.Int64() != 10000-hop1.Int64() {
		t.Fatalf("unexpected reserves after hop 1: %s", spew.Sdump(ab))
	}
	logs := sysaction.FilterLogs(st.Logs(), SwappedID)
	if len(logs) != 2 {
		t.Fatalf("want 2 Swapped logs, got %d", len(logs))
	}
	var ev Swapped
	if err := sysaction.DecodeEvent(logs[1], SwappedID, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.AssetIn != tokenB || ev.AssetOut != params.NativeCurrency || ev.AmountIn.Cmp(hop1) != 0 {
		t.Fatalf("unexpected second hop %+v", ev)
	}
}

func TestSwapMissingPairIsAtomic(t *testing.T) {
	st := newTestState()
	mustMint(t, st, tokenA, params.SwapRouterAddress, 10000)
	mustMint(t, st, tokenB, params.SwapRouterAddress, 10000)
	if err := Seed(st, tokenA, tokenB, big.NewInt(10000), big.NewInt(10000)); err != nil {
		t.Fatal(err)
	}
	mustMint(t, st, tokenA, holder, 500)

	path := []common.Address{tokenA, tokenB, params.NativeCurrency}
	if _, err := DefaultRouter.SwapForRewards(st, holder, path, big.NewInt(200), sink); !errors.Is(err, ErrSwapRouteUnavailable) {
		t.Fatalf("want ErrSwapRouteUnavailable, got %v", err)
	}
	if bal := token.BalanceOf(st, tokenA, holder); bal.Int64() != 500 {
		t.Fatalf("holder charged for a failed swap: %v", bal)
	}
	if pair := GetPair(st, tokenA, tokenB); pair.Reserve0.Int64() != 10000 || pair.Reserve1.Int64() != 10000 {
		t.Fatalf("reserves moved: %s", spew.Sdump(pair))
	}
	if _, err := DefaultRouter.SwapForRewards(st, holder, path[:1], big.NewInt(1), sink); !errors.Is(err, ErrSwapRouteUnavailable) {
		t.Fatalf("short path: want ErrSwapRouteUnavailable, got %v", err)
	}
}

func TestRegisterPair(t *testing.T) {
	st := newTestState()
	mustMint(t, st, tokenA, governor, 1000)
	payload := &RegisterPairPayload{
		TokenA:  tokenA,
		TokenB:  params.NativeCurrency,
		AmountA: big.NewInt(1000),
		AmountB: big.NewInt(5000),
	}
	data := sysaction.MustMakeSysAction(sysaction.ActionSwapRegisterPair, payload)
	ctx := func(from common.Address, value int64) *sysaction.Context {
		// The value has already moved to the router, as a message would do.
		st.AddBalance(params.SwapRouterAddress, big.NewInt(value))
		return &sysaction.Context{
			From:        from,
			To:          params.SwapRouterAddress,
			Value:       big.NewInt(value),
			BlockNumber: big.NewInt(1),
			StateDB:     st,
		}
	}
	if err := sysaction.Execute(ctx(holder, 5000), data); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if err := sysaction.Execute(ctx(governor, 4999), data); !errors.Is(err, ErrInsufficientValue) {
		t.Fatalf("want ErrInsufficientValue, got %v", err)
	}
	if bal := token.BalanceOf(st, tokenA, governor); bal.Int64() != 1000 {
		t.Fatalf("failed registration moved tokens: %v", bal)
	}
	if err := sysaction.Execute(ctx(governor, 5000), data); err != nil {
		t.Fatalf("register: %v", err)
	}
	pair := GetPair(st, params.NativeCurrency, tokenA)
	if pair == nil || pair.Token0 != params.NativeCurrency || pair.Reserve0.Int64() != 5000 || pair.Reserve1.Int64() != 1000 {
		t.Fatalf("unexpected pair %s", spew.Sdump(pair))
	}
	if bal := token.BalanceOf(st, tokenA, params.SwapRouterAddress); bal.Int64() != 1000 {
		t.Fatalf("router holds %v of tokenA", bal)
	}
	if len(sysaction.FilterLogs(st.Logs(), PairRegisteredID)) != 1 {
		t.Fatalf("missing PairRegistered log")
	}
	if err := sysaction.Execute(ctx(governor, 5000), data); !errors.Is(err, ErrPairExists) {
		t.Fatalf("want ErrPairExists, got %v", err)
	}
}

func TestEmitReportsEncodingError(t *testing.T) {
	st := newTestState()
	ev := &Swapped{AssetIn: tokenA, AssetOut: tokenB, AmountIn: big.NewInt(-1), AmountOut: big.NewInt(1)}
	if err := emit(st, SwappedID, ev); err == nil {
		t.Fatalf("negative amount encoded without error")
	}
	if n := len(st.Logs()); n != 0 {
		t.Fatalf("unencodable event left %d logs", n)
	}
}
