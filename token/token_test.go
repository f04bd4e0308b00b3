package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/holiman/uint256"

	"github.com/tos-network/gfarm/access"
	"github.com/tos-network/gfarm/sysaction"
)

var (
	asset  = common.HexToAddress("0x0000000000000000000000000000000000001000")
	minter = common.Address{0x11}
	alice  = common.Address{0xa1}
	bob    = common.Address{0xb0}
)

func newTestState() *state.StateDB {
	db := state.NewDatabase(rawdb.NewMemoryDatabase())
	s, _ := state.New(common.Hash{}, db, nil)
	Register(s, asset)
	return s
}

func newCtx(st *state.StateDB, from common.Address) *sysaction.Context {
	return &sysaction.Context{From: from, To: asset, BlockNumber: big.NewInt(1), StateDB: st}
}

func TestMintRequiresRole(t *testing.T) {
	st := newTestState()
	if err := MintAs(st, asset, minter, alice, big.NewInt(100)); !errors.Is(err, access.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	access.Grant(st, asset, access.MinterRole, minter)
	if err := MintAs(st, asset, minter, alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if BalanceOf(st, asset, alice).Int64() != 100 || TotalSupply(st, asset).Int64() != 100 {
		t.Fatalf("balance %v supply %v", BalanceOf(st, asset, alice), TotalSupply(st, asset))
	}
	if err := Mint(st, asset, alice, new(uint256.Int).SetAllOne().ToBig()); !errors.Is(err, ErrSupplyOverflow) {
		t.Fatalf("want ErrSupplyOverflow, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	st := newTestState()
	if err := Mint(st, asset, alice, big.NewInt(50)); err != nil {
		t.Fatal(err)
	}
	if err := Transfer(st, asset, alice, bob, big.NewInt(51)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
	if err := Transfer(st, asset, alice, common.Address{}, big.NewInt(1)); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("want ErrZeroAddress, got %v", err)
	}
	if err := Transfer(st, asset, alice, bob, big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount, got %v", err)
	}
	if err := Transfer(st, asset, alice, alice, big.NewInt(20)); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if err := Transfer(st, asset, alice, bob, big.NewInt(20)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if BalanceOf(st, asset, alice).Int64() != 30 || BalanceOf(st, asset, bob).Int64() != 20 {
		t.Fatalf("alice %v bob %v", BalanceOf(st, asset, alice), BalanceOf(st, asset, bob))
	}
	if err := Transfer(st, common.Address{0x99}, alice, bob, big.NewInt(1)); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("want ErrUnknownAsset, got %v", err)
	}
}

func TestTransferFromAllowance(t *testing.T) {
	st := newTestState()
	if err := Mint(st, asset, alice, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}
	if err := TransferFrom(st, asset, bob, alice, bob, big.NewInt(1)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("want ErrInsufficientAllowance, got %v", err)
	}
	if err := Approve(st, asset, alice, bob, big.NewInt(30)); err != nil {
		t.Fatal(err)
	}
	if err := IncreaseAllowance(st, asset, alice, bob, big.NewInt(10)); err != nil {
		t.Fatal(err)
	}
	if err := TransferFrom(st, asset, bob, alice, bob, big.NewInt(25)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if got := Allowance(st, asset, alice, bob).Int64(); got != 15 {
		t.Fatalf("allowance %d, want 15", got)
	}

	unlimited := new(uint256.Int).SetAllOne().ToBig()
	if err := Approve(st, asset, alice, bob, unlimited); err != nil {
		t.Fatal(err)
	}
	if err := TransferFrom(st, asset, bob, alice, bob, big.NewInt(5)); err != nil {
		t.Fatal(err)
	}
	if Allowance(st, asset, alice, bob).Cmp(unlimited) != 0 {
		t.Fatalf("unlimited allowance was consumed")
	}
}

func TestFailedTransferFromKeepsAllowance(t *testing.T) {
	st := newTestState()
	if err := Mint(st, asset, alice, big.NewInt(10)); err != nil {
		t.Fatal(err)
	}
	if err := Approve(st, asset, alice, bob, big.NewInt(50)); err != nil {
		t.Fatal(err)
	}
	if err := TransferFrom(st, asset, bob, alice, bob, big.NewInt(40)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
	if err := TransferFrom(st, asset, bob, alice, common.Address{}, big.NewInt(5)); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("want ErrZeroAddress, got %v", err)
	}
	if got := Allowance(st, asset, alice, bob).Int64(); got != 50 {
		t.Fatalf("allowance %d after failed transfers, want 50", got)
	}
}

func TestBurn(t *testing.T) {
	st := newTestState()
	if err := Mint(st, asset, alice, big.NewInt(10)); err != nil {
		t.Fatal(err)
	}
	if err := Burn(st, asset, alice, big.NewInt(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
	if err := Burn(st, asset, alice, big.NewInt(4)); err != nil {
		t.Fatal(err)
	}
	if TotalSupply(st, asset).Int64() != 6 || BalanceOf(st, asset, alice).Int64() != 6 {
		t.Fatalf("supply %v balance %v", TotalSupply(st, asset), BalanceOf(st, asset, alice))
	}
}

func TestHandlerTransferEmitsLog(t *testing.T) {
	st := newTestState()
	if err := Mint(st, asset, alice, big.NewInt(10)); err != nil {
		t.Fatal(err)
	}
	data := sysaction.MustMakeSysAction(sysaction.ActionTokenTransfer, &TransferPayload{To: bob, Amount: big.NewInt(7)})
	if err := sysaction.Execute(newCtx(st, alice), data); err != nil {
		t.Fatalf("execute: %v", err)
	}
	logs := sysaction.FilterLogs(st.Logs(), TransferID)
	last := logs[len(logs)-1]
	var ev TransferEvent
	if err := sysaction.DecodeEvent(last, TransferID, &ev); err != nil {
		t.Fatal(err)
	}
	if last.Address != asset || ev.From != alice || ev.To != bob || ev.Amount.Int64() != 7 {
		t.Fatalf("unexpected transfer log %+v", ev)
	}

	unknown := newCtx(st, alice)
	unknown.To = common.Address{0x77}
	if err := sysaction.Execute(unknown, data); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("want ErrUnknownAsset, got %v", err)
	}
}
