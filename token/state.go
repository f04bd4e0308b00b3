package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/tos-network/gfarm/access"
	"github.com/tos-network/gfarm/internal/slots"
	"github.com/tos-network/gfarm/sysaction"
)

var (
	registeredSlot = slots.Key("token.registered")
	supplySlot     = slots.Key("token.supply")
)

func balanceSlot(holder common.Address) common.Hash {
	return slots.Key("token.balance", holder.Bytes())
}

func allowanceSlot(owner, spender common.Address) common.Hash {
	return slots.Key("token.allowance", owner.Bytes(), spender.Bytes())
}

// Register marks asset as a ledger. Genesis-only.
func Register(db vm.StateDB, asset common.Address) {
	slots.WriteBool(db, asset, registeredSlot, true)
}

// IsRegistered reports whether asset carries a ledger.
func IsRegistered(db vm.StateDB, asset common.Address) bool {
	return slots.ReadBool(db, asset, registeredSlot)
}

func BalanceOf(db vm.StateDB, asset, holder common.Address) *big.Int {
	return slots.ReadBig(db, asset, balanceSlot(holder))
}

func TotalSupply(db vm.StateDB, asset common.Address) *big.Int {
	return slots.ReadBig(db, asset, supplySlot)
}

func Allowance(db vm.StateDB, asset, owner, spender common.Address) *big.Int {
	return slots.ReadBig(db, asset, allowanceSlot(owner, spender))
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

// Transfer moves amount of asset from -> to. Transfers of zero succeed and
// still emit a Transfer log.
func Transfer(db vm.StateDB, asset, from, to common.Address, amount *big.Int) error {
	if !IsRegistered(db, asset) {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset.Hex())
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	v, err := toAmount(amount)
	if err != nil {
		return err
	}
	fromBal := slots.ReadUint256(db, asset, balanceSlot(from))
	if fromBal.Lt(v) {
		return fmt.Errorf("%w: have %v, want %v", ErrInsufficientBalance, fromBal.ToBig(), amount)
	}
	slots.WriteUint256(db, asset, balanceSlot(from), new(uint256.Int).Sub(fromBal, v))
	toBal := slots.ReadUint256(db, asset, balanceSlot(to))
	// Cannot overflow: balances sum to the supply, which is bounded at mint.
	slots.WriteUint256(db, asset, balanceSlot(to), new(uint256.Int).Add(toBal, v))
	emit(db, asset, TransferID, &TransferEvent{from, to, amount}, sysaction.AddressTopic(from), sysaction.AddressTopic(to))
	return nil
}

// Approve sets the allowance of spender over owner's asset.
func Approve(db vm.StateDB, asset, owner, spender common.Address, amount *big.Int) error {
	if !IsRegistered(db, asset) {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset.Hex())
	}
	if spender == (common.Address{}) {
		return ErrZeroAddress
	}
	v, err := toAmount(amount)
	if err != nil {
		return err
	}
	slots.WriteUint256(db, asset, allowanceSlot(owner, spender), v)
	emit(db, asset, ApprovalID, &ApprovalEvent{owner, spender, v.ToBig()}, sysaction.AddressTopic(owner), sysaction.AddressTopic(spender))
	return nil
}

// IncreaseAllowance adds amount to the allowance of spender.
func IncreaseAllowance(db vm.StateDB, asset, owner, spender common.Address, amount *big.Int) error {
	v, err := toAmount(amount)
	if err != nil {
		return err
	}
	cur := slots.ReadUint256(db, asset, allowanceSlot(owner, spender))
	sum, overflow := new(uint256.Int).AddOverflow(cur, v)
	if overflow {
		return ErrInvalidAmount
	}
	return Approve(db, asset, owner, spender, sum.ToBig())
}

// TransferFrom moves amount from -> to on behalf of spender, consuming
// allowance. An allowance of 2^256-1 is treated as unlimited.
func TransferFrom(db vm.StateDB, asset, spender, from, to common.Address, amount *big.Int) error {
	v, err := toAmount(amount)
	if err != nil {
		return err
	}
	if spender == from {
		return Transfer(db, asset, from, to, amount)
	}
	allowed := slots.ReadUint256(db, asset, allowanceSlot(from, spender))
	if allowed.Lt(v) {
		return fmt.Errorf("%w: have %v, want %v", ErrInsufficientAllowance, allowed.ToBig(), amount)
	}
	// The allowance is consumed only once the transfer went through.
	if err := Transfer(db, asset, from, to, amount); err != nil {
		return err
	}
	if !isUnlimited(allowed) {
		slots.WriteUint256(db, asset, allowanceSlot(from, spender), new(uint256.Int).Sub(allowed, v))
	}
	return nil
}

// Mint creates amount of asset for to. The permission check is the caller's
// job; see MintAs.
func Mint(db vm.StateDB, asset, to common.Address, amount *big.Int) error {
	if !IsRegistered(db, asset) {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset.Hex())
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	v, err := toAmount(amount)
	if err != nil {
		return err
	}
	supply, overflow := new(uint256.Int).AddOverflow(slots.ReadUint256(db, asset, supplySlot), v)
	if overflow {
		return ErrSupplyOverflow
	}
	slots.WriteUint256(db, asset, supplySlot, supply)
	bal := slots.ReadUint256(db, asset, balanceSlot(to))
	slots.WriteUint256(db, asset, balanceSlot(to), new(uint256.Int).Add(bal, v))
	emit(db, asset, TransferID, &TransferEvent{common.Address{}, to, amount}, sysaction.AddressTopic(common.Address{}), sysaction.AddressTopic(to))
	return nil
}

// MintAs is Mint for a minter that must hold MinterRole in the asset's domain.
func MintAs(db vm.StateDB, asset, minter, to common.Address, amount *big.Int) error {
	if err := access.CheckRole(db, asset, access.MinterRole, minter); err != nil {
		return err
	}
	return Mint(db, asset, to, amount)
}

// Burn destroys amount of from's asset.
func Burn(db vm.StateDB, asset, from common.Address, amount *big.Int) error {
	if !IsRegistered(db, asset) {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset.Hex())
	}
	v, err := toAmount(amount)
	if err != nil {
		return err
	}
	bal := slots.ReadUint256(db, asset, balanceSlot(from))
	if bal.Lt(v) {
		return fmt.Errorf("%w: have %v, want %v", ErrInsufficientBalance, bal.ToBig(), amount)
	}
	slots.WriteUint256(db, asset, balanceSlot(from), new(uint256.Int).Sub(bal, v))
	supply := slots.ReadUint256(db, asset, supplySlot)
	slots.WriteUint256(db, asset, supplySlot, new(uint256.Int).Sub(supply, v))
	emit(db, asset, TransferID, &TransferEvent{from, common.Address{}, amount}, sysaction.AddressTopic(from), sysaction.AddressTopic(common.Address{}))
	return nil
}

func isUnlimited(v *uint256.Int) bool {
	return v.Eq(new(uint256.Int).SetAllOne())
}

// emit appends a log attributed to asset. Ledger calls run inside other
// components' handlers, so there is no asset-scoped context to emit through.
func emit(db vm.StateDB, asset common.Address, id common.Hash, ev interface{}, indexed ...common.Hash) {
	data, err := rlp.EncodeToBytes(ev)
	if err != nil {
		panic(fmt.Sprintf("token: unencodable event: %v", err))
	}
	db.AddLog(&types.Log{
		Address: asset,
		Topics:  append([]common.Hash{id}, indexed...),
		Data:    data,
	})
}

// Ledger adapts the package functions to the interface the farm and the swap
// router consume.
type Ledger struct{}

func (Ledger) BalanceOf(db vm.StateDB, asset, holder common.Address) *big.Int {
	return BalanceOf(db, asset, holder)
}

func (Ledger) Transfer(db vm.StateDB, asset, from, to common.Address, amount *big.Int) error {
	return Transfer(db, asset, from, to, amount)
}

func (Ledger) TransferFrom(db vm.StateDB, asset, spender, from, to common.Address, amount *big.Int) error {
	return TransferFrom(db, asset, spender, from, to, amount)
}

func (Ledger) Mint(db vm.StateDB, asset, minter, to common.Address, amount *big.Int) error {
	return MintAs(db, asset, minter, to, amount)
}
