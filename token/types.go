// Package token implements the fungible asset ledger the farm takes custody
// through. Each asset keeps balances, allowances and supply in storage under
// its own address; minting is gated by the access registry's MinterRole in
// the asset's domain.
package token

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/gfarm/sysaction"
)

var (
	ErrUnknownAsset          = errors.New("token: unknown asset")
	ErrInvalidAmount         = errors.New("token: invalid amount")
	ErrInsufficientBalance   = errors.New("token: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrZeroAddress           = errors.New("token: zero address")
	ErrSupplyOverflow        = errors.New("token: total supply overflow")
)

// Event ids.
var (
	TransferID = sysaction.EventID("Transfer(address,address,uint256)")
	ApprovalID = sysaction.EventID("Approval(address,address,uint256)")
)

// TransferEvent is the data of a Transfer log. Mints come from the zero address,
// burns go to it.
type TransferEvent struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
}

// ApprovalEvent is the data of an Approval log.
type ApprovalEvent struct {
	Owner   common.Address
	Spender common.Address
	Amount  *big.Int
}

// TransferPayload is the payload for TOKEN_TRANSFER, TOKEN_TRANSFER_FROM and TOKEN_MINT.
// From is only read by TOKEN_TRANSFER_FROM.
type TransferPayload struct {
	From   common.Address `json:"from,omitempty"`
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
}

// ApprovePayload is the payload for TOKEN_APPROVE and TOKEN_INCREASE_ALLOWANCE.
type ApprovePayload struct {
	Spender common.Address `json:"spender"`
	Amount  *big.Int       `json:"amount"`
}

// BurnPayload is the payload for TOKEN_BURN.
type BurnPayload struct {
	Amount *big.Int `json:"amount"`
}
