package token

import (
	"fmt"

	"github.com/tos-network/gfarm/sysaction"
)

func init() {
	sysaction.DefaultRegistry.Register(&tokenHandler{})
}

// tokenHandler implements sysaction.Handler for asset ledger actions. The
// asset is the address the action was delivered to.
type tokenHandler struct{}

func (h *tokenHandler) CanHandle(kind sysaction.ActionKind) bool {
	switch kind {
	case sysaction.ActionTokenTransfer,
		sysaction.ActionTokenTransferFrom,
		sysaction.ActionTokenApprove,
		sysaction.ActionTokenIncreaseAllowance,
		sysaction.ActionTokenMint,
		sysaction.ActionTokenBurn:
		return true
	}
	return false
}

func (h *tokenHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	db := ctx.StateDB
	asset := ctx.To
	if !IsRegistered(db, asset) {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset.Hex())
	}
	switch sa.Action {
	case sysaction.ActionTokenTransfer:
		var p TransferPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return Transfer(db, asset, ctx.From, p.To, p.Amount)

	case sysaction.ActionTokenTransferFrom:
		var p TransferPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return TransferFrom(db, asset, ctx.From, p.From, p.To, p.Amount)

	case sysaction.ActionTokenApprove:
		var p ApprovePayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return Approve(db, asset, ctx.From, p.Spender, p.Amount)

	case sysaction.ActionTokenIncreaseAllowance:
		var p ApprovePayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return IncreaseAllowance(db, asset, ctx.From, p.Spender, p.Amount)

	case sysaction.ActionTokenMint:
		var p TransferPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return MintAs(db, asset, ctx.From, p.To, p.Amount)

	case sysaction.ActionTokenBurn:
		var p BurnPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return Burn(db, asset, ctx.From, p.Amount)
	}
	return fmt.Errorf("token handler: unsupported action %q", sa.Action)
}
