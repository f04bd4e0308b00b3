package feeswap

import (
	"fmt"

	"github.com/tos-network/gfarm/params"
	"github.com/tos-network/gfarm/sysaction"
	"github.com/tos-network/gfarm/token"
)

// DefaultRouter swaps through the token ledger.
var DefaultRouter = NewRouter(token.Ledger{})

func init() {
	sysaction.DefaultRegistry.Register(&swapHandler{router: DefaultRouter})
}

type swapHandler struct {
	router *Router
}

func (h *swapHandler) CanHandle(kind sysaction.ActionKind) bool {
	return kind == sysaction.ActionSwapRegisterPair
}

func (h *swapHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	if err := ctx.RequireTarget(params.SwapRouterAddress); err != nil {
		return err
	}
	switch sa.Action {
	case sysaction.ActionSwapRegisterPair:
		var p RegisterPairPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return h.router.RegisterPair(ctx, &p)
	}
	return fmt.Errorf("feeswap handler: unsupported action %q", sa.Action)
}
