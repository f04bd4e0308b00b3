package farm

import (
	"fmt"

	"github.com/tos-network/gfarm/feeswap"
	"github.com/tos-network/gfarm/params"
	"github.com/tos-network/gfarm/sysaction"
	"github.com/tos-network/gfarm/token"
)

// DefaultFarm is the ledger bound to the token ledger and the fee-swap router.
var DefaultFarm = New(token.Ledger{}, feeswap.DefaultRouter)

func init() {
	sysaction.DefaultRegistry.Register(&farmHandler{farm: DefaultFarm})
}

// farmHandler implements sysaction.Handler for reward ledger actions.
type farmHandler struct {
	farm *Farm
}

func (h *farmHandler) CanHandle(kind sysaction.ActionKind) bool {
	switch kind {
	case sysaction.ActionFarmAddPool,
		sysaction.ActionFarmSetPool,
		sysaction.ActionFarmUpdateEmission,
		sysaction.ActionFarmSetRewardSink,
		sysaction.ActionFarmUpdatePool,
		sysaction.ActionFarmMassUpdatePools,
		sysaction.ActionFarmDeposit,
		sysaction.ActionFarmWithdraw,
		sysaction.ActionFarmEmergencyWithdraw:
		return true
	}
	return false
}

func (h *farmHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	if err := ctx.RequireTarget(params.FarmAddress); err != nil {
		return err
	}
	f := h.farm
	switch sa.Action {
	case sysaction.ActionFarmAddPool:
		var p AddPoolPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		_, err := f.AddPool(ctx, PoolConfig{
			Asset:           p.Asset,
			IsLiquidityPair: p.IsLiquidityPair,
			AllocPoints:     p.AllocPoints,
			DepositFeeBPS:   p.DepositFeeBPS,
			LockupBlocks:    p.LockupBlocks,
		}, p.WithUpdate)
		return err

	case sysaction.ActionFarmSetPool:
		var p SetPoolPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return f.SetPool(ctx, p.PoolID, p.AllocPoints, p.DepositFeeBPS, p.LockupBlocks, p.WithUpdate)

	case sysaction.ActionFarmUpdateEmission:
		var p EmissionPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return f.UpdateEmission(ctx, p.EmissionPerBlock)

	case sysaction.ActionFarmSetRewardSink:
		var p RewardSinkPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return f.SetRewardSink(ctx, p.Sink)

	case sysaction.ActionFarmUpdatePool:
		var p PoolPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return f.UpdatePool(ctx, p.PoolID)

	case sysaction.ActionFarmMassUpdatePools:
		return f.MassUpdatePools(ctx)

	case sysaction.ActionFarmDeposit:
		var p AmountPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return f.Deposit(ctx, p.PoolID, p.Amount)

	case sysaction.ActionFarmWithdraw:
		var p AmountPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return f.Withdraw(ctx, p.PoolID, p.Amount)

	case sysaction.ActionFarmEmergencyWithdraw:
		var p PoolPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return f.EmergencyWithdraw(ctx, p.PoolID)
	}
	return fmt.Errorf("farm handler: unsupported action %q", sa.Action)
}
