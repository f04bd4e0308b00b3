package timelock

import (
	"fmt"

	"github.com/tos-network/gfarm/params"
	"github.com/tos-network/gfarm/sysaction"
)

func init() {
	sysaction.DefaultRegistry.Register(&timelockHandler{})
}

// timelockHandler implements sysaction.Handler for the operation scheduler.
type timelockHandler struct{}

func (h *timelockHandler) CanHandle(kind sysaction.ActionKind) bool {
	switch kind {
	case sysaction.ActionTimelockSchedule,
		sysaction.ActionTimelockScheduleBatch,
		sysaction.ActionTimelockExecute,
		sysaction.ActionTimelockExecuteBatch,
		sysaction.ActionTimelockCancel,
		sysaction.ActionTimelockUpdateDelay:
		return true
	}
	return false
}

func (h *timelockHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	if err := ctx.RequireTarget(params.TimelockAddress); err != nil {
		return err
	}
	switch sa.Action {
	case sysaction.ActionTimelockSchedule:
		var p SchedulePayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		_, err := Schedule(ctx, Call{p.Target, p.Value, p.Data}, p.Predecessor, p.Salt, p.Delay)
		return err

	case sysaction.ActionTimelockScheduleBatch:
		var p BatchPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		calls, err := p.Calls()
		if err != nil {
			return err
		}
		_, err = ScheduleBatch(ctx, calls, p.Predecessor, p.Salt, p.Delay)
		return err

	case sysaction.ActionTimelockExecute:
		var p ExecutePayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return Execute(ctx, Call{p.Target, p.Value, p.Data}, p.Predecessor, p.Salt)

	case sysaction.ActionTimelockExecuteBatch:
		var p BatchPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		calls, err := p.Calls()
		if err != nil {
			return err
		}
		return ExecuteBatch(ctx, calls, p.Predecessor, p.Salt)

	case sysaction.ActionTimelockCancel:
		var p CancelPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return Cancel(ctx, p.ID)

	case sysaction.ActionTimelockUpdateDelay:
		var p UpdateDelayPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		return UpdateDelay(ctx, p.Delay)
	}
	return fmt.Errorf("timelock handler: unsupported action %q", sa.Action)
}
