package timelock

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/tos-network/gfarm/access"
	"github.com/tos-network/gfarm/params"
	"github.com/tos-network/gfarm/sysaction"
)

// Event ids.
var (
	CallScheduledID  = sysaction.EventID("CallScheduled(bytes32,uint256,address,uint256,bytes,bytes32,uint256)")
	CallExecutedID   = sysaction.EventID("CallExecuted(bytes32,uint256,address,uint256,bytes)")
	CancelledID      = sysaction.EventID("Cancelled(bytes32)")
	MinDelayChangeID = sysaction.EventID("MinDelayChange(uint256,uint256)")
)

var (
	scheduledCounter = metrics.NewRegisteredCounter("timelock/scheduled", nil)
	executedCounter  = metrics.NewRegisteredCounter("timelock/executed", nil)
	revertedCounter  = metrics.NewRegisteredCounter("timelock/reverted", nil)
	cancelledCounter = metrics.NewRegisteredCounter("timelock/cancelled", nil)
)

// Schedule queues a single call. The caller must hold ProposerRole.
func Schedule(ctx *sysaction.Context, call Call, predecessor, salt common.Hash, delay uint64) (common.Hash, error) {
	db := ctx.StateDB
	if err := access.CheckRole(db, params.TimelockAddress, access.ProposerRole, ctx.From); err != nil {
		return common.Hash{}, err
	}
	id, err := HashOperation(call, predecessor, salt)
	if err != nil {
		return common.Hash{}, err
	}
	err = sysaction.Atomic(db, func() error {
		readyAt, err := schedule(db, id, delay, ctx.Time)
		if err != nil {
			return err
		}
		log.Debug("timelock: scheduled", "id", id, "target", call.Target, "readyAt", readyAt, "proposer", ctx.From)
		return ctx.Emit(CallScheduledID, &CallScheduled{
			ID:          id,
			Target:      call.Target,
			Value:       valueOrZero(call.Value),
			Data:        call.Data,
			Predecessor: predecessor,
			ReadyAt:     readyAt,
		}, id, sysaction.Uint64Topic(0))
	})
	if err != nil {
		return common.Hash{}, err
	}
	scheduledCounter.Inc(1)
	return id, nil
}

// ScheduleBatch queues calls as one unit sharing predecessor, salt and delay.
// The batch id and every sub-call id are recorded with the same ready time.
func ScheduleBatch(ctx *sysaction.Context, calls []Call, predecessor, salt common.Hash, delay uint64) (common.Hash, error) {
	db := ctx.StateDB
	if err := access.CheckRole(db, params.TimelockAddress, access.ProposerRole, ctx.From); err != nil {
		return common.Hash{}, err
	}
	if len(calls) == 0 {
		return common.Hash{}, ErrEmptyBatch
	}
	batch, err := HashOperationBatch(calls, predecessor, salt)
	if err != nil {
		return common.Hash{}, err
	}
	err = sysaction.Atomic(db, func() error {
		readyAt, err := schedule(db, batch, delay, ctx.Time)
		if err != nil {
			return err
		}
		members := make([]common.Hash, len(calls))
		for i, call := range calls {
			id, err := HashBatchCall(call, predecessor, salt, uint64(i))
			if err != nil {
				return err
			}
			if _, err := schedule(db, id, delay, ctx.Time); err != nil {
				return fmt.Errorf("batch call %d: %w", i, err)
			}
			members[i] = id
			err = ctx.Emit(CallScheduledID, &CallScheduled{
				ID:          id,
				Batch:       batch,
				Index:       uint64(i),
				Target:      call.Target,
				Value:       valueOrZero(call.Value),
				Data:        call.Data,
				Predecessor: predecessor,
				ReadyAt:     readyAt,
			}, id, sysaction.Uint64Topic(uint64(i)))
			if err != nil {
				return err
			}
		}
		writeMembers(db, batch, members)
		log.Debug("timelock: scheduled batch", "id", batch, "calls", len(calls), "readyAt", readyAt, "proposer", ctx.From)
		return nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	scheduledCounter.Inc(int64(len(calls)))
	return batch, nil
}

// schedule records id as ready at now+delay.
func schedule(db vm.StateDB, id common.Hash, delay, now uint64) (uint64, error) {
	if IsOperation(db, id) {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyScheduled, id.Hex())
	}
	if min := GetMinDelay(db); delay < min {
		return 0, fmt.Errorf("%w: have %d, want at least %d", ErrDelayTooShort, delay, min)
	}
	if delay > params.MaxDelay {
		return 0, fmt.Errorf("%w: have %d, max %d", ErrDelayTooLong, delay, params.MaxDelay)
	}
	readyAt := now + delay
	if readyAt < now {
		return 0, fmt.Errorf("%w: ready time overflows", ErrDelayTooLong)
	}
	// 0 and DoneTimestamp are reserved markers.
	if readyAt <= DoneTimestamp {
		readyAt = DoneTimestamp + 1
	}
	setTimestamp(db, id, readyAt)
	return readyAt, nil
}

// Execute runs a ready single operation. The caller must hold ExecutorRole,
// unless that role is open (granted to the zero address). If the call
// reverts, the operation stays pending and may be retried.
func Execute(ctx *sysaction.Context, call Call, predecessor, salt common.Hash) error {
	db := ctx.StateDB
	if err := access.CheckRoleOrOpen(db, params.TimelockAddress, access.ExecutorRole, ctx.From); err != nil {
		return err
	}
	id, err := HashOperation(call, predecessor, salt)
	if err != nil {
		return err
	}
	return sysaction.Atomic(db, func() error {
		if err := beforeCall(db, id, predecessor, ctx.Time); err != nil {
			return err
		}
		if err := execute(ctx, id, 0, call); err != nil {
			return err
		}
		setTimestamp(db, id, DoneTimestamp)
		return nil
	})
}

// ExecuteBatch runs every sub-call of a ready batch in order. Either all
// sub-calls succeed and are marked executed, or none is.
func ExecuteBatch(ctx *sysaction.Context, calls []Call, predecessor, salt common.Hash) error {
	db := ctx.StateDB
	if err := access.CheckRoleOrOpen(db, params.TimelockAddress, access.ExecutorRole, ctx.From); err != nil {
		return err
	}
	if len(calls) == 0 {
		return ErrEmptyBatch
	}
	batch, err := HashOperationBatch(calls, predecessor, salt)
	if err != nil {
		return err
	}
	return sysaction.Atomic(db, func() error {
		if err := beforeCall(db, batch, predecessor, ctx.Time); err != nil {
			return err
		}
		for i, call := range calls {
			id, err := HashBatchCall(call, predecessor, salt, uint64(i))
			if err != nil {
				return err
			}
			if err := beforeCall(db, id, predecessor, ctx.Time); err != nil {
				return fmt.Errorf("batch call %d: %w", i, err)
			}
			if err := execute(ctx, id, uint64(i), call); err != nil {
				return fmt.Errorf("batch call %d: %w", i, err)
			}
			setTimestamp(db, id, DoneTimestamp)
		}
		setTimestamp(db, batch, DoneTimestamp)
		return nil
	})
}

// beforeCall checks that id is ready and its predecessor executed.
func beforeCall(db vm.StateDB, id, predecessor common.Hash, now uint64) error {
	switch ts := GetTimestamp(db, id); {
	case ts == DoneTimestamp:
		return fmt.Errorf("%w: %s", ErrAlreadyExecuted, id.Hex())
	case ts == 0:
		return fmt.Errorf("%w: %s is not scheduled", ErrNotReady, id.Hex())
	case ts > now:
		return fmt.Errorf("%w: %s ready at %d, now %d", ErrNotReady, id.Hex(), ts, now)
	}
	if predecessor != (common.Hash{}) && !IsOperationDone(db, predecessor) {
		return fmt.Errorf("%w: %s", ErrPredecessorNotExecuted, predecessor.Hex())
	}
	return nil
}

// execute performs the call as the timelock and emits CallExecuted.
func execute(ctx *sysaction.Context, id common.Hash, index uint64, call Call) error {
	if err := sysaction.Call(ctx, call.Target, call.Value, call.Data); err != nil {
		revertedCounter.Inc(1)
		log.Debug("timelock: call reverted", "id", id, "target", call.Target, "err", err)
		return fmt.Errorf("%w: %w", ErrCallReverted, err)
	}
	executedCounter.Inc(1)
	log.Debug("timelock: executed", "id", id, "index", index, "target", call.Target)
	return ctx.Emit(CallExecutedID, &CallExecuted{
		ID:     id,
		Index:  index,
		Target: call.Target,
		Value:  valueOrZero(call.Value),
		Data:   call.Data,
	}, id, sysaction.Uint64Topic(index))
}

// Cancel drops a pending operation. Cancelling a batch id drops its sub-calls
// too. The caller must hold CancellerRole.
func Cancel(ctx *sysaction.Context, id common.Hash) error {
	db := ctx.StateDB
	if err := access.CheckRole(db, params.TimelockAddress, access.CancellerRole, ctx.From); err != nil {
		return err
	}
	if !IsOperationPending(db, id) {
		return fmt.Errorf("%w: %s", ErrNotPending, id.Hex())
	}
	return sysaction.Atomic(db, func() error {
		for _, member := range readMembers(db, id) {
			setTimestamp(db, member, 0)
		}
		clearMembers(db, id)
		setTimestamp(db, id, 0)
		cancelledCounter.Inc(1)
		log.Debug("timelock: cancelled", "id", id, "canceller", ctx.From)
		return ctx.Emit(CancelledID, &Cancelled{ID: id}, id)
	})
}

// UpdateDelay changes the minimum delay. Only the timelock itself may call it,
// so a new delay must pass through the current one.
func UpdateDelay(ctx *sysaction.Context, delay uint64) error {
	if ctx.From != params.TimelockAddress {
		return fmt.Errorf("%w: caller %s must be the timelock", ErrUnauthorized, ctx.From.Hex())
	}
	if delay > params.MaxDelay {
		return fmt.Errorf("%w: have %d, max %d", ErrDelayTooLong, delay, params.MaxDelay)
	}
	old := GetMinDelay(ctx.StateDB)
	SetMinDelay(ctx.StateDB, delay)
	log.Info("timelock: min delay changed", "old", old, "new", delay)
	return ctx.Emit(MinDelayChangeID, &MinDelayChange{Old: old, New: delay})
}
