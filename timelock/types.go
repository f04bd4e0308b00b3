// Package timelock implements the operation scheduler: privileged calls are
// identified by the hash of their content, queued for at least the minimum
// delay, and executed once ready by an executor.
//
// Every operation has a ready timestamp: 0 means unknown, DoneTimestamp
// means executed, anything larger is the earliest time it may execute.
package timelock

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/tos-network/gfarm/access"
)

// DoneTimestamp marks an executed operation.
const DoneTimestamp = uint64(1)

// Sentinel errors. NotReady is retryable after waiting; the others are not.
var (
	ErrUnauthorized           = access.ErrUnauthorized
	ErrAlreadyScheduled       = errors.New("timelock: operation already scheduled")
	ErrNotReady               = errors.New("timelock: operation is not ready")
	ErrAlreadyExecuted        = errors.New("timelock: operation already executed")
	ErrPredecessorNotExecuted = errors.New("timelock: predecessor not executed")
	ErrDelayTooShort          = errors.New("timelock: insufficient delay")
	ErrDelayTooLong           = errors.New("timelock: delay exceeds maximum")
	ErrLengthMismatch         = errors.New("timelock: length mismatch")
	ErrEmptyBatch             = errors.New("timelock: empty batch")
	ErrNotPending             = errors.New("timelock: operation is not pending")
	ErrCallReverted           = errors.New("timelock: underlying call reverted")
	ErrInvalidValue           = errors.New("timelock: invalid call value")
)

// Call is one privileged call: the system action data delivered to Target
// with Value attached from the timelock's balance.
type Call struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// OperationState is the lifecycle position of an operation at a given time.
type OperationState uint8

const (
	Unset OperationState = iota
	Waiting
	Ready
	Done
)

func (s OperationState) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Ready:
		return "ready"
	case Done:
		return "done"
	}
	return "unset"
}

// Operation is the stored view of one operation.
type Operation struct {
	ID        common.Hash
	Timestamp uint64
	Members   []common.Hash // sub-call ids when ID is a batch
}

// State evaluates the operation at time now.
func (op Operation) State(now uint64) OperationState {
	switch {
	case op.Timestamp == 0:
		return Unset
	case op.Timestamp == DoneTimestamp:
		return Done
	case op.Timestamp > now:
		return Waiting
	}
	return Ready
}

// SchedulePayload is the payload for TIMELOCK_SCHEDULE.
type SchedulePayload struct {
	Target      common.Address `json:"target"`
	Value       *big.Int       `json:"value,omitempty"`
	Data        hexutil.Bytes  `json:"data"`
	Predecessor common.Hash    `json:"predecessor"`
	Salt        common.Hash    `json:"salt"`
	Delay       uint64         `json:"delay"`
}

// ExecutePayload is the payload for TIMELOCK_EXECUTE.
type ExecutePayload struct {
	Target      common.Address `json:"target"`
	Value       *big.Int       `json:"value,omitempty"`
	Data        hexutil.Bytes  `json:"data"`
	Predecessor common.Hash    `json:"predecessor"`
	Salt        common.Hash    `json:"salt"`
}

// BatchPayload is the payload for TIMELOCK_SCHEDULE_BATCH and
// TIMELOCK_EXECUTE_BATCH (Delay is ignored by the latter).
type BatchPayload struct {
	Targets     []common.Address `json:"targets"`
	Values      []*big.Int       `json:"values"`
	Payloads    []hexutil.Bytes  `json:"payloads"`
	Predecessor common.Hash      `json:"predecessor"`
	Salt        common.Hash      `json:"salt"`
	Delay       uint64           `json:"delay,omitempty"`
}

// Calls zips the parallel arrays, failing on a length mismatch.
func (p *BatchPayload) Calls() ([]Call, error) {
	if len(p.Targets) != len(p.Values) || len(p.Targets) != len(p.Payloads) {
		return nil, ErrLengthMismatch
	}
	calls := make([]Call, len(p.Targets))
	for i := range p.Targets {
		calls[i] = Call{Target: p.Targets[i], Value: p.Values[i], Data: p.Payloads[i]}
	}
	return calls, nil
}

// CancelPayload is the payload for TIMELOCK_CANCEL.
type CancelPayload struct {
	ID common.Hash `json:"id"`
}

// UpdateDelayPayload is the payload for TIMELOCK_UPDATE_DELAY.
type UpdateDelayPayload struct {
	Delay uint64 `json:"delay"`
}

// CallScheduled is the data of a CallScheduled log. It carries the full call
// so observers can rebuild the payload from the log alone. Batch is zero for
// a single operation.
type CallScheduled struct {
	ID          common.Hash
	Batch       common.Hash
	Index       uint64
	Target      common.Address
	Value       *big.Int
	Data        []byte
	Predecessor common.Hash
	ReadyAt     uint64
}

// CallExecuted is the data of a CallExecuted log.
type CallExecuted struct {
	ID     common.Hash
	Index  uint64
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// Cancelled is the data of a Cancelled log.
type Cancelled struct {
	ID common.Hash
}

// MinDelayChange is the data of a MinDelayChange log.
type MinDelayChange struct {
	Old uint64
	New uint64
}
