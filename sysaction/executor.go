package sysaction

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/log"
)

// MaxCallDepth bounds nested component calls (an operation executing an
// operation executing ...).
const MaxCallDepth = 8

var (
	ErrUnknownAction     = errors.New("unknown system action")
	ErrWrongTarget       = errors.New("system action sent to the wrong component")
	ErrCallDepth         = errors.New("max call depth exceeded")
	ErrInsufficientValue = errors.New("caller balance below attached value")
)

// Context carries information available to a system-action handler.
type Context struct {
	From        common.Address // immediate caller: an account or a component address
	To          common.Address // component the action was delivered to
	Value       *big.Int       // native value already moved From -> To
	BlockNumber *big.Int
	Time        uint64 // block timestamp, seconds
	StateDB     vm.StateDB
	Depth       int
}

// Block returns the block number as uint64 (0 if unset).
func (ctx *Context) Block() uint64 {
	if ctx.BlockNumber == nil {
		return 0
	}
	return ctx.BlockNumber.Uint64()
}

// RequireTarget fails unless the action was delivered to addr.
func (ctx *Context) RequireTarget(addr common.Address) error {
	if ctx.To != addr {
		return fmt.Errorf("%w: want %s, got %s", ErrWrongTarget, addr.Hex(), ctx.To.Hex())
	}
	return nil
}

// EmitLog appends a log entry attributed to the receiving component. Logs are
// journaled by the StateDB, so a reverted call drops them too.
func (ctx *Context) EmitLog(topics []common.Hash, data []byte) {
	var number uint64
	if ctx.BlockNumber != nil {
		number = ctx.BlockNumber.Uint64()
	}
	ctx.StateDB.AddLog(&types.Log{
		Address:     ctx.To,
		Topics:      topics,
		Data:        data,
		BlockNumber: number,
	})
}

// Handler is implemented by the timelock, farm, access, token and swap components.
type Handler interface {
	CanHandle(kind ActionKind) bool
	Handle(ctx *Context, sa *SysAction) error
}

// Registry holds registered handlers.
type Registry struct{ handlers []Handler }

// DefaultRegistry is the process-wide handler registry.
var DefaultRegistry = &Registry{}

// Register adds a handler to the registry.
func (r *Registry) Register(h Handler) { r.handlers = append(r.handlers, h) }

// Lookup returns the handler for kind, or nil.
func (r *Registry) Lookup(kind ActionKind) Handler {
	for _, h := range r.handlers {
		if h.CanHandle(kind) {
			return h
		}
	}
	return nil
}

// Execute decodes data and dispatches it to the registered handler. The call
// is atomic: on failure every state change and log made by the handler is
// reverted.
func Execute(ctx *Context, data []byte) error {
	return DefaultRegistry.Execute(ctx, data)
}

// Execute is the registry-scoped variant of the package-level Execute.
func (r *Registry) Execute(ctx *Context, data []byte) error {
	sa, err := Decode(data)
	if err != nil {
		return err
	}
	h := r.Lookup(sa.Action)
	if h == nil {
		return fmt.Errorf("%w: %q", ErrUnknownAction, sa.Action)
	}
	snap := ctx.StateDB.Snapshot()
	if err := h.Handle(ctx, sa); err != nil {
		ctx.StateDB.RevertToSnapshot(snap)
		log.Trace("sysaction: reverted", "action", sa.Action, "from", ctx.From, "to", ctx.To, "err", err)
		return err
	}
	return nil
}

// Call performs a nested call from the component executing parent to target,
// moving value from the caller's balance first. The callee sees parent.To as
// its From, which is how components recognise each other.
func Call(parent *Context, target common.Address, value *big.Int, data []byte) error {
	return DefaultRegistry.Call(parent, target, value, data)
}

// Call is the registry-scoped variant of the package-level Call.
func (r *Registry) Call(parent *Context, target common.Address, value *big.Int, data []byte) error {
	if parent.Depth+1 > MaxCallDepth {
		return ErrCallDepth
	}
	if value == nil {
		value = new(big.Int)
	}
	db := parent.StateDB
	snap := db.Snapshot()
	if value.Sign() > 0 {
		if db.GetBalance(parent.To).Cmp(value) < 0 {
			return fmt.Errorf("%w: have %v, want %v", ErrInsufficientValue, db.GetBalance(parent.To), value)
		}
		db.SubBalance(parent.To, value)
		db.AddBalance(target, value)
	}
	child := &Context{
		From:        parent.To,
		To:          target,
		Value:       value,
		BlockNumber: parent.BlockNumber,
		Time:        parent.Time,
		StateDB:     db,
		Depth:       parent.Depth + 1,
	}
	if err := r.Execute(child, data); err != nil {
		db.RevertToSnapshot(snap)
		return err
	}
	return nil
}

// Atomic runs fn and reverts db to its prior state if fn fails. Exported
// component entry points use it so they stay all-or-nothing when called
// directly rather than through Execute.
func Atomic(db vm.StateDB, fn func() error) error {
	snap := db.Snapshot()
	if err := fn(); err != nil {
		db.RevertToSnapshot(snap)
		return err
	}
	return nil
}
