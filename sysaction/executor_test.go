package sysaction

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
)

var (
	testComponent = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	testSlot      = common.HexToHash("0x01")
	errTestFail   = errors.New("handler failed")
)

func newTestState() *state.StateDB {
	db := state.NewDatabase(rawdb.NewMemoryDatabase())
	s, _ := state.New(common.Hash{}, db, nil)
	return s
}

// recordHandler writes a marker slot, emits a log and fails on request.
type recordHandler struct {
	calls []*Context
}

const (
	actionRecord ActionKind = "TEST_RECORD"
	actionFail   ActionKind = "TEST_FAIL"
	actionNest   ActionKind = "TEST_NEST"
)

type nestPayload struct {
	Depth int `json:"depth"`
}

func (h *recordHandler) CanHandle(kind ActionKind) bool {
	return kind == actionRecord || kind == actionFail || kind == actionNest
}

func (h *recordHandler) Handle(ctx *Context, sa *SysAction) error {
	h.calls = append(h.calls, ctx)
	ctx.StateDB.SetState(ctx.To, testSlot, common.HexToHash("0xff"))
	ctx.EmitLog([]common.Hash{EventID("Recorded()")}, nil)
	switch sa.Action {
	case actionFail:
		return errTestFail
	case actionNest:
		var p nestPayload
		if err := DecodePayload(sa, &p); err != nil {
			return err
		}
		if p.Depth == 0 {
			return nil
		}
		return registry.Call(ctx, testComponent, nil, MustMakeSysAction(actionNest, &nestPayload{Depth: p.Depth - 1}))
	}
	return nil
}

var registry = new(Registry)

func init() {
	registry.Register(&recordHandler{})
}

func TestExecuteDispatch(t *testing.T) {
	st := newTestState()
	ctx := &Context{From: common.Address{1}, To: testComponent, BlockNumber: big.NewInt(7), StateDB: st}
	if err := registry.Execute(ctx, MustMakeSysAction(actionRecord, nil)); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := st.GetState(testComponent, testSlot); got != common.HexToHash("0xff") {
		t.Fatalf("marker not written: %x", got)
	}
	logs := st.Logs()
	if len(logs) != 1 || logs[0].Address != testComponent || logs[0].BlockNumber != 7 {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	st := newTestState()
	err := registry.Execute(&Context{StateDB: st}, MustMakeSysAction("NOPE", nil))
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("want ErrUnknownAction, got %v", err)
	}
	if _, err := Decode([]byte("not json")); !errors.Is(err, ErrInvalidSysAction) {
		t.Fatalf("want ErrInvalidSysAction, got %v", err)
	}
}

func TestExecuteRevertsOnError(t *testing.T) {
	st := newTestState()
	ctx := &Context{To: testComponent, StateDB: st}
	if err := registry.Execute(ctx, MustMakeSysAction(actionFail, nil)); !errors.Is(err, errTestFail) {
		t.Fatalf("want handler error, got %v", err)
	}
	if got := st.GetState(testComponent, testSlot); got != (common.Hash{}) {
		t.Fatalf("state not reverted: %x", got)
	}
	if n := len(st.Logs()); n != 0 {
		t.Fatalf("logs not reverted: %d", n)
	}
}

func TestStrictPayload(t *testing.T) {
	sa := &SysAction{Action: actionNest, Payload: []byte(`{"depth":1,"extra":2}`)}
	var p nestPayload
	if err := DecodePayload(sa, &p); !errors.Is(err, ErrInvalidSysAction) {
		t.Fatalf("unknown field accepted: %v", err)
	}
}

func TestCallMovesValueAndCaller(t *testing.T) {
	st := newTestState()
	parent := common.HexToAddress("0x00000000000000000000000000000000000000b0")
	st.AddBalance(parent, big.NewInt(100))
	ctx := &Context{From: common.Address{9}, To: parent, BlockNumber: big.NewInt(1), StateDB: st}

	h := registry.handlers[0].(*recordHandler)
	h.calls = nil
	if err := registry.Call(ctx, testComponent, big.NewInt(40), MustMakeSysAction(actionRecord, nil)); err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(h.calls) != 1 || h.calls[0].From != parent || h.calls[0].Depth != 1 {
		t.Fatalf("unexpected child context: %+v", h.calls)
	}
	if st.GetBalance(parent).Int64() != 60 || st.GetBalance(testComponent).Int64() != 40 {
		t.Fatalf("value not moved: parent %v component %v", st.GetBalance(parent), st.GetBalance(testComponent))
	}
	// A failing callee gets its value back.
	if err := registry.Call(ctx, testComponent, big.NewInt(10), MustMakeSysAction(actionFail, nil)); !errors.Is(err, errTestFail) {
		t.Fatalf("want handler error, got %v", err)
	}
	if st.GetBalance(parent).Int64() != 60 {
		t.Fatalf("value of failed call not refunded: %v", st.GetBalance(parent))
	}
	if err := registry.Call(ctx, testComponent, big.NewInt(1000), MustMakeSysAction(actionRecord, nil)); !errors.Is(err, ErrInsufficientValue) {
		t.Fatalf("want ErrInsufficientValue, got %v", err)
	}
}

func TestCallDepth(t *testing.T) {
	st := newTestState()
	ctx := &Context{To: testComponent, StateDB: st}
	if err := registry.Execute(ctx, MustMakeSysAction(actionNest, &nestPayload{Depth: MaxCallDepth})); err != nil {
		t.Fatalf("nesting within the limit: %v", err)
	}
	err := registry.Execute(ctx, MustMakeSysAction(actionNest, &nestPayload{Depth: MaxCallDepth + 1}))
	if !errors.Is(err, ErrCallDepth) {
		t.Fatalf("want ErrCallDepth, got %v", err)
	}
}

func TestAtomic(t *testing.T) {
	st := newTestState()
	err := Atomic(st, func() error {
		st.SetState(testComponent, testSlot, common.HexToHash("0x02"))
		return errTestFail
	})
	if !errors.Is(err, errTestFail) || st.GetState(testComponent, testSlot) != (common.Hash{}) {
		t.Fatalf("atomic did not revert: %v", err)
	}
}

type testEvent struct {
	Who    common.Address
	Amount *big.Int
}

func TestEmitAndDecodeEvent(t *testing.T) {
	st := newTestState()
	ctx := &Context{To: testComponent, StateDB: st}
	id := EventID("Test(address,uint256)")
	who := common.Address{7}
	if err := ctx.Emit(id, &testEvent{Who: who, Amount: big.NewInt(5)}, AddressTopic(who), Uint64Topic(3)); err != nil {
		t.Fatalf("emit: %v", err)
	}
	logs := FilterLogs(st.Logs(), id)
	if len(logs) != 1 || len(logs[0].Topics) != 3 || logs[0].Topics[2] != common.BigToHash(big.NewInt(3)) {
		t.Fatalf("unexpected logs: %+v", logs)
	}
	var ev testEvent
	if err := DecodeEvent(logs[0], id, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Who != who || ev.Amount.Int64() != 5 {
		t.Fatalf("decoded %+v", ev)
	}
	if err := DecodeEvent(logs[0], EventID("Other()"), &ev); !errors.Is(err, ErrEventMismatch) {
		t.Fatalf("want ErrEventMismatch, got %v", err)
	}
}
