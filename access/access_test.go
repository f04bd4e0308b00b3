package access

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"

	"github.com/tos-network/gfarm/params"
	"github.com/tos-network/gfarm/sysaction"
)

var (
	domain = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	admin  = common.Address{0xad}
	alice  = common.Address{0xa1}
	bob    = common.Address{0xb0}
)

func newTestState() *state.StateDB {
	db := state.NewDatabase(rawdb.NewMemoryDatabase())
	s, _ := state.New(common.Hash{}, db, nil)
	return s
}

func newCtx(st *state.StateDB, from common.Address) *sysaction.Context {
	return &sysaction.Context{
		From:        from,
		To:          params.AccessRegistryAddress,
		BlockNumber: big.NewInt(1),
		StateDB:     st,
	}
}

func TestGrantRequiresAdmin(t *testing.T) {
	st := newTestState()
	Grant(st, domain, DefaultAdminRole, admin)

	if err := GrantRole(newCtx(st, alice), domain, ProposerRole, bob); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin grant: want ErrUnauthorized, got %v", err)
	}
	if err := GrantRole(newCtx(st, admin), domain, ProposerRole, bob); err != nil {
		t.Fatalf("admin grant: %v", err)
	}
	if !HasRole(st, domain, ProposerRole, bob) {
		t.Fatalf("role not granted")
	}
	if HasRole(st, common.Address{0xee}, ProposerRole, bob) {
		t.Fatalf("role leaked into another domain")
	}
	if n := len(sysaction.FilterLogs(st.Logs(), RoleGrantedID)); n != 1 {
		t.Fatalf("want 1 RoleGranted log, got %d", n)
	}
	// Granting again is a no-op without a log.
	if err := GrantRole(newCtx(st, admin), domain, ProposerRole, bob); err != nil {
		t.Fatalf("regrant: %v", err)
	}
	if n := len(sysaction.FilterLogs(st.Logs(), RoleGrantedID)); n != 1 {
		t.Fatalf("regrant emitted a log")
	}
}

func TestRoleAdminHierarchy(t *testing.T) {
	st := newTestState()
	SetRoleAdmin(st, domain, ExecutorRole, TimelockAdminRole)
	Grant(st, domain, DefaultAdminRole, admin)
	Grant(st, domain, TimelockAdminRole, alice)

	if err := GrantRole(newCtx(st, admin), domain, ExecutorRole, bob); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("default admin should not administer a role with its own admin: %v", err)
	}
	if err := GrantRole(newCtx(st, alice), domain, ExecutorRole, bob); err != nil {
		t.Fatalf("grant by role admin: %v", err)
	}
	if err := RevokeRole(newCtx(st, alice), domain, ExecutorRole, bob); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if HasRole(st, domain, ExecutorRole, bob) {
		t.Fatalf("role not revoked")
	}
}

func TestRenounceRole(t *testing.T) {
	st := newTestState()
	Grant(st, domain, CancellerRole, bob)
	if err := RenounceRole(newCtx(st, alice), domain, CancellerRole, bob); !errors.Is(err, ErrBadConfirmation) {
		t.Fatalf("want ErrBadConfirmation, got %v", err)
	}
	if err := RenounceRole(newCtx(st, bob), domain, CancellerRole, bob); err != nil {
		t.Fatalf("renounce: %v", err)
	}
	if HasRole(st, domain, CancellerRole, bob) {
		t.Fatalf("role still held")
	}
}

func TestOpenRole(t *testing.T) {
	st := newTestState()
	if err := CheckRoleOrOpen(st, domain, ExecutorRole, alice); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("closed role: want ErrUnauthorized, got %v", err)
	}
	Grant(st, domain, ExecutorRole, common.Address{})
	if err := CheckRoleOrOpen(st, domain, ExecutorRole, alice); err != nil {
		t.Fatalf("open role rejected: %v", err)
	}
	if err := CheckRole(st, domain, ExecutorRole, alice); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("CheckRole must not treat the role as open")
	}
}

func TestHandlerDispatch(t *testing.T) {
	st := newTestState()
	Grant(st, domain, DefaultAdminRole, admin)
	data := sysaction.MustMakeSysAction(sysaction.ActionAccessGrantRole, &RolePayload{Domain: domain, Role: MinterRole, Account: bob})

	wrong := newCtx(st, admin)
	wrong.To = domain
	if err := sysaction.Execute(wrong, data); !errors.Is(err, sysaction.ErrWrongTarget) {
		t.Fatalf("want ErrWrongTarget, got %v", err)
	}
	if err := sysaction.Execute(newCtx(st, admin), data); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !HasRole(st, domain, MinterRole, bob) {
		t.Fatalf("role not granted through handler")
	}
}

func TestRoleNames(t *testing.T) {
	for _, name := range []string{"admin", "timelock-admin", "proposer", "executor", "canceller", "minter"} {
		id, ok := RoleByName(name)
		if !ok || RoleName(id) != name {
			t.Fatalf("role %q does not round trip", name)
		}
	}
	if _, ok := RoleByName("nobody"); ok {
		t.Fatalf("unknown role resolved")
	}
}
