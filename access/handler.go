package access

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tos-network/gfarm/params"
	"github.com/tos-network/gfarm/sysaction"
)

// Event ids.
var (
	RoleGrantedID = sysaction.EventID("RoleGranted(address,bytes32,address,address)")
	RoleRevokedID = sysaction.EventID("RoleRevoked(address,bytes32,address,address)")
)

func init() {
	sysaction.DefaultRegistry.Register(&accessHandler{})
}

// accessHandler implements sysaction.Handler for role membership changes.
type accessHandler struct{}

func (h *accessHandler) CanHandle(kind sysaction.ActionKind) bool {
	switch kind {
	case sysaction.ActionAccessGrantRole,
		sysaction.ActionAccessRevokeRole,
		sysaction.ActionAccessRenounceRole:
		return true
	}
	return false
}

func (h *accessHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	if err := ctx.RequireTarget(params.AccessRegistryAddress); err != nil {
		return err
	}
	var p RolePayload
	if err := sysaction.DecodePayload(sa, &p); err != nil {
		return err
	}
	switch sa.Action {
	case sysaction.ActionAccessGrantRole:
		return GrantRole(ctx, p.Domain, p.Role, p.Account)
	case sysaction.ActionAccessRevokeRole:
		return RevokeRole(ctx, p.Domain, p.Role, p.Account)
	case sysaction.ActionAccessRenounceRole:
		return RenounceRole(ctx, p.Domain, p.Role, p.Account)
	}
	return fmt.Errorf("access handler: unsupported action %q", sa.Action)
}

// GrantRole grants role in domain to account. The caller must hold the role's
// admin role in the same domain.
func GrantRole(ctx *sysaction.Context, domain common.Address, role common.Hash, account common.Address) error {
	db := ctx.StateDB
	if err := CheckRole(db, domain, GetRoleAdmin(db, domain, role), ctx.From); err != nil {
		return err
	}
	if !Grant(db, domain, role, account) {
		return nil
	}
	log.Debug("access: role granted", "domain", domain, "role", RoleName(role), "account", account, "sender", ctx.From)
	return ctx.Emit(RoleGrantedID, &RoleChanged{domain, role, account, ctx.From},
		role, sysaction.AddressTopic(account))
}

// RevokeRole revokes role in domain from account. The caller must hold the
// role's admin role in the same domain.
func RevokeRole(ctx *sysaction.Context, domain common.Address, role common.Hash, account common.Address) error {
	db := ctx.StateDB
	if err := CheckRole(db, domain, GetRoleAdmin(db, domain, role), ctx.From); err != nil {
		return err
	}
	return revoke(ctx, domain, role, account)
}

// RenounceRole drops the caller's own membership.
func RenounceRole(ctx *sysaction.Context, domain common.Address, role common.Hash, account common.Address) error {
	if account != ctx.From {
		return ErrBadConfirmation
	}
	return revoke(ctx, domain, role, account)
}

func revoke(ctx *sysaction.Context, domain common.Address, role common.Hash, account common.Address) error {
	if !Revoke(ctx.StateDB, domain, role, account) {
		return nil
	}
	log.Debug("access: role revoked", "domain", domain, "role", RoleName(role), "account", account, "sender", ctx.From)
	return ctx.Emit(RoleRevokedID, &RoleChanged{domain, role, account, ctx.From},
		role, sysaction.AddressTopic(account))
}
