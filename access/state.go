package access

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/tos-network/gfarm/internal/slots"
	"github.com/tos-network/gfarm/params"
)

func memberSlot(domain common.Address, role common.Hash, account common.Address) common.Hash {
	return slots.Key("access.member", domain.Bytes(), role.Bytes(), account.Bytes())
}

func adminSlot(domain common.Address, role common.Hash) common.Hash {
	return slots.Key("access.admin", domain.Bytes(), role.Bytes())
}

// HasRole reports whether account holds role in domain.
func HasRole(db vm.StateDB, domain common.Address, role common.Hash, account common.Address) bool {
	return slots.ReadBool(db, params.AccessRegistryAddress, memberSlot(domain, role, account))
}

// GetRoleAdmin returns the role whose holders may grant and revoke role in domain.
func GetRoleAdmin(db vm.StateDB, domain common.Address, role common.Hash) common.Hash {
	return slots.ReadHash(db, params.AccessRegistryAddress, adminSlot(domain, role))
}

// SetRoleAdmin changes the admin role of role. It performs no permission
// check and is meant for genesis setup.
func SetRoleAdmin(db vm.StateDB, domain common.Address, role, admin common.Hash) {
	slots.WriteHash(db, params.AccessRegistryAddress, adminSlot(domain, role), admin)
}

// Grant adds account to role without a permission check. Reports whether
// membership changed.
func Grant(db vm.StateDB, domain common.Address, role common.Hash, account common.Address) bool {
	if HasRole(db, domain, role, account) {
		return false
	}
	slots.WriteBool(db, params.AccessRegistryAddress, memberSlot(domain, role, account), true)
	return true
}

// Revoke removes account from role without a permission check. Reports whether
// membership changed.
func Revoke(db vm.StateDB, domain common.Address, role common.Hash, account common.Address) bool {
	if !HasRole(db, domain, role, account) {
		return false
	}
	slots.WriteBool(db, params.AccessRegistryAddress, memberSlot(domain, role, account), false)
	return true
}

// CheckRole returns ErrUnauthorized unless account holds role in domain.
func CheckRole(db vm.StateDB, domain common.Address, role common.Hash, account common.Address) error {
	if !HasRole(db, domain, role, account) {
		return fmt.Errorf("%w: account %s is missing role %s", ErrUnauthorized, account.Hex(), RoleName(role))
	}
	return nil
}

// CheckRoleOrOpen is CheckRole, except that a role granted to the zero address
// is open to everyone.
func CheckRoleOrOpen(db vm.StateDB, domain common.Address, role common.Hash, account common.Address) error {
	if HasRole(db, domain, role, common.Address{}) {
		return nil
	}
	return CheckRole(db, domain, role, account)
}
