// Package access implements the role registry consulted by the operation
// scheduler and the asset ledgers. Roles are scoped per domain: the same role
// id held in the timelock domain says nothing about an asset's domain.
package access

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Role ids.
var (
	// DefaultAdminRole administers every role without an explicit admin.
	DefaultAdminRole = common.Hash{}

	TimelockAdminRole = crypto.Keccak256Hash([]byte("TIMELOCK_ADMIN_ROLE"))
	ProposerRole      = crypto.Keccak256Hash([]byte("PROPOSER_ROLE"))
	ExecutorRole      = crypto.Keccak256Hash([]byte("EXECUTOR_ROLE"))
	CancellerRole     = crypto.Keccak256Hash([]byte("CANCELLER_ROLE"))
	MinterRole        = crypto.Keccak256Hash([]byte("MINTER_ROLE"))
)

var roleNames = map[common.Hash]string{
	DefaultAdminRole:  "admin",
	TimelockAdminRole: "timelock-admin",
	ProposerRole:      "proposer",
	ExecutorRole:      "executor",
	CancellerRole:     "canceller",
	MinterRole:        "minter",
}

// RoleName returns a readable name for well-known roles and the hex id otherwise.
func RoleName(role common.Hash) string {
	if name, ok := roleNames[role]; ok {
		return name
	}
	return role.Hex()
}

// RoleByName resolves a well-known role name.
func RoleByName(name string) (common.Hash, bool) {
	for id, n := range roleNames {
		if n == name {
			return id, true
		}
	}
	return common.Hash{}, false
}

// Sentinel errors returned by role checks and handlers.
var (
	ErrUnauthorized    = errors.New("access: unauthorized")
	ErrBadConfirmation = errors.New("access: can only renounce roles for self")
)

// RolePayload is the payload for ACCESS_GRANT_ROLE / ACCESS_REVOKE_ROLE /
// ACCESS_RENOUNCE_ROLE.
type RolePayload struct {
	Domain  common.Address `json:"domain"`
	Role    common.Hash    `json:"role"`
	Account common.Address `json:"account"`
}

// RoleChanged is the data of RoleGranted and RoleRevoked logs.
type RoleChanged struct {
	Domain  common.Address
	Role    common.Hash
	Account common.Address
	Sender  common.Address
}
