// Package sysaction implements the system action protocol.
//
// A system action is a JSON-encoded SysAction message delivered to a component
// address (timelock, farm, access registry, swap router or an asset ledger).
// Nothing is interpreted as bytecode; Execute decodes the envelope and
// dispatches it to the handler registered for the action kind.
package sysaction

import "encoding/json"

// ActionKind identifies the type of system action.
type ActionKind string

const (
	// Operation scheduler
	ActionTimelockSchedule      ActionKind = "TIMELOCK_SCHEDULE"
	ActionTimelockScheduleBatch ActionKind = "TIMELOCK_SCHEDULE_BATCH"
	ActionTimelockExecute       ActionKind = "TIMELOCK_EXECUTE"
	ActionTimelockExecuteBatch  ActionKind = "TIMELOCK_EXECUTE_BATCH"
	ActionTimelockCancel        ActionKind = "TIMELOCK_CANCEL"
	ActionTimelockUpdateDelay   ActionKind = "TIMELOCK_UPDATE_DELAY"

	// Access registry
	ActionAccessGrantRole    ActionKind = "ACCESS_GRANT_ROLE"
	ActionAccessRevokeRole   ActionKind = "ACCESS_REVOKE_ROLE"
	ActionAccessRenounceRole ActionKind = "ACCESS_RENOUNCE_ROLE"

	// Reward ledger
	ActionFarmAddPool           ActionKind = "FARM_ADD_POOL"
	ActionFarmSetPool           ActionKind = "FARM_SET_POOL"
	ActionFarmUpdateEmission    ActionKind = "FARM_UPDATE_EMISSION"
	ActionFarmSetRewardSink     ActionKind = "FARM_SET_REWARD_SINK"
	ActionFarmUpdatePool        ActionKind = "FARM_UPDATE_POOL"
	ActionFarmMassUpdatePools   ActionKind = "FARM_MASS_UPDATE_POOLS"
	ActionFarmDeposit           ActionKind = "FARM_DEPOSIT"
	ActionFarmWithdraw          ActionKind = "FARM_WITHDRAW"
	ActionFarmEmergencyWithdraw ActionKind = "FARM_EMERGENCY_WITHDRAW"

	// Asset ledger
	ActionTokenTransfer          ActionKind = "TOKEN_TRANSFER"
	ActionTokenTransferFrom      ActionKind = "TOKEN_TRANSFER_FROM"
	ActionTokenApprove           ActionKind = "TOKEN_APPROVE"
	ActionTokenIncreaseAllowance ActionKind = "TOKEN_INCREASE_ALLOWANCE"
	ActionTokenMint              ActionKind = "TOKEN_MINT"
	ActionTokenBurn              ActionKind = "TOKEN_BURN"

	// Fee-swap router
	ActionSwapRegisterPair ActionKind = "SWAP_REGISTER_PAIR"
)

// SysAction is the top-level envelope carried as call data.
type SysAction struct {
	Action  ActionKind      `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
