package timelock

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/tos-network/gfarm/internal/slots"
	"github.com/tos-network/gfarm/params"
)

var minDelaySlot = slots.Key("timelock.minDelay")

func timestampSlot(id common.Hash) common.Hash {
	return slots.Key("timelock.timestamp", id.Bytes())
}

func memberCountSlot(batch common.Hash) common.Hash {
	return slots.Key("timelock.memberCount", batch.Bytes())
}

func memberSlot(batch common.Hash, i uint64) common.Hash {
	return slots.Key("timelock.member", batch.Bytes(), slots.Index(i))
}

// GetMinDelay returns the minimum scheduling delay in seconds.
func GetMinDelay(db vm.StateDB) uint64 {
	return slots.ReadUint64(db, params.TimelockAddress, minDelaySlot)
}

// SetMinDelay writes the minimum delay without any check. Genesis-only; at
// runtime the delay changes through an executed UpdateDelay operation.
func SetMinDelay(db vm.StateDB, delay uint64) {
	slots.WriteUint64(db, params.TimelockAddress, minDelaySlot, delay)
}

// GetTimestamp returns the ready timestamp of id (0 unknown, 1 done).
func GetTimestamp(db vm.StateDB, id common.Hash) uint64 {
	return slots.ReadUint64(db, params.TimelockAddress, timestampSlot(id))
}

func setTimestamp(db vm.StateDB, id common.Hash, ts uint64) {
	slots.WriteUint64(db, params.TimelockAddress, timestampSlot(id), ts)
}

func IsOperation(db vm.StateDB, id common.Hash) bool {
	return GetTimestamp(db, id) > 0
}

func IsOperationPending(db vm.StateDB, id common.Hash) bool {
	return GetTimestamp(db, id) > DoneTimestamp
}

func IsOperationReady(db vm.StateDB, id common.Hash, now uint64) bool {
	ts := GetTimestamp(db, id)
	return ts > DoneTimestamp && ts <= now
}

func IsOperationDone(db vm.StateDB, id common.Hash) bool {
	return GetTimestamp(db, id) == DoneTimestamp
}

func readMembers(db vm.StateDB, batch common.Hash) []common.Hash {
	n := slots.ReadUint64(db, params.TimelockAddress, memberCountSlot(batch))
	if n == 0 {
		return nil
	}
	members := make([]common.Hash, n)
	for i := uint64(0); i < n; i++ {
		members[i] = slots.ReadHash(db, params.TimelockAddress, memberSlot(batch, i))
	}
	return members
}

func writeMembers(db vm.StateDB, batch common.Hash, members []common.Hash) {
	for i, id := range members {
		slots.WriteHash(db, params.TimelockAddress, memberSlot(batch, uint64(i)), id)
	}
	slots.WriteUint64(db, params.TimelockAddress, memberCountSlot(batch), uint64(len(members)))
}

func clearMembers(db vm.StateDB, batch common.Hash) {
	n := slots.ReadUint64(db, params.TimelockAddress, memberCountSlot(batch))
	for i := uint64(0); i < n; i++ {
		slots.WriteHash(db, params.TimelockAddress, memberSlot(batch, i), common.Hash{})
	}
	slots.WriteUint64(db, params.TimelockAddress, memberCountSlot(batch), 0)
}

// ReadOperation returns the stored view of id.
func ReadOperation(db vm.StateDB, id common.Hash) Operation {
	return Operation{
		ID:        id,
		Timestamp: GetTimestamp(db, id),
		Members:   readMembers(db, id),
	}
}
