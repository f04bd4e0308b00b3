// Package slots holds the storage-slot derivation and 32-byte word codecs shared
// by the components that keep their records in StateDB storage.
package slots

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Key hashes (prefix || 0x00 || part[0] || 0x00 || part[1] ...) into a storage
// slot. Every part is separated so "ab"+"c" never collides with "a"+"bc".
func Key(prefix string, parts ...[]byte) common.Hash {
	size := len(prefix)
	for _, p := range parts {
		size += 1 + len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, 0x00)
		buf = append(buf, p...)
	}
	return common.BytesToHash(crypto.Keccak256(buf))
}

// Index encodes n as an 8-byte big-endian slot key part.
func Index(n uint64) []byte {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], n)
	return idx[:]
}

func ReadUint64(db vm.StateDB, owner common.Address, slot common.Hash) uint64 {
	raw := db.GetState(owner, slot)
	return binary.BigEndian.Uint64(raw[24:])
}

func WriteUint64(db vm.StateDB, owner common.Address, slot common.Hash, n uint64) {
	var word common.Hash
	binary.BigEndian.PutUint64(word[24:], n) // right-aligned in 32 bytes
	db.SetState(owner, slot, word)
}

func ReadBool(db vm.StateDB, owner common.Address, slot common.Hash) bool {
	return db.GetState(owner, slot)[31] != 0
}

func WriteBool(db vm.StateDB, owner common.Address, slot common.Hash, v bool) {
	var word common.Hash
	if v {
		word[31] = 1
	}
	db.SetState(owner, slot, word)
}

func ReadAddress(db vm.StateDB, owner common.Address, slot common.Hash) common.Address {
	raw := db.GetState(owner, slot)
	return common.BytesToAddress(raw[12:]) // address is right-aligned
}

func WriteAddress(db vm.StateDB, owner common.Address, slot common.Hash, addr common.Address) {
	var word common.Hash
	copy(word[12:], addr.Bytes())
	db.SetState(owner, slot, word)
}

func ReadHash(db vm.StateDB, owner common.Address, slot common.Hash) common.Hash {
	return db.GetState(owner, slot)
}

func WriteHash(db vm.StateDB, owner common.Address, slot common.Hash, h common.Hash) {
	db.SetState(owner, slot, h)
}

// ReadUint256 returns the slot as an unsigned 256-bit integer.
func ReadUint256(db vm.StateDB, owner common.Address, slot common.Hash) *uint256.Int {
	raw := db.GetState(owner, slot)
	return new(uint256.Int).SetBytes(raw[:])
}

func WriteUint256(db vm.StateDB, owner common.Address, slot common.Hash, v *uint256.Int) {
	db.SetState(owner, slot, common.Hash(v.Bytes32()))
}

// ReadBig is ReadUint256 converted for callers that speak *big.Int.
func ReadBig(db vm.StateDB, owner common.Address, slot common.Hash) *big.Int {
	return db.GetState(owner, slot).Big()
}
