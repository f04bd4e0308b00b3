package sysaction

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrEventMismatch is returned when a log does not carry the requested event.
var ErrEventMismatch = errors.New("log does not match event")

// EventID returns the topic identifying an event signature.
func EventID(signature string) common.Hash {
	return crypto.Keccak256Hash([]byte(signature))
}

// AddressTopic left-pads addr into an indexed topic.
func AddressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// Uint64Topic encodes n as an indexed topic.
func Uint64Topic(n uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(n))
}

// Emit RLP-encodes ev as log data under topics (id, indexed...).
func (ctx *Context) Emit(id common.Hash, ev interface{}, indexed ...common.Hash) error {
	data, err := rlp.EncodeToBytes(ev)
	if err != nil {
		return err
	}
	topics := make([]common.Hash, 0, 1+len(indexed))
	topics = append(topics, id)
	topics = append(topics, indexed...)
	ctx.EmitLog(topics, data)
	return nil
}

// DecodeEvent decodes the data of l into ev after checking its event id.
func DecodeEvent(l *types.Log, id common.Hash, ev interface{}) error {
	if len(l.Topics) == 0 || l.Topics[0] != id {
		return ErrEventMismatch
	}
	return rlp.DecodeBytes(l.Data, ev)
}

// FilterLogs returns the logs carrying event id, in order.
func FilterLogs(logs []*types.Log, id common.Hash) []*types.Log {
	var out []*types.Log
	for _, l := range logs {
		if len(l.Topics) > 0 && l.Topics[0] == id {
			out = append(out, l)
		}
	}
	return out
}
