package core

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	// ErrInsufficientFunds is returned if the sender cannot cover the value
	// of a message.
	ErrInsufficientFunds = errors.New("insufficient funds for transfer")

	// ErrTimeTravel is returned when a block timestamp precedes its parent.
	ErrTimeTravel = errors.New("block timestamp before parent")

	ErrNoGenesis = errors.New("chain database has no genesis")
)

const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Header is the sealed summary of one block.
type Header struct {
	ParentHash common.Hash
	Number     uint64
	Time       uint64
	Root       common.Hash
	TxCount    uint64
}

// Hash returns the keccak256 hash of the header's RLP encoding.
func (h Header) Hash() common.Hash {
	return rlpHash(h)
}

// Message is a call delivered to the address To. Data carries a JSON
// system action; an empty Data moves Value only.
type Message struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Receipt is the outcome of applying one message.
type Receipt struct {
	TxHash      common.Hash
	Status      uint64
	BlockNumber uint64
	Logs        []*types.Log
	Err         error `rlp:"-"`
}

// Failed reports whether the message reverted.
func (r *Receipt) Failed() bool { return r.Status == ReceiptStatusFailed }

func rlpHash(x interface{}) (h common.Hash) {
	b, err := rlp.EncodeToBytes(x)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(b)
}

// messageHash identifies msg as the index-th message of block number.
func messageHash(msg Message, number uint64, index int) common.Hash {
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}
	return rlpHash([]interface{}{msg.From, msg.To, value, msg.Data, number, uint64(index)})
}
