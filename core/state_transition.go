package core

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tos-network/gfarm/sysaction"
)

// ApplyMessage applies msg to statedb in the block described by header.
//
// The value moves from msg.From to msg.To first. When msg.Data is not empty
// it is executed as a system action delivered to msg.To. A failing action
// reverts every change the message made, including the value transfer, and
// is reported in the receipt rather than as an error. An error is returned
// only when the message cannot be applied at all.
func ApplyMessage(statedb *state.StateDB, header *Header, msg Message, index int) (*Receipt, error) {
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value", ErrInsufficientFunds)
	}
	if have := statedb.GetBalance(msg.From); have.Cmp(value) < 0 {
		return nil, fmt.Errorf("%w: address %v have %v want %v", ErrInsufficientFunds, msg.From.Hex(), have, value)
	}
	txHash := messageHash(msg, header.Number, index)
	statedb.Prepare(txHash, index)

	snap := statedb.Snapshot()
	statedb.SubBalance(msg.From, value)
	statedb.AddBalance(msg.To, value)

	var execErr error
	if len(msg.Data) > 0 {
		ctx := &sysaction.Context{
			From:        msg.From,
			To:          msg.To,
			Value:       value,
			BlockNumber: new(big.Int).SetUint64(header.Number),
			Time:        header.Time,
			StateDB:     statedb,
		}
		execErr = sysaction.Execute(ctx, msg.Data)
	}
	receipt := &Receipt{TxHash: txHash, BlockNumber: header.Number, Status: ReceiptStatusSuccessful}
	if execErr != nil {
		statedb.RevertToSnapshot(snap)
		receipt.Status = ReceiptStatusFailed
		receipt.Err = execErr
		log.Debug("Message reverted", "hash", txHash, "from", msg.From, "to", msg.To, "err", execErr)
	}
	statedb.Finalise(false)

	receipt.Logs = statedb.GetLogs(txHash, common.Hash{})
	for _, l := range receipt.Logs {
		l.BlockNumber = header.Number
	}
	return receipt, nil
}
