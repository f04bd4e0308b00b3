package main

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/gfarm/core"
	"github.com/tos-network/gfarm/internal/flags"
	"github.com/tos-network/gfarm/sysaction"
	"github.com/tos-network/gfarm/timelock"
)

var (
	fromFlag = &cli.StringFlag{
		Name:     "from",
		Usage:    "Sender address",
		Required: true,
		Category: flags.MessageCategory,
	}
	toFlag = &cli.StringFlag{
		Name:     "to",
		Usage:    "Recipient address (component or asset the action is delivered to)",
		Required: true,
		Category: flags.MessageCategory,
	}
	valueFlag = &cli.StringFlag{
		Name:     "value",
		Usage:    "Native value in wei",
		Value:    "0",
		Category: flags.MessageCategory,
	}
	dataFlag = &cli.StringFlag{
		Name:     "data",
		Usage:    "Hex encoded call data",
		Category: flags.MessageCategory,
	}
	actionFlag = &cli.StringFlag{
		Name:     "action",
		Usage:    "System action kind, e.g. FARM_DEPOSIT (overrides --data)",
		Category: flags.MessageCategory,
	}
	payloadFlag = &cli.StringFlag{
		Name:     "payload",
		Usage:    "JSON payload of --action",
		Category: flags.MessageCategory,
	}
	targetFlag = &cli.StringFlag{
		Name:     "target",
		Usage:    "Target address of the scheduled call",
		Required: true,
		Category: flags.TimelockCategory,
	}
	predecessorFlag = &cli.StringFlag{
		Name:     "predecessor",
		Usage:    "Operation id that must be executed first",
		Category: flags.TimelockCategory,
	}
	saltFlag = &cli.StringFlag{
		Name:     "salt",
		Usage:    "Salt distinguishing otherwise identical operations",
		Category: flags.TimelockCategory,
	}

	sendCommand = &cli.Command{
		Action: send,
		Name:   "send",
		Usage:  "Apply a message and seal it in a block",
		Flags:  []cli.Flag{fromFlag, toFlag, valueFlag, dataFlag, actionFlag, payloadFlag, timeFlag},
		Description: `
The send command applies one message from --from to --to and seals it in a
new block. Call data is either raw --data or built from --action and
--payload.`,
	}
	encodeCommand = &cli.Command{
		Action: encode,
		Name:   "encode",
		Usage:  "Encode a system action as hex call data",
		Flags:  []cli.Flag{actionFlag, payloadFlag},
	}
	hashCommand = &cli.Command{
		Action: hashOperation,
		Name:   "hash",
		Usage:  "Compute the id of a timelock operation",
		Flags:  []cli.Flag{targetFlag, valueFlag, dataFlag, actionFlag, payloadFlag, predecessorFlag, saltFlag},
	}
)

// callData returns the call data named by --action/--payload or --data.
func callData(ctx *cli.Context) ([]byte, error) {
	if kind := ctx.String(actionFlag.Name); kind != "" {
		sa := &sysaction.SysAction{Action: sysaction.ActionKind(kind)}
		if payload := ctx.String(payloadFlag.Name); payload != "" {
			if !json.Valid([]byte(payload)) {
				return nil, fmt.Errorf("invalid JSON payload")
			}
			sa.Payload = json.RawMessage(payload)
		}
		return sysaction.Encode(sa)
	}
	if data := ctx.String(dataFlag.Name); data != "" {
		return hexutil.Decode(data)
	}
	return nil, nil
}

func parseValue(ctx *cli.Context) (*big.Int, error) {
	v, ok := new(big.Int).SetString(ctx.String(valueFlag.Name), 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid value %q", ctx.String(valueFlag.Name))
	}
	return v, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// send is the send command.
func send(ctx *cli.Context) error {
	from, err := parseAddress(ctx.String(fromFlag.Name))
	if err != nil {
		return err
	}
	to, err := parseAddress(ctx.String(toFlag.Name))
	if err != nil {
		return err
	}
	value, err := parseValue(ctx)
	if err != nil {
		return err
	}
	data, err := callData(ctx)
	if err != nil {
		return err
	}
	chain, db, err := openChain(ctx, false)
	if err != nil {
		return err
	}
	defer db.Close()

	if ctx.IsSet(timeFlag.Name) {
		if err := chain.SetPendingTime(ctx.Uint64(timeFlag.Name)); err != nil {
			return err
		}
	}
	receipt, err := chain.Apply(core.Message{From: from, To: to, Value: value, Data: data})
	if err != nil {
		return err
	}
	head, err := chain.Mine()
	if err != nil {
		return err
	}
	printReceipt(receipt, head)
	return nil
}

func printReceipt(r *core.Receipt, head *core.Header) {
	status := color.GreenString("success")
	if r.Failed() {
		status = color.RedString("reverted")
	}
	fmt.Printf("message %s in block %d (time %d): %s\n", r.TxHash.Hex(), head.Number, head.Time, status)
	if r.Err != nil {
		fmt.Printf("  error: %v\n", r.Err)
	}
	for _, l := range r.Logs {
		fmt.Printf("  log %d from %s topic0=%s data=%d bytes\n", l.Index, l.Address.Hex(), l.Topics[0].Hex(), len(l.Data))
	}
}

// encode is the encode command.
func encode(ctx *cli.Context) error {
	if ctx.String(actionFlag.Name) == "" {
		return fmt.Errorf("--%s is required", actionFlag.Name)
	}
	data, err := callData(ctx)
	if err != nil {
		return err
	}
	fmt.Println(hexutil.Encode(data))
	return nil
}

// hashOperation is the hash command.
func hashOperation(ctx *cli.Context) error {
	target, err := parseAddress(ctx.String(targetFlag.Name))
	if err != nil {
		return err
	}
	value, err := parseValue(ctx)
	if err != nil {
		return err
	}
	data, err := callData(ctx)
	if err != nil {
		return err
	}
	predecessor := common.HexToHash(ctx.String(predecessorFlag.Name))
	salt := common.HexToHash(ctx.String(saltFlag.Name))
	id, err := timelock.HashOperation(timelock.Call{Target: target, Value: value, Data: data}, predecessor, salt)
	if err != nil {
		return err
	}
	fmt.Println(id.Hex())
	return nil
}
