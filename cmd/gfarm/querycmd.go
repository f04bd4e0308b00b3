package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/gfarm/farm"
	"github.com/tos-network/gfarm/internal/flags"
	"github.com/tos-network/gfarm/timelock"
)

var (
	pidFlag = &cli.Uint64Flag{
		Name:     "pid",
		Usage:    "Pool id",
		Category: flags.FarmCategory,
	}
	userFlag = &cli.StringFlag{
		Name:     "user",
		Usage:    "Staker address",
		Required: true,
		Category: flags.FarmCategory,
	}

	poolsCommand = &cli.Command{
		Action: listPools,
		Name:   "pools",
		Usage:  "List reward pools",
	}
	pendingCommand = &cli.Command{
		Action: pendingReward,
		Name:   "pending",
		Usage:  "Show the reward a staker could harvest in the next block",
		Flags:  []cli.Flag{pidFlag, userFlag},
	}
	operationCommand = &cli.Command{
		Action:    showOperation,
		Name:      "operation",
		Usage:     "Show the state of a timelock operation",
		ArgsUsage: "<id>",
	}
)

// listPools is the pools command.
func listPools(ctx *cli.Context) error {
	chain, db, err := openChain(ctx, true)
	if err != nil {
		return err
	}
	defer db.Close()

	statedb := chain.State()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"PID", "Asset", "Pair", "Alloc", "Fee (bps)", "Lockup", "Last reward", "Staked", "Acc/share"})
	for _, p := range farm.ReadPools(statedb) {
		table.Append([]string{
			strconv.FormatUint(p.ID, 10),
			p.Asset.Hex(),
			strconv.FormatBool(p.IsLiquidityPair),
			strconv.FormatUint(p.AllocPoints, 10),
			strconv.FormatUint(p.DepositFeeBPS, 10),
			strconv.FormatUint(p.LockupBlocks, 10),
			strconv.FormatUint(p.LastRewardBlock, 10),
			p.TotalStaked.String(),
			p.AccRewardPerShare.String(),
		})
	}
	table.SetFooter([]string{"", "", "", strconv.FormatUint(farm.TotalAllocPoints(statedb), 10), "", "", "", "", ""})
	table.Render()
	return nil
}

// pendingReward is the pending command.
func pendingReward(ctx *cli.Context) error {
	user, err := parseAddress(ctx.String(userFlag.Name))
	if err != nil {
		return err
	}
	chain, db, err := openChain(ctx, true)
	if err != nil {
		return err
	}
	defer db.Close()

	pid := ctx.Uint64(pidFlag.Name)
	pending, err := farm.PendingReward(chain.State(), pid, user, chain.Pending().Number)
	if err != nil {
		return err
	}
	stake, err := farm.ReadUserStake(chain.State(), pid, user)
	if err != nil {
		return err
	}
	fmt.Printf("pool %d user %s: staked=%v pending=%v lockupStarted=%d\n", pid, user.Hex(), stake.Amount, pending, stake.LockupStarted)
	return nil
}

// showOperation is the operation command.
func showOperation(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected one operation id")
	}
	id := common.HexToHash(ctx.Args().First())
	chain, db, err := openChain(ctx, true)
	if err != nil {
		return err
	}
	defer db.Close()

	op := timelock.ReadOperation(chain.State(), id)
	now := chain.Pending().Time
	fmt.Printf("operation %s: %s (timestamp %d, next block time %d)\n", id.Hex(), op.State(now), op.Timestamp, now)
	for i, m := range op.Members {
		fmt.Printf("  call %d: %s\n", i, m.Hex())
	}
	return nil
}
