package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/gfarm/cmd/utils"
	"github.com/tos-network/gfarm/core"
	"github.com/tos-network/gfarm/internal/flags"
	"github.com/tos-network/gfarm/metrics"
)

var (
	proposerFlag = &cli.StringFlag{
		Name:     "proposer",
		Usage:    "Proposer and funded account of the development genesis",
		Category: flags.ChainCategory,
	}
	blocksFlag = &cli.Uint64Flag{
		Name:     "blocks",
		Usage:    "Number of blocks to seal",
		Value:    1,
		Category: flags.ChainCategory,
	}
	timeFlag = &cli.Uint64Flag{
		Name:     "time",
		Usage:    "Timestamp of the next block (default: parent time plus the block period)",
		Category: flags.ChainCategory,
	}

	initCommand = &cli.Command{
		Action:    initGenesis,
		Name:      "init",
		Usage:     "Bootstrap and initialize a new chain",
		ArgsUsage: "<genesisPath>",
		Flags:     []cli.Flag{proposerFlag},
		Description: `
The init command initializes a new chain from the genesis file given as
argument, or from the [Genesis] section of the config file. Without either,
a development genesis is written for --proposer.`,
	}
	mineCommand = &cli.Command{
		Action: mine,
		Name:   "mine",
		Usage:  "Seal empty blocks",
		Flags:  []cli.Flag{blocksFlag, timeFlag},
		Description: `
The mine command seals --blocks empty blocks. With --time the first block
carries that timestamp, which is how scheduled operations become ready.`,
	}
)

// openChain opens the chain database named by the configuration.
func openChain(ctx *cli.Context, readonly bool) (*core.BlockChain, ethdb.Database, error) {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := metrics.Setup(cfg.Metrics); err != nil {
		return nil, nil, err
	}
	db, err := openDatabase(cfg, readonly)
	if err != nil {
		return nil, nil, err
	}
	chain, err := core.NewBlockChain(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return chain, db, nil
}

func openDatabase(cfg gfarmConfig, readonly bool) (ethdb.Database, error) {
	cache := utils.SanitizeCache(cfg.Node.DatabaseCache)
	handles := utils.MakeDatabaseHandles(cfg.Node.DatabaseHandles)
	return utils.OpenDatabase(cfg.Node.DataDir, cache, handles, readonly)
}

// initGenesis is the init command.
func initGenesis(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	genesis := cfg.Genesis
	if path := ctx.Args().First(); path != "" {
		genesis = new(core.Genesis)
		if err := loadTOML(path, genesis); err != nil {
			utils.Fatalf("Failed to read genesis file: %v", err)
		}
	}
	if genesis == nil {
		if !ctx.IsSet(proposerFlag.Name) {
			utils.Fatalf("Must supply a genesis file, a config with a genesis or --%s", proposerFlag.Name)
		}
		genesis = core.DefaultGenesis(common.HexToAddress(ctx.String(proposerFlag.Name)))
	}
	db, err := openDatabase(cfg, false)
	if err != nil {
		utils.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	head, err := genesis.Commit(db)
	if err != nil {
		utils.Fatalf("Failed to write genesis block: %v", err)
	}
	log.Info("Successfully wrote genesis state", "hash", head.Hash(), "datadir", cfg.Node.DataDir)
	return nil
}

// mine is the mine command.
func mine(ctx *cli.Context) error {
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
	for i := uint64(0); i < ctx.Uint64(blocksFlag.Name); i++ {
		head, err := chain.Mine()
		if err != nil {
			return err
		}
		if i+1 == ctx.Uint64(blocksFlag.Name) {
			fmt.Printf("head: number=%d time=%d hash=%s\n", head.Number, head.Time, head.Hash().Hex())
		}
	}
	return nil
}
