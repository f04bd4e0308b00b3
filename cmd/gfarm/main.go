// gfarm is a development chain for the governance timelock and the staking
// reward farm. Every command opens the chain database, acts on it and exits.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/gfarm/cmd/utils"
	"github.com/tos-network/gfarm/internal/flags"
)

const clientIdentifier = "gfarm"

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app = flags.NewApp(gitCommit, gitDate, "the timelock-governed reward farm command line interface")

var globalFlags = []cli.Flag{
	utils.DataDirFlag,
	utils.ConfigFileFlag,
	utils.CacheFlag,
	utils.FDLimitFlag,
	utils.VerbosityFlag,
	utils.LogJSONFlag,
	utils.MetricsEnabledFlag,
	utils.MetricsEnabledExpensiveFlag,
	utils.MetricsHTTPFlag,
	utils.MetricsPortFlag,
	utils.MetricsEnableInfluxDBFlag,
	utils.MetricsInfluxDBEndpointFlag,
	utils.MetricsInfluxDBDatabaseFlag,
	utils.MetricsInfluxDBUsernameFlag,
	utils.MetricsInfluxDBPasswordFlag,
	utils.MetricsInfluxDBTagsFlag,
	utils.MetricsEnableInfluxDBV2Flag,
	utils.MetricsInfluxDBTokenFlag,
	utils.MetricsInfluxDBBucketFlag,
	utils.MetricsInfluxDBOrganizationFlag,
}

func init() {
	app.Flags = globalFlags
	app.Commands = []*cli.Command{
		initCommand,
		mineCommand,
		sendCommand,
		encodeCommand,
		hashCommand,
		poolsCommand,
		pendingCommand,
		operationCommand,
		dumpConfigCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		utils.SetupLogging(ctx.Int(utils.VerbosityFlag.Name), ctx.Bool(utils.LogJSONFlag.Name))
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
