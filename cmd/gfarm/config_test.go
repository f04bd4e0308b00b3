package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/gfarm/params"
	"github.com/tos-network/gfarm/sysaction"
)

func TestLoadConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "gfarm.toml")
	content := `
[Node]
DataDir = "/tmp/gfarm-test"
DatabaseCache = 64

[Metrics]
Enabled = true
Port = 7070

[Genesis]
Timestamp = 42

[Genesis.Timelock]
MinDelay = 30
Proposers = ["0x0000000000000000000000000000000000000001"]

[Genesis.Farm]
RewardToken = "0x0000000000000000000000000000000000001000"
StartBlock = 5
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	cfg := defaultConfig()
	require.NoError(t, loadConfig(file, &cfg))
	require.Equal(t, "/tmp/gfarm-test", cfg.Node.DataDir)
	require.Equal(t, 64, cfg.Node.DatabaseCache)
	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, 7070, cfg.Metrics.Port)
	require.Equal(t, "127.0.0.1", cfg.Metrics.HTTP)

	require.NotNil(t, cfg.Genesis)
	require.EqualValues(t, 42, cfg.Genesis.Timestamp)
	require.EqualValues(t, 30, cfg.Genesis.Timelock.MinDelay)
	require.Equal(t, common.HexToAddress("0x01"), cfg.Genesis.Timelock.Proposers[0])
	require.Equal(t, common.HexToAddress("0x1000"), cfg.Genesis.Farm.RewardToken)
	require.EqualValues(t, 5, cfg.Genesis.Farm.StartBlock)
}

func TestLoadConfigUnknownField(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(file, []byte("[Node]\nDataDirectory = \"x\"\n"), 0644))
	cfg := defaultConfig()
	err := loadConfig(file, &cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "DataDirectory")
}

func newFlagContext(t *testing.T, fs []cli.Flag, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range fs {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestCallData(t *testing.T) {
	fs := []cli.Flag{actionFlag, payloadFlag, dataFlag}

	ctx := newFlagContext(t, fs, "--action", "FARM_DEPOSIT", "--payload", `{"pid":0,"amount":1000}`)
	data, err := callData(ctx)
	require.NoError(t, err)
	sa, err := sysaction.Decode(data)
	require.NoError(t, err)
	require.Equal(t, sysaction.ActionFarmDeposit, sa.Action)
	require.JSONEq(t, `{"pid":0,"amount":1000}`, string(sa.Payload))

	ctx = newFlagContext(t, fs, "--action", "FARM_DEPOSIT", "--payload", `{"pid":`)
	_, err = callData(ctx)
	require.Error(t, err)

	ctx = newFlagContext(t, fs, "--data", "0x7b7d")
	data, err = callData(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("{}"), data)

	ctx = newFlagContext(t, fs)
	data, err = callData(ctx)
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestParseHelpers(t *testing.T) {
	addr, err := parseAddress(params.FarmAddress.Hex())
	require.NoError(t, err)
	require.Equal(t, params.FarmAddress, addr)
	_, err = parseAddress("0x1234")
	require.Error(t, err)

	ctx := newFlagContext(t, []cli.Flag{valueFlag}, "--value", "0x10")
	v, err := parseValue(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 16, v.Int64())

	ctx = newFlagContext(t, []cli.Flag{valueFlag}, "--value", "-1")
	_, err = parseValue(ctx)
	require.Error(t, err)
}
