package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/gfarm/cmd/utils"
	"github.com/tos-network/gfarm/core"
	"github.com/tos-network/gfarm/metrics"
)

var dumpConfigCommand = &cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Show configuration values",
	ArgsUsage:   "",
	Description: `The dumpconfig command shows configuration values.`,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type nodeConfig struct {
	DataDir         string
	DatabaseCache   int
	DatabaseHandles int `toml:",omitempty"`
}

type gfarmConfig struct {
	Node    nodeConfig
	Metrics metrics.Config
	Genesis *core.Genesis `toml:",omitempty"`
}

func loadConfig(file string, cfg *gfarmConfig) error {
	return loadTOML(file, cfg)
}

func loadTOML(file string, v interface{}) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(v)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

func defaultConfig() gfarmConfig {
	return gfarmConfig{
		Node: nodeConfig{
			DataDir:       utils.DefaultDataDir(),
			DatabaseCache: utils.CacheFlag.Value,
		},
		Metrics: metrics.DefaultConfig,
	}
}

// makeConfig loads the config file, if any, and applies command line flags
// on top of it.
func makeConfig(ctx *cli.Context) (gfarmConfig, error) {
	cfg := defaultConfig()
	if file := ctx.String(utils.ConfigFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(utils.DataDirFlag.Name) {
		cfg.Node.DataDir = ctx.String(utils.DataDirFlag.Name)
	}
	if ctx.IsSet(utils.CacheFlag.Name) {
		cfg.Node.DatabaseCache = ctx.Int(utils.CacheFlag.Name)
	}
	if ctx.IsSet(utils.FDLimitFlag.Name) {
		cfg.Node.DatabaseHandles = ctx.Int(utils.FDLimitFlag.Name)
	}
	if ctx.IsSet(utils.MetricsEnabledFlag.Name) {
		cfg.Metrics.Enabled = ctx.Bool(utils.MetricsEnabledFlag.Name)
	}
	if ctx.IsSet(utils.MetricsEnabledExpensiveFlag.Name) {
		cfg.Metrics.EnabledExpensive = ctx.Bool(utils.MetricsEnabledExpensiveFlag.Name)
	}
	if ctx.IsSet(utils.MetricsHTTPFlag.Name) {
		cfg.Metrics.HTTP = ctx.String(utils.MetricsHTTPFlag.Name)
	}
	if ctx.IsSet(utils.MetricsPortFlag.Name) {
		cfg.Metrics.Port = ctx.Int(utils.MetricsPortFlag.Name)
	}
	if ctx.IsSet(utils.MetricsEnableInfluxDBFlag.Name) {
		cfg.Metrics.EnableInfluxDB = ctx.Bool(utils.MetricsEnableInfluxDBFlag.Name)
	}
	if ctx.IsSet(utils.MetricsEnableInfluxDBV2Flag.Name) {
		cfg.Metrics.EnableInfluxDBV2 = ctx.Bool(utils.MetricsEnableInfluxDBV2Flag.Name)
	}
	for flag, field := range map[string]*string{
		utils.MetricsInfluxDBEndpointFlag.Name:     &cfg.Metrics.InfluxDBEndpoint,
		utils.MetricsInfluxDBDatabaseFlag.Name:     &cfg.Metrics.InfluxDBDatabase,
		utils.MetricsInfluxDBUsernameFlag.Name:     &cfg.Metrics.InfluxDBUsername,
		utils.MetricsInfluxDBPasswordFlag.Name:     &cfg.Metrics.InfluxDBPassword,
		utils.MetricsInfluxDBTagsFlag.Name:         &cfg.Metrics.InfluxDBTags,
		utils.MetricsInfluxDBTokenFlag.Name:        &cfg.Metrics.InfluxDBToken,
		utils.MetricsInfluxDBBucketFlag.Name:       &cfg.Metrics.InfluxDBBucket,
		utils.MetricsInfluxDBOrganizationFlag.Name: &cfg.Metrics.InfluxDBOrganization,
	} {
		if ctx.IsSet(flag) {
			*field = ctx.String(flag)
		}
	}
	return cfg, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.WriteString("# Note: this config doesn't contain the genesis block unless one was loaded.\n\n")
	dump.Write(out)
	return nil
}
