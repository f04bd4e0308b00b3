package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	gethmetrics "github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/exp"
	"github.com/ethereum/go-ethereum/metrics/influxdb"
)

// Config contains the configuration for the metric collection.
type Config struct {
	Enabled          bool   `toml:",omitempty"`
	EnabledExpensive bool   `toml:",omitempty"`
	HTTP             string `toml:",omitempty"`
	Port             int    `toml:",omitempty"`
	EnableInfluxDB   bool   `toml:",omitempty"`
	InfluxDBEndpoint string `toml:",omitempty"`
	InfluxDBDatabase string `toml:",omitempty"`
	InfluxDBUsername string `toml:",omitempty"`
	InfluxDBPassword string `toml:",omitempty"`
	InfluxDBTags     string `toml:",omitempty"`

	EnableInfluxDBV2     bool   `toml:",omitempty"`
	InfluxDBToken        string `toml:",omitempty"`
	InfluxDBBucket       string `toml:",omitempty"`
	InfluxDBOrganization string `toml:",omitempty"`
}

// DefaultConfig is the default config for metrics used in gfarm.
var DefaultConfig = Config{
	Enabled:          false,
	EnabledExpensive: false,
	HTTP:             "127.0.0.1",
	Port:             6060,
	EnableInfluxDB:   false,
	InfluxDBEndpoint: "http://localhost:8086",
	InfluxDBDatabase: "gfarm",
	InfluxDBUsername: "test",
	InfluxDBPassword: "test",
	InfluxDBTags:     "host=localhost",

	// influxdbv2-specific flags
	EnableInfluxDBV2:     false,
	InfluxDBToken:        "test",
	InfluxDBBucket:       "gfarm",
	InfluxDBOrganization: "gfarm",
}

const influxInterval = 10 * time.Second

// Setup starts the configured metric exporters. Meters registered before
// metrics were enabled stay no-ops, so the process must have been started
// with --metrics for them to record.
func Setup(cfg Config) error {
	if !cfg.Enabled {
		return nil
	}
	if !gethmetrics.Enabled {
		log.Warn("Metrics requested after package initialisation; pass --metrics on the command line")
	}
	gethmetrics.EnabledExpensive = cfg.EnabledExpensive

	if cfg.EnableInfluxDB && cfg.EnableInfluxDBV2 {
		return fmt.Errorf("InfluxDB v1 and v2 exporters are mutually exclusive")
	}
	tags, err := SplitTags(cfg.InfluxDBTags)
	if err != nil {
		return err
	}
	switch {
	case cfg.EnableInfluxDB:
		log.Info("Enabling metrics export to InfluxDB", "endpoint", cfg.InfluxDBEndpoint, "database", cfg.InfluxDBDatabase)
		go influxdb.InfluxDBWithTags(gethmetrics.DefaultRegistry, influxInterval, cfg.InfluxDBEndpoint,
			cfg.InfluxDBDatabase, cfg.InfluxDBUsername, cfg.InfluxDBPassword, "gfarm.", tags)
	case cfg.EnableInfluxDBV2:
		log.Info("Enabling metrics export to InfluxDB (v2)", "endpoint", cfg.InfluxDBEndpoint, "bucket", cfg.InfluxDBBucket)
		go influxdb.InfluxDBV2WithTags(gethmetrics.DefaultRegistry, influxInterval, cfg.InfluxDBEndpoint,
			cfg.InfluxDBToken, cfg.InfluxDBBucket, cfg.InfluxDBOrganization, "gfarm.", tags)
	}

	if cfg.HTTP != "" {
		address := fmt.Sprintf("%s:%d", cfg.HTTP, cfg.Port)
		log.Info("Enabling stand-alone metrics HTTP endpoint", "address", address)
		exp.Setup(address)
	}
	return nil
}

// SplitTags parses a comma separated list of key=value pairs.
func SplitTags(s string) (map[string]string, error) {
	tags := make(map[string]string)
	if s == "" {
		return tags, nil
	}
	for _, t := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(t), "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, fmt.Errorf("invalid metrics tag %q, want key=value", t)
		}
		tags[kv[0]] = kv[1]
	}
	return tags, nil
}
