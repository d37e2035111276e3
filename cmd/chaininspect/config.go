package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nrjones8/timechain/pkg/chain"
)

// config is chaininspect's optional YAML configuration file, read with
// -config. Every field is optional; zero values fall back to the chain
// package's own defaults.
type config struct {
	GraceTicks string `yaml:"grace_ticks"`
	MaxHistory *int   `yaml:"max_history"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// options turns a parsed config into chain.Option values for the generic
// any-typed chain this CLI operates on.
func (cfg config) options() ([]chain.Option[any], error) {
	var opts []chain.Option[any]
	if cfg.GraceTicks != "" {
		d, err := time.ParseDuration(cfg.GraceTicks)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chain.WithGraceTicks[any](d))
	}
	if cfg.MaxHistory != nil {
		opts = append(opts, chain.WithAuditHistorySize[any](*cfg.MaxHistory))
	}
	return opts, nil
}
