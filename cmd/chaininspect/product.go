package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/nrjones8/timechain/pkg/product"
)

func runProduct(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("product", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: chaininspect product [-config FILE] CHAIN-FILE...")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	opts, err := cfg.options()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	sources := make([]product.Source, 0, len(rest))
	for _, path := range rest {
		c, initial, err := loadChain(path, opts...)
		if err != nil {
			return err
		}
		sources = append(sources, product.NewSource(sourceName(path), c, initial))
	}

	records, err := product.Join(sources)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
