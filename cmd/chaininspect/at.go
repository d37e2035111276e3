package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"
)

type atResult struct {
	Instant                    time.Time `json:"instant"`
	State                      any       `json:"state"`
	Skipped                    int       `json:"skipped_slices"`
	PatchesHaveBeenSkipped     bool      `json:"patches_have_been_skipped"`
	FinalDeserializationFailed bool      `json:"final_deserialization_failed"`
}

func runAt(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("at", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return fmt.Errorf("usage: chaininspect at [-config FILE] CHAIN-FILE INSTANT")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	opts, err := cfg.options()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	instant, err := time.Parse(time.RFC3339, rest[1])
	if err != nil {
		return fmt.Errorf("parsing instant %q: %w", rest[1], err)
	}

	c, initial, err := loadChain(rest[0], opts...)
	if err != nil {
		return err
	}

	res, err := c.PatchToDate(initial, instant)
	if err != nil {
		return fmt.Errorf("reconstructing %s at %s: %w", rest[0], instant, err)
	}

	out := atResult{
		Instant:                    instant,
		State:                      res.State,
		Skipped:                    len(res.Skipped),
		PatchesHaveBeenSkipped:     res.PatchesHaveBeenSkipped,
		FinalDeserializationFailed: res.FinalDeserializationFailed,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
