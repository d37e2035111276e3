package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nrjones8/timechain/pkg/chain"
	"github.com/nrjones8/timechain/pkg/jsonpatch"
	"github.com/nrjones8/timechain/pkg/slice"
)

// sliceDTO is the on-disk shape of one slice: jsonpatch.Patch already
// round-trips through encoding/json (see pkg/jsonpatch), so the only
// translation chaininspect needs is From/To/Direction bookkeeping.
type sliceDTO struct {
	From  time.Time        `json:"from"`
	To    time.Time        `json:"to"`
	Patch *jsonpatch.Patch `json:"patch,omitempty"`
}

// chainFile is the on-disk shape a chain-file argument to `at` or `product`
// must have: the entity's initial value plus an already-ordered, already
// gapless slice set, exactly as chain.WithSlices expects.
type chainFile struct {
	Direction string     `json:"direction"`
	Initial   any        `json:"initial"`
	Slices    []sliceDTO `json:"slices"`
}

func parseDirection(s string) (slice.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward":
		return slice.Forward, nil
	case "backward":
		return slice.Backward, nil
	default:
		return slice.Forward, fmt.Errorf("unknown direction %q (want \"forward\" or \"backward\")", s)
	}
}

// loadChain reads a chain file and builds the chain.Chain[any] it
// describes, applying any extra options (e.g. from a config file).
func loadChain(path string, extra ...chain.Option[any]) (*chain.Chain[any], any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var cf chainFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	dir, err := parseDirection(cf.Direction)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	slices := make([]slice.Slice, len(cf.Slices))
	for i, s := range cf.Slices {
		slices[i] = slice.Slice{From: s.From.UTC(), To: s.To.UTC(), Patch: s.Patch, Direction: dir}
	}

	opts := append([]chain.Option[any]{
		chain.WithDirection[any](dir),
		chain.WithSlices[any](slices),
	}, extra...)

	c, err := chain.New[any](opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, cf.Initial, nil
}

// sourceName derives a human-readable source name from a chain-file path,
// for use as a product.Record's state key.
func sourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
