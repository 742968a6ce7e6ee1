// Package xyopt parses the "key=value,key=value" extended-option strings
// accepted by cmd/xylu's --option flag into a xymemory.Option, the same
// shape as restic's internal/options package (which parses --option for
// repository/backend tuning).
package xyopt

import (
	"strconv"
	"strings"

	"github.com/duskbound/xylu/internal/xyerr"
	"github.com/duskbound/xylu/internal/xymemory"
)

// Parse splits a comma-separated list of key=value pairs and applies them
// on top of base, returning the resulting Option. Recognized keys match
// spec.md §6: chunk_min_size, chunk_min_cells, chunk_max_cells,
// cell_max_size, grow_factor.
func Parse(base xymemory.Option, args []string) (xymemory.Option, error) {
	opt := base
	for _, arg := range args {
		for _, kv := range strings.Split(arg, ",") {
			kv = strings.TrimSpace(kv)
			if kv == "" {
				continue
			}
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return opt, xyerr.Errorf("invalid option %q: expected key=value", kv)
			}
			if err := apply(&opt, strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
				return opt, err
			}
		}
	}
	return opt, nil
}

func apply(opt *xymemory.Option, key, value string) error {
	switch key {
	case "chunk_min_size":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return xyerr.Wrap(err, "chunk_min_size")
		}
		opt.ChunkMinSize = v
	case "chunk_min_cells":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return xyerr.Wrap(err, "chunk_min_cells")
		}
		opt.ChunkMinCells = v
	case "chunk_max_cells":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return xyerr.Wrap(err, "chunk_max_cells")
		}
		opt.ChunkMaxCells = v
	case "cell_max_size":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return xyerr.Wrap(err, "cell_max_size")
		}
		opt.CellMaxSize = v
	case "grow_factor":
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return xyerr.Wrap(err, "grow_factor")
		}
		opt.GrowFactor = float32(v)
	default:
		return xyerr.Errorf("unknown pool option %q", key)
	}
	return nil
}
