package main

import (
	"crypto/rand"
	"encoding/json"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/restic/chunker"
	"github.com/spf13/cobra"

	"github.com/duskbound/xylu/internal/xybench"
	"github.com/duskbound/xylu/internal/xyerr"
	"github.com/duskbound/xylu/internal/xymemory"
	"github.com/duskbound/xylu/internal/xyopt"
)

var dumpOptions struct {
	Bytes       int
	Output      string
	PoolOptions []string
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Run one workload and write a zstd-compressed stats snapshot",
	Long: `
The "dump" command runs a single content-defined-chunking workload through
one xymemory.Pool and hash table, then writes the resulting statistics as
zstd-compressed JSON to --output (or stdout if unset).
`,
	DisableAutoGenTag: true,
	RunE:              runDump,
}

func init() {
	f := dumpCmd.Flags()
	f.IntVar(&dumpOptions.Bytes, "bytes", 4<<20, "bytes of random input to split")
	f.StringVar(&dumpOptions.Output, "output", "", "file to write the compressed snapshot to (default stdout)")
	f.StringArrayVar(&dumpOptions.PoolOptions, "option", nil, "pool tuning as key=value (repeatable), e.g. --option cell_max_size=8192")
	cmdRoot.AddCommand(dumpCmd)
}

func runDump(_ *cobra.Command, _ []string) error {
	pol, err := chunker.RandomPolynomial()
	if err != nil {
		return xyerr.Wrap(err, "xylu dump: generating chunker polynomial")
	}

	data := make([]byte, dumpOptions.Bytes)
	if _, err := rand.Read(data); err != nil {
		return xyerr.Wrap(err, "xylu dump: generating input")
	}

	poolOpt, err := xyopt.Parse(xymemory.DefaultOption(), dumpOptions.PoolOptions)
	if err != nil {
		return xyerr.Wrap(err, "xylu dump: parsing --option")
	}

	pool := xymemory.New(poolOpt)
	defer pool.Release()

	stats, err := xybench.Workload(pool, data, pol)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return xyerr.Wrap(err, "xylu dump: marshaling stats")
	}

	out := os.Stdout
	if dumpOptions.Output != "" {
		f, err := os.Create(dumpOptions.Output)
		if err != nil {
			return xyerr.Wrap(err, "xylu dump: creating output file")
		}
		defer f.Close()
		out = f
	}

	enc, err := zstd.NewWriter(out)
	if err != nil {
		return xyerr.Wrap(err, "xylu dump: creating zstd writer")
	}
	if _, err := enc.Write(payload); err != nil {
		enc.Close()
		return xyerr.Wrap(err, "xylu dump: writing snapshot")
	}
	return enc.Close()
}
