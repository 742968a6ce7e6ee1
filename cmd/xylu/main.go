// Command xylu drives the xymemory pool allocator and the
// internal/xycontain hash table from the command line: bench runs a
// content-defined-chunking stress workload against them, dump snapshots
// the resulting statistics to a compressed file, and version reports the
// build environment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/duskbound/xylu/internal/xyerr"
)

func init() {
	// don't import go.uber.org/automaxprocs to disable the log output
	_, _ = maxprocs.Set()
}

// version is overwritten at build time via -ldflags "-X main.version=...".
var version = "dev"

var globalOptions struct {
	JSON bool
}

var cmdRoot = &cobra.Command{
	Use:   "xylu",
	Short: "Stress and inspect the xylu memory pool and hash table",
	Long: `
xylu drives the block memory pool and Swiss-style hash table implemented
under internal/ from the command line, for stress testing and ad-hoc
inspection outside of the Go test suite.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
}

func init() {
	cmdRoot.PersistentFlags().BoolVar(&globalOptions.JSON, "json", false, "output in JSON format")
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		if xyerr.IsFatal(err) {
			fmt.Fprintln(os.Stderr, err.Error())
		} else {
			fmt.Fprintf(os.Stderr, "%+v\n", err)
		}
		os.Exit(1)
	}
}
