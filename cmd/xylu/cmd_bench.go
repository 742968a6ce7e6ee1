package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/pkg/profile"
	"github.com/restic/chunker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/duskbound/xylu/internal/xybench"
	"github.com/duskbound/xylu/internal/xycache"
	"github.com/duskbound/xylu/internal/xyerr"
	"github.com/duskbound/xylu/internal/xymemory"
	"github.com/duskbound/xylu/internal/xyopt"
)

var benchOptions struct {
	Workers        int
	Bytes          int
	Rounds         int
	CPUProfilePath string
	MemProfilePath string
	PoolOptions    []string
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a content-defined-chunking stress workload",
	Long: `
The "bench" command splits Workers independent buffers of random data into
content-defined chunks and drives each buffer's chunk sizes through its own
xymemory.Pool and hash table, reporting aggregate allocation counts and
throughput.

Unlike restic's debug build, xylu's --cpu-profile and --mem-profile flags
are always compiled in: this is a benchmarking tool first, so there is no
release build that should ship without them.

With --rounds > 1, each worker reuses its input buffer across rounds
through a per-worker xycache.BlockCache instead of reallocating it every
round.
`,
	DisableAutoGenTag: true,
	RunE:              runBench,
}

func init() {
	f := benchCmd.Flags()
	f.IntVar(&benchOptions.Workers, "workers", runtime.GOMAXPROCS(0), "number of concurrent workers")
	f.IntVar(&benchOptions.Bytes, "bytes", 4<<20, "bytes of random input split per worker")
	f.IntVar(&benchOptions.Rounds, "rounds", 1, "workload rounds per worker, reusing input buffers via a BlockCache")
	f.StringVar(&benchOptions.CPUProfilePath, "cpu-profile", "", "write a CPU profile to `dir`")
	f.StringVar(&benchOptions.MemProfilePath, "mem-profile", "", "write a memory profile to `dir`")
	f.StringArrayVar(&benchOptions.PoolOptions, "option", nil, "pool tuning as key=value (repeatable), e.g. --option cell_max_size=8192")
	cmdRoot.AddCommand(benchCmd)
}

func startProfile() (stop func()) {
	if benchOptions.CPUProfilePath != "" && benchOptions.MemProfilePath != "" {
		fmt.Fprintln(os.Stderr, "only one of --cpu-profile and --mem-profile may be set at a time")
		return func() {}
	}
	switch {
	case benchOptions.CPUProfilePath != "":
		p := profile.Start(profile.Quiet, profile.NoShutdownHook, profile.CPUProfile, profile.ProfilePath(benchOptions.CPUProfilePath))
		return p.Stop
	case benchOptions.MemProfilePath != "":
		p := profile.Start(profile.Quiet, profile.NoShutdownHook, profile.MemProfile, profile.ProfilePath(benchOptions.MemProfilePath))
		return p.Stop
	default:
		return func() {}
	}
}

func runBench(cmd *cobra.Command, _ []string) error {
	stop := startProfile()
	defer stop()

	if benchOptions.Workers < 1 {
		return xyerr.Errorf("xylu bench: --workers must be >= 1, got %d", benchOptions.Workers)
	}
	if benchOptions.Rounds < 1 {
		return xyerr.Errorf("xylu bench: --rounds must be >= 1, got %d", benchOptions.Rounds)
	}

	pol, err := chunker.RandomPolynomial()
	if err != nil {
		return xyerr.Wrap(err, "xylu bench: generating chunker polynomial")
	}

	poolOpt, err := xyopt.Parse(xymemory.DefaultOption(), benchOptions.PoolOptions)
	if err != nil {
		return xyerr.Wrap(err, "xylu bench: parsing --option")
	}

	var mu sync.Mutex
	var total xybench.Stats
	var g errgroup.Group

	inputClass := uint64(benchOptions.Bytes)

	start := time.Now()
	for w := 0; w < benchOptions.Workers; w++ {
		g.Go(func() error {
			// Bound to this goroutine only, matching the single-thread
			// ownership xymemory.Pool and xycache.BlockCache both require.
			bufCache := xycache.New(2 * benchOptions.Bytes)

			pool := xymemory.New(poolOpt)
			defer pool.Release()

			for round := 0; round < benchOptions.Rounds; round++ {
				data, ok := bufCache.Get(inputClass)
				if !ok {
					data = make([]byte, benchOptions.Bytes)
				}
				if _, err := rand.Read(data); err != nil {
					return xyerr.Wrap(err, "xylu bench: generating input")
				}

				stats, err := xybench.Workload(pool, data, pol)
				if err != nil {
					return err
				}
				bufCache.Put(inputClass, data)

				mu.Lock()
				total.Allocations += stats.Allocations
				total.Frees += stats.Frees
				total.BytesRequested += stats.BytesRequested
				total.TableLen += stats.TableLen
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	printBenchReport(cmd, total, elapsed)
	return nil
}

func printBenchReport(cmd *cobra.Command, stats xybench.Stats, elapsed time.Duration) {
	p := message.NewPrinter(language.English)
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}

	ruleWidth := width
	if ruleWidth > 72 {
		ruleWidth = 72
	}
	rule := func() { p.Fprintln(cmd.OutOrStdout(), strings.Repeat("-", ruleWidth)) }

	rule()
	p.Fprintf(cmd.OutOrStdout(), "workers:        %d\n", benchOptions.Workers)
	p.Fprintf(cmd.OutOrStdout(), "allocations:    %d\n", stats.Allocations)
	p.Fprintf(cmd.OutOrStdout(), "frees:          %d\n", stats.Frees)
	p.Fprintf(cmd.OutOrStdout(), "bytes:          %d\n", stats.BytesRequested)
	p.Fprintf(cmd.OutOrStdout(), "live entries:   %d\n", stats.TableLen)
	p.Fprintf(cmd.OutOrStdout(), "elapsed:        %v\n", elapsed)
	if elapsed > 0 {
		mbPerSec := float64(stats.BytesRequested) / elapsed.Seconds() / (1 << 20)
		p.Fprintf(cmd.OutOrStdout(), "throughput:     %.2f MiB/s\n", mbPerSec)
	}
	rule()
}
