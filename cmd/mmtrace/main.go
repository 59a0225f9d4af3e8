// Command mmtrace replays malloc lab traces against the segregated free list allocator and
// reports how much of the heap each trace managed to use.
//
//	mmtrace --check short1.rep binary.rep
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/urfave/cli"
	"github.com/vkngwrapper/segalloc/memlib"
	"github.com/vkngwrapper/segalloc/mm"
	"github.com/vkngwrapper/segalloc/trace"
	"golang.org/x/exp/slog"
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "mmtrace"
	app.Usage = "replay malloc traces against the segregated free list allocator"
	app.ArgsUsage = "TRACE..."
	app.HideVersion = true
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "chunk",
			Value: mm.DefaultChunkSize,
			Usage: "heap growth granularity in bytes",
		},
		cli.IntFlag{
			Name:  "classes",
			Value: mm.DefaultSizeClassCount,
			Usage: "number of segregated free lists",
		},
		cli.IntFlag{
			Name:  "max-heap",
			Value: memlib.DefaultMaxHeap,
			Usage: "maximum heap size in bytes",
		},
		cli.BoolFlag{
			Name:  "check,c",
			Usage: "validate the heap after every operation",
		},
		cli.BoolFlag{
			Name:  "mmap",
			Usage: "back the heap with an anonymous memory mapping",
		},
		cli.BoolFlag{
			Name:  "verbose,v",
			Usage: "log heap growth and allocator internals",
		},
		cli.BoolFlag{
			Name:  "json",
			Usage: "print each trace's final heap map as json",
		},
	}
	app.Action = func(c *cli.Context) error {
		return run(c, stdout, stderr)
	}

	return app
}

func run(c *cli.Context, stdout, stderr io.Writer) error {
	if c.NArg() == 0 {
		return errors.New("no trace files given")
	}

	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(stderr))

	var heap trace.Heap
	if c.Bool("mmap") {
		mapped, err := memlib.NewMapped(c.Int("max-heap"))
		if err != nil {
			return err
		}
		defer mapped.Close()
		heap = mapped
	} else {
		heap = memlib.New(c.Int("max-heap"))
	}

	replayer, err := trace.NewReplayer(logger, heap, trace.Options{
		Allocator: mm.CreateOptions{
			ChunkSize:      c.Int("chunk"),
			SizeClassCount: c.Int("classes"),
		},
		Check: c.Bool("check"),
	})
	if err != nil {
		return err
	}

	var failed int
	var utilization float64
	for _, path := range c.Args() {
		tr, err := trace.ParseFile(path)
		if err != nil {
			return err
		}

		result, err := replayer.Run(tr)
		if err != nil {
			failed++
			fmt.Fprintf(stdout, "%-24s FAILED: %v\n", tr.Name, err)
			continue
		}

		utilization += result.Utilization
		fmt.Fprintf(stdout, "%-24s ops=%-6d allocs=%-6d frees=%-6d reallocs=%-6d peak=%-9d heap=%-9d util=%5.1f%%\n",
			result.Name, result.Ops, result.Allocs, result.Frees, result.Reallocs,
			result.PeakPayloadBytes, result.HeapBytes, 100*result.Utilization)

		if c.Bool("json") {
			err = printHeapMap(stdout, replayer.Allocator())
			if err != nil {
				return err
			}
		}
	}

	passed := c.NArg() - failed
	if passed > 0 {
		fmt.Fprintf(stdout, "%d/%d traces passed, average utilization %.1f%%\n", passed, c.NArg(), 100*utilization/float64(passed))
	}

	if failed > 0 {
		return errors.Newf("%d of %d traces failed", failed, c.NArg())
	}

	return nil
}

func printHeapMap(w io.Writer, allocator *mm.Allocator) error {
	writer := jwriter.NewWriter()
	obj := writer.Object()
	allocator.PrintDetailedMap(&obj)
	obj.End()

	err := writer.Error()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(writer.Bytes()))
	return err
}
