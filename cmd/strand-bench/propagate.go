package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/strand-ui/strand/pkg/reactive"
)

func propagateCmd() *cobra.Command {
	var (
		widths     []int
		heights    []int
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "propagate",
		Short: "Measure write propagation through W chains of H computeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPropagate(widths, heights, iterations)
		},
	}

	cmd.Flags().IntSliceVar(&widths, "widths", []int{1, 10, 100}, "chain counts to benchmark")
	cmd.Flags().IntSliceVar(&heights, "heights", []int{1, 10, 100}, "chain depths to benchmark")
	cmd.Flags().IntVar(&iterations, "iterations", 100, "writes per configuration")

	return cmd
}

func runPropagate(widths, heights []int, iterations int) error {
	tbl := table.NewWriter()
	tbl.SetTitle("Strand propagation")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "nodes", "avg", "min", "p75", "p99", "max", "heap growth"})

	for _, w := range widths {
		for _, h := range heights {
			row, err := benchGrid(w, h, iterations)
			if err != nil {
				return err
			}
			tbl.AppendRow(row)
		}
	}

	tbl.Render()
	return nil
}

// benchGrid builds w chains of h computeds over one source ref, attaches
// an effect to the tail of each chain, and times iterations writes.
func benchGrid(w, h, iterations int) (table.Row, error) {
	src := reactive.NewRef(0)
	defer src.Release()

	nodes := 0
	reruns := 0
	var stops []func()
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()

	for i := 0; i < w; i++ {
		read := src.Value
		for j := 0; j < h; j++ {
			prev := read
			c := reactive.NewComputed(func() int {
				return prev() + 1
			})
			stops = append(stops, c.Stop)
			read = c.Value
			nodes++
		}
		tail := read
		e := reactive.NewEffect(func() {
			_ = tail()
			reruns++
		})
		stops = append(stops, e.Stop)
		nodes++
	}

	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	tach := tachymeter.New(&tachymeter.Config{Size: iterations})
	for i := 1; i <= iterations; i++ {
		started := time.Now()
		src.SetValue(i)
		tach.AddTime(time.Since(started))
	}

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	expected := w + iterations*w
	if reruns != expected {
		return nil, fmt.Errorf("propagate %dx%d: expected %d effect runs, got %d", w, h, expected, reruns)
	}

	calc := tach.Calc()
	var growth uint64
	if after.HeapAlloc > before.HeapAlloc {
		growth = after.HeapAlloc - before.HeapAlloc
	}
	return table.Row{
		fmt.Sprintf("propagate %dx%d", w, h),
		humanize.Comma(int64(nodes)),
		calc.Time.Avg,
		calc.Time.Min,
		calc.Time.P75,
		calc.Time.P99,
		calc.Time.Max,
		humanize.Bytes(growth),
	}, nil
}
