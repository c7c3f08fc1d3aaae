package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/delaneyj/proxyparty/cmd/benchmark/templates"
	"github.com/delaneyj/proxyparty/reactivity"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

const (
	itersKey   = "iters"
	profileKey = "profile"
	reportKey  = "report"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Measure propagation through the reactivity core",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Writes per configuration",
				Value: 100,
			},
			&cli.StringFlag{
				Name:  profileKey,
				Usage: "Write a CPU profile to this path",
			},
			&cli.StringFlag{
				Name:  reportKey,
				Usage: "Render an HTML report to this path",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

var (
	ww = []int{1, 10, 100, 1_000}
	hh = []int{1, 10, 100}
)

func run(ctx context.Context, cmd *cli.Command) error {
	iters := int(cmd.Uint(itersKey))

	if path := cmd.String(profileKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("starting profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	log.Printf("warming up")
	benchmarkCells(1, false)
	benchmarkStructural(1, false)

	var rows []templates.ReportRow
	rows = append(rows, benchmarkCells(iters, true)...)
	rows = append(rows, benchmarkStructural(iters, true)...)

	if path := cmd.String(reportKey); path != "" {
		page := templates.ReportPage(
			fmt.Sprintf("proxyparty propagation, %s iterations", humanize.Comma(int64(iters))),
			rows,
		)
		if err := os.WriteFile(path, []byte(page), 0644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		log.Printf("report written to %s", path)
	}

	return nil
}

// benchmarkCells writes a source cell feeding w chains of h derivations,
// each chain observed by one effect.
func benchmarkCells(iters int, shouldRender bool) []templates.ReportRow {
	tbl := table.NewWriter()
	tbl.SetTitle("Cell propagation")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	var rows []templates.ReportRow
	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			rs := reactivity.NewReactiveSystem(func(err error) {
				log.Panic(err)
			})
			src := reactivity.Ref(rs, 1)
			for i := 0; i < w; i++ {
				last := func() int { return src.Value().(int) }
				for j := 0; j < h; j++ {
					prev := last
					c := reactivity.Computed(rs, func(oldValue any) any {
						return prev() + 1
					})
					last = func() int { return c.Value().(int) }
				}
				read := last
				reactivity.Effect(rs, func() error {
					read()
					return nil
				})
			}

			for i := 0; i < iters; i++ {
				start := time.Now()
				src.SetValue(src.Value().(int) + 1)
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			name := fmt.Sprintf("propagate: %d * %d", w, h)
			tbl.AppendRows([]table.Row{
				{name, calc.Time.Avg, calc.Time.Min, calc.Time.P75, calc.Time.P99, calc.Time.Max},
			})
			rows = append(rows, templates.ReportRow{
				Suite: "cells",
				Name:  name,
				Avg:   calc.Time.Avg.String(),
				Min:   calc.Time.Min.String(),
				P75:   calc.Time.P75.String(),
				P99:   calc.Time.P99.String(),
				Max:   calc.Time.Max.String(),
			})
		}
	}

	if shouldRender {
		tbl.Render()
	}
	return rows
}

// benchmarkStructural writes one key of an observed object watched by h
// effects across w objects.
func benchmarkStructural(iters int, shouldRender bool) []templates.ReportRow {
	tbl := table.NewWriter()
	tbl.SetTitle("Structural propagation")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	var rows []templates.ReportRow
	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			rs := reactivity.NewReactiveSystem(func(err error) {
				log.Panic(err)
			})
			objs := make([]*reactivity.Proxy, w)
			for i := 0; i < w; i++ {
				objs[i] = reactivity.Reactive(rs, reactivity.FromMap(map[string]any{
					"n": 0,
				})).(*reactivity.Proxy)
				for j := 0; j < h; j++ {
					o := objs[i]
					reactivity.Effect(rs, func() error {
						_ = o.Get("n")
						return nil
					})
				}
			}

			for i := 0; i < iters; i++ {
				start := time.Now()
				for _, o := range objs {
					o.Set("n", i+1)
				}
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			name := fmt.Sprintf("structural: %d * %d", w, h)
			tbl.AppendRows([]table.Row{
				{name, calc.Time.Avg, calc.Time.Min, calc.Time.P75, calc.Time.P99, calc.Time.Max},
			})
			rows = append(rows, templates.ReportRow{
				Suite: "structural",
				Name:  name,
				Avg:   calc.Time.Avg.String(),
				Min:   calc.Time.Min.String(),
				P75:   calc.Time.P75.String(),
				P99:   calc.Time.P99.String(),
				Max:   calc.Time.Max.String(),
			})
		}
	}

	if shouldRender {
		tbl.Render()
	}
	return rows
}
