package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/delaneyj/proxyparty/reactivity"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

func main() {
	log.Print("Starting layered propagation benchmark, please wait...")
	defer log.Print("Finished layered propagation benchmark")

	cfgs := []layerTestConfig{
		{
			name:           "simple component",
			width:          10,
			totalLayers:    5,
			staticFraction: 1,
			nSources:       2,
			iterations:     10_000,
		},
		{
			name:           "dynamic component",
			width:          10,
			totalLayers:    10,
			staticFraction: 0.75,
			nSources:       6,
			iterations:     3_000,
		},
		{
			name:           "wide dense",
			width:          100,
			totalLayers:    5,
			staticFraction: 1,
			nSources:       25,
			iterations:     1_000,
		},
		{
			name:           "deep",
			width:          5,
			totalLayers:    100,
			staticFraction: 1,
			nSources:       3,
			iterations:     500,
		},
	}

	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.SetHeader([]string{
		"size", "nSources", "static", "nTimes", "test", "time", "updateRate", "title",
	})

	const testRepeats = 5
	for _, cfg := range cfgs {
		log.Printf("Running '%s' config", cfg.name)
		counter := new(int64)
		rs := reactivity.NewReactiveSystem(func(err error) {
			log.Panic(err)
		})
		graph := makeLayerGraph(rs, cfg, counter)

		runOnce := func() int {
			sum := 0
			for i := 0; i < cfg.iterations; i++ {
				src := graph.sources[i%len(graph.sources)]
				src.SetValue(src.Value().(int) + 1)
				for _, leaf := range graph.leaves {
					sum += leaf.Value().(int)
				}
			}
			return sum
		}
		runOnce() // warm up

		best := time.Hour
		var bestCount int64
		for i := 0; i < testRepeats; i++ {
			*counter = 0
			start := time.Now()
			runOnce()
			duration := time.Since(start)
			if duration < best {
				best = duration
				bestCount = *counter
			}
		}

		updateRate := float64(bestCount) / (float64(best) / float64(time.Millisecond))
		tbl.Append([]string{
			fmt.Sprintf("%dx%d", cfg.width, cfg.totalLayers),
			fmt.Sprint(cfg.nSources),
			fmt.Sprint(cfg.staticFraction),
			humanize.Comma(int64(cfg.iterations)),
			cfg.name,
			fmt.Sprint(best),
			humanize.Comma(int64(updateRate)),
			makeTitle(cfg),
		})
	}
	tbl.Render()
}

type layerTestConfig struct {
	name           string  // friendly name for the test, should be unique
	width          int     // width of dependency graph to construct
	totalLayers    int     // depth of dependency graph to construct
	staticFraction float64 // fraction of nodes with a fixed source set
	nSources       int     // sources per derivation
	iterations     int     // writes per run
}

func makeTitle(cfg layerTestConfig) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("%dx%d %d sources", cfg.width, cfg.totalLayers, cfg.nSources))
	if cfg.staticFraction < 1 {
		sb.WriteString(" dynamic")
	}
	return sb.String()
}

type layerGraph struct {
	sources []*reactivity.RefCell
	leaves  []*reactivity.ComputedRef
}

// makeLayerGraph builds width sources and totalLayers-1 rows of
// derivations, each reading nSources cells from the row above. Dynamic
// nodes always read their first source and read the others only while that
// value is even, so their dep set changes between runs.
func makeLayerGraph(rs *reactivity.ReactiveSystem, cfg layerTestConfig, counter *int64) *layerGraph {
	random := rand.New(rand.NewSource(0))

	sources := make([]*reactivity.RefCell, cfg.width)
	for i := range sources {
		sources[i] = reactivity.Ref(rs, i)
	}

	readRow := make([]func() int, cfg.width)
	for i, s := range sources {
		cell := s
		readRow[i] = func() int { return cell.Value().(int) }
	}

	var leaves []*reactivity.ComputedRef
	for layer := 1; layer < cfg.totalLayers; layer++ {
		nextRow := make([]func() int, cfg.width)
		leaves = leaves[:0]
		for i := 0; i < cfg.width; i++ {
			picks := make([]func() int, cfg.nSources)
			for j := range picks {
				picks[j] = readRow[random.Intn(len(readRow))]
			}
			isStatic := random.Float64() < cfg.staticFraction
			toggle := picks[0]

			c := reactivity.Computed(rs, func(oldValue any) any {
				*counter++
				sum := 0
				if isStatic {
					for _, pick := range picks {
						sum += pick()
					}
				} else {
					// dynamic nodes read a varying subset
					sum = toggle()
					if sum%2 == 0 {
						for _, pick := range picks[1:] {
							sum += pick()
						}
					}
				}
				return sum
			})
			leaves = append(leaves, c)
			cell := c
			nextRow[i] = func() int { return cell.Value().(int) }
		}
		readRow = nextRow
	}

	out := &layerGraph{sources: sources}
	out.leaves = append(out.leaves, leaves...)
	return out
}
