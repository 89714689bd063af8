// Command tsengine-sim is a synthetic traffic generator and soak tool for
// the reactive time-series engine. It builds a small graph — a TsdMapNode
// demultiplexing a stream of per-key float64 readings, one per-key
// sub-graph doubling its own reading — and drives it with a
// configurable-QPS generator, the way tfd-sim drives the TFD+VSA pipeline
// with synthetic S/V traffic.
//
// Usage:
//
//	go run ./cmd/tsengine-sim -keys 500 -qps 5000 -duration 30s -metrics_addr :9090
//
// Observe metrics at GET :9090/metrics once -metrics_addr is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tsengine/internal/engine"
	"tsengine/internal/engine/nested"
	"tsengine/internal/graphutil"
	"tsengine/internal/record"
	telemetry "tsengine/internal/telemetry/engine"
	"tsengine/pkg/clock"
	"tsengine/pkg/links"
	"tsengine/pkg/schema"
	"tsengine/pkg/tsvalue"
	"tsengine/pkg/value"
)

func main() {
	keys := flag.Int("keys", 500, "number of distinct simulated keys")
	qps := flag.Int("qps", 5000, "target synthetic readings per second")
	burst := flag.Int("burst", 200, "readings generated per tick")
	duration := flag.Duration("duration", 30*time.Second, "run duration; 0 for forever")
	metricsAddr := flag.String("metrics_addr", "", "if non-empty, expose Prometheus /metrics on this address")
	recordAdapter := flag.String("record_adapter", "", "snapshot sink: none|redis|kafka")
	redisAddr := flag.String("redis_addr", "", "redis address for -record_adapter=redis")
	flag.Parse()

	if *metricsAddr != "" {
		telemetry.Enable(true)
		telemetry.StartMetricsEndpoint(*metricsAddr)
		log.Printf("tsengine-sim metrics listening on %s", *metricsAddr)
	}

	sink, err := record.BuildSink(*recordAdapter, record.Options{RedisAddr: *redisAddr, RedisMarkerTTL: time.Hour})
	if err != nil {
		log.Fatalf("build record sink: %v", err)
	}

	readingMeta := schema.TS("reading", value.Float64Type)
	outputMeta := schema.TS("doubled", value.Float64Type)
	demuxMeta := schema.Dict("readings", value.Int64Type, readingMeta)
	inputMeta := schema.Bundle("sim-in", schema.Field{Name: "readings", Meta: demuxMeta})
	outputDemuxMeta := schema.Dict("doubled", value.Int64Type, outputMeta)

	mapNode, err := nested.NewTsdMapNode("doubler", inputMeta, outputDemuxMeta,
		func(key any, source *links.TSOutput) (*engine.Graph, *links.TSOutput) {
			g := engine.NewGraph(nil)
			emptyIn := schema.Bundle("in")
			n, err := engine.NewNode(fmt.Sprintf("double-%v", key),
				engine.Signature{Name: "double", Kind: "compute"}, emptyIn, outputMeta,
				func(n *engine.Node, at value.EngineTime) error {
					n.RequestSchedule(at + 1)
					f, err := value.As[float64](source.Value().Scalar().View())
					if err != nil {
						return nil
					}
					return n.Output().Value().SetScalar(graphutil.ScalarValue(value.Float64Type, f*2), at)
				})
			if err != nil {
				log.Fatalf("build per-key graph: %v", err)
			}
			if err := g.AddNode(n); err != nil {
				log.Fatalf("add per-key node: %v", err)
			}
			return g, n.Output()
		})
	if err != nil {
		log.Fatalf("build map node: %v", err)
	}

	root := engine.NewGraph(nil)
	if err := root.AddNode(mapNode.Node); err != nil {
		log.Fatalf("add map node: %v", err)
	}

	clk := clock.NewSimClock(value.EngineTime(0))
	eng := engine.NewEvaluationEngine(clk, root).WithObserver(telemetry.NewObserver())
	if err := eng.Start(); err != nil {
		log.Fatalf("start engine: %v", err)
	}

	demux, err := mapNode.Node.InputRoot().Field(0)
	if err != nil {
		log.Fatalf("resolve demux field: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(maxInt(1, *qps/maxInt(1, *burst))))
		defer ticker.Stop()
		var t value.EngineTime
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t++
				clk.SetEvaluationTime(t)
				for i := 0; i < *burst; i++ {
					k := int64(rng.Intn(*keys))
					slot, err := demux.DictPut(k, t)
					if err != nil {
						continue
					}
					_ = slot.SetScalar(graphutil.ScalarValue(value.Float64Type, rng.Float64()*100), t)
				}
				mapNode.Node.RequestSchedule(t)
				if _, err := eng.Tick(); err != nil {
					log.Printf("tick error: %v", err)
				}
				if sink != nil {
					commitSnapshot(sink, mapNode, t)
				}
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	var endTimer <-chan time.Time
	if *duration > 0 {
		endTimer = time.After(*duration)
	}
	select {
	case <-sigCh:
	case <-endTimer:
	}
	close(stop)
	_ = eng.Stop()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// commitSnapshot reads every live key's current doubled reading out of the
// map node's output TSD and writes it to sink as one batch, the way
// tfd-sim's metricSink observes each file-sink flush.
func commitSnapshot(sink record.Sink, mapNode *nested.TsdMapNode, at value.EngineTime) {
	var entries []record.Entry
	mapNode.Node.Output().Value().DictKeys(func(key any, v *tsvalue.TSValue) {
		if !v.Valid() {
			return
		}
		f, err := value.As[float64](v.Scalar().View())
		if err != nil {
			return
		}
		entries = append(entries, record.Entry{
			FQPath:   fmt.Sprintf("doubler.%v", key),
			At:       int64(at),
			Encoded:  []byte(fmt.Sprintf("%f", f)),
			CommitID: fmt.Sprintf("t%d", at),
		})
	})
	if len(entries) == 0 {
		return
	}
	if err := sink.CommitBatch(context.Background(), entries); err != nil {
		log.Printf("record commit: %v", err)
	}
}
