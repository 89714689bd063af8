// Package benchmarks measures evaluation engine throughput. Evaluation is
// single-threaded and cooperative, so the axis that matters is graph shape
// (chain length, key fanout) rather than goroutine contention.
package benchmarks

import (
	"strconv"
	"testing"

	"tsengine/internal/engine"
	"tsengine/internal/engine/nested"
	"tsengine/pkg/clock"
	"tsengine/pkg/links"
	"tsengine/pkg/schema"
	"tsengine/pkg/value"
)

func scalarValue(meta *value.TypeMeta, data any) value.Value {
	v := value.NewValue(meta)
	v.Set(data)
	return v
}

// buildChain wires a push source through n compute nodes in series, each
// adding 1 to its input, and returns the graph and the source node to
// drive every tick.
func buildChain(n int) (*engine.Graph, *engine.Node) {
	intMeta := schema.TS("v", value.Int64Type)
	emptyIn := schema.Bundle("empty")
	oneFieldIn := schema.Bundle("in", schema.Field{Name: "x", Meta: intMeta})

	g := engine.NewGraph(nil)
	src, err := engine.NewNode("src", engine.Signature{Name: "src", Kind: "push-source"}, emptyIn, intMeta,
		func(nd *engine.Node, at value.EngineTime) error {
			v, _ := nd.Scalars["value"].(int64)
			return nd.Output().Value().SetScalar(scalarValue(value.Int64Type, v), at)
		})
	if err != nil {
		panic(err)
	}
	if err := g.AddNode(src); err != nil {
		panic(err)
	}

	prev := src
	for i := 0; i < n; i++ {
		id := "n" + strconv.Itoa(i)
		nd, err := engine.NewNode(id, engine.Signature{Name: id, Kind: "compute"}, oneFieldIn, intMeta,
			func(nd *engine.Node, at value.EngineTime) error {
				field, err := nd.InputRoot().Field(0)
				if err != nil {
					return err
				}
				x, err := value.As[int64](field.Scalar().View())
				if err != nil {
					return err
				}
				return nd.Output().Value().SetScalar(scalarValue(value.Int64Type, x+1), at)
			})
		if err != nil {
			panic(err)
		}
		if err := g.AddNode(nd); err != nil {
			panic(err)
		}
		if err := g.Connect(engine.Edge{From: prev, FromIndex: -1, To: nd, ToIndex: 0}); err != nil {
			panic(err)
		}
		prev = nd
	}
	return g, src
}

// BenchmarkEngineTick_ChainLength measures one Tick's cost as a function of
// how many compute nodes a single pushed reading must propagate through
// within that same tick.
func BenchmarkEngineTick_ChainLength(b *testing.B) {
	for _, n := range []int{1, 10, 100} {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			g, src := buildChain(n)
			clk := clock.NewSimClock(value.EngineTime(0))
			eng := engine.NewEvaluationEngine(clk, g)
			if err := eng.Start(); err != nil {
				b.Fatalf("start: %v", err)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				t := value.EngineTime(i + 1)
				src.Scalars["value"] = int64(i)
				src.RequestSchedule(t)
				clk.SetEvaluationTime(t)
				if _, err := eng.Tick(); err != nil {
					b.Fatalf("tick: %v", err)
				}
			}
		})
	}
}

// BenchmarkTsdMapNode_KeyFanout measures one tick's cost as a function of
// how many live per-key sub-graphs a TsdMapNode is driving, all touched in
// the same tick.
func BenchmarkTsdMapNode_KeyFanout(b *testing.B) {
	leafMeta := schema.TS("v", value.Int64Type)
	demuxMeta := schema.Dict("demux", value.StringType, leafMeta)
	inputMeta := schema.Bundle("in", schema.Field{Name: "demux", Meta: demuxMeta})
	outputMeta := schema.Dict("out", value.StringType, leafMeta)
	oneFieldIn := schema.Bundle("in", schema.Field{Name: "x", Meta: leafMeta})

	for _, keyCount := range []int{1, 10, 100} {
		b.Run(strconv.Itoa(keyCount), func(b *testing.B) {
			sources := make(map[string]*links.TSOutput, keyCount)
			builder := nested.Builder(func(key any, source *links.TSOutput) (*engine.Graph, *links.TSOutput) {
				ks := key.(string)
				sources[ks] = source
				nd, err := engine.NewNode("double-"+ks, engine.Signature{Name: "double", Kind: "compute"}, oneFieldIn, leafMeta,
					func(nd *engine.Node, at value.EngineTime) error {
						field, err := nd.InputRoot().Field(0)
						if err != nil {
							return err
						}
						x, err := value.As[int64](field.Scalar().View())
						if err != nil {
							return err
						}
						return nd.Output().Value().SetScalar(scalarValue(value.Int64Type, x*2), at)
					})
				if err != nil {
					panic(err)
				}
				if err := nd.InputRoot().BindField(0, links.NewPeerLink(source)); err != nil {
					panic(err)
				}
				g := engine.NewGraph(nil)
				if err := g.AddNode(nd); err != nil {
					panic(err)
				}
				return g, nd.Output()
			})

			m, err := nested.NewTsdMapNode("m", inputMeta, outputMeta, builder)
			if err != nil {
				b.Fatalf("NewTsdMapNode: %v", err)
			}
			g := engine.NewGraph(nil)
			if err := g.AddNode(m.Node); err != nil {
				b.Fatalf("AddNode: %v", err)
			}
			if err := g.Start(0); err != nil {
				b.Fatalf("Start: %v", err)
			}

			demux, err := m.InputRoot().Field(0)
			if err != nil {
				b.Fatalf("Field: %v", err)
			}
			keys := make([]string, keyCount)
			for i := 0; i < keyCount; i++ {
				keys[i] = strconv.Itoa(i)
				slot, err := demux.DictPut(keys[i], 0)
				if err != nil {
					b.Fatalf("DictPut: %v", err)
				}
				if err := slot.SetScalar(scalarValue(value.Int64Type, int64(i)), 0); err != nil {
					b.Fatalf("SetScalar: %v", err)
				}
			}
			m.NotifyModified(0)
			if err := m.Node.Eval(0, nil); err != nil {
				b.Fatalf("warmup eval: %v", err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				t := value.EngineTime(i + 1)
				for _, key := range keys {
					slot, err := demux.DictPut(key, t)
					if err != nil {
						b.Fatalf("DictPut: %v", err)
					}
					if err := slot.SetScalar(scalarValue(value.Int64Type, int64(i)), t); err != nil {
						b.Fatalf("SetScalar: %v", err)
					}
					sources[key].NotifyModified(t)
				}
				m.NotifyModified(t)
				if err := m.Node.Eval(t, nil); err != nil {
					b.Fatalf("eval: %v", err)
				}
			}
		})
	}
}
