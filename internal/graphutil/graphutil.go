// Package graphutil holds small helpers shared by the tsengine command-line
// tools (cmd/tsengine-sim, cmd/tsengine-rt, cmd/tsengine-api): building a
// bare float64 TS "source" node a driver can push values into by setting
// Scalars["value"] and calling RequestSchedule, and a compute node summing
// a TSB of named float64 fields.
package graphutil

import (
	"fmt"

	"tsengine/internal/engine"
	"tsengine/pkg/schema"
	"tsengine/pkg/value"
)

// ScalarValue wraps data in a value.Value of the given type.
func ScalarValue(meta *value.TypeMeta, data any) value.Value {
	v := value.NewValue(meta)
	v.Set(data)
	return v
}

// NewSourceNode builds a float64 TS node with no bound inputs, whose compute
// emits whatever is currently stored at Scalars["value"]. A driver pushes a
// new reading by setting that key and calling RequestSchedule(at) before the
// next engine Tick.
func NewSourceNode(id string) (*engine.Node, error) {
	inputMeta := schema.Bundle(id + "-in")
	outputMeta := schema.TS(id, value.Float64Type)
	n, err := engine.NewNode(id, engine.Signature{Name: id, Kind: "push-source"}, inputMeta, outputMeta,
		func(n *engine.Node, at value.EngineTime) error {
			f, _ := n.Scalars["value"].(float64)
			return n.Output().Value().SetScalar(ScalarValue(value.Float64Type, f), at)
		})
	if err != nil {
		return nil, fmt.Errorf("graphutil: source node %s: %w", id, err)
	}
	return n, nil
}

// NewSumNode builds a compute node whose TSB input is fieldNames (each a
// float64 TS) and whose output is their running sum at every tick any field
// is modified.
func NewSumNode(id string, fieldNames []string) (*engine.Node, error) {
	fields := make([]schema.Field, len(fieldNames))
	for i, name := range fieldNames {
		fields[i] = schema.Field{Name: name, Meta: schema.TS(name, value.Float64Type)}
	}
	inputMeta := schema.Bundle(id+"-in", fields...)
	outputMeta := schema.TS(id, value.Float64Type)
	n, err := engine.NewNode(id, engine.Signature{Name: id, Kind: "compute"}, inputMeta, outputMeta,
		func(n *engine.Node, at value.EngineTime) error {
			var sum float64
			for i := range fieldNames {
				field, err := n.InputRoot().Field(i)
				if err != nil {
					return err
				}
				if !field.Valid() {
					continue
				}
				f, err := value.As[float64](field.Scalar().View())
				if err != nil {
					return err
				}
				sum += f
			}
			return n.Output().Value().SetScalar(ScalarValue(value.Float64Type, sum), at)
		})
	if err != nil {
		return nil, fmt.Errorf("graphutil: sum node %s: %w", id, err)
	}
	return n, nil
}
