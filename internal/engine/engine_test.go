package engine

import (
	"testing"
	"time"

	"tsengine/pkg/schema"
	"tsengine/pkg/value"
)

func scalarValue(meta *value.TypeMeta, data any) value.Value {
	v := value.NewValue(meta)
	v.Set(data)
	return v
}

func tsFloat64Schema() (*schema.TSMeta, *schema.TSMeta) {
	in := schema.Bundle("in", schema.Field{Name: "a", Meta: schema.TS("a", value.Float64Type)})
	out := schema.TS("out", value.Float64Type)
	return in, out
}

func TestEvaluationEngineSingleNodeTick(t *testing.T) {
	in, out := tsFloat64Schema()
	n, err := NewNode("double", Signature{Name: "double", Kind: "compute"}, in, out, func(n *Node, at value.EngineTime) error {
		field, err := n.InputRoot().Field(0)
		if err != nil {
			return err
		}
		f, err := value.As[float64](field.Scalar().View())
		if err != nil {
			return err
		}
		return n.Output().Value().SetScalar(scalarValue(value.Float64Type, f*2), at)
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}

	g := NewGraph(nil)
	if err := g.AddNode(n); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	clk := newTestClock(0)
	eng := NewEvaluationEngine(clk, g)
	if err := eng.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	field, err := n.InputRoot().Root().Child(0)
	if err != nil {
		t.Fatalf("Child: %v", err)
	}
	if err := field.SetScalar(scalarValue(value.Float64Type, 21.0), 1); err != nil {
		t.Fatalf("SetScalar: %v", err)
	}
	n.NotifyModified(1)
	clk.SetEvaluationTime(1)

	at, err := eng.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if at != 1 {
		t.Fatalf("expected tick at time 1, got %d", at)
	}

	got, err := value.As[float64](n.Output().Value().Scalar().View())
	if err != nil {
		t.Fatalf("As: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected output 42, got %v", got)
	}
}

func TestEvaluationEngineLifecycleObserverOrder(t *testing.T) {
	in, out := tsFloat64Schema()
	n, err := NewNode("n1", Signature{Name: "n1", Kind: "compute"}, in, out, func(n *Node, at value.EngineTime) error {
		return n.Output().Value().SetScalar(scalarValue(value.Float64Type, 1), at)
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}

	g := NewGraph(nil)
	if err := g.AddNode(n); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	var events []string
	obs := &recordingObserver{events: &events}
	g.WithObserver(obs)

	clk := newTestClock(0)
	eng := NewEvaluationEngine(clk, g).WithObserver(obs)
	if err := eng.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	n.RequestSchedule(1)
	clk.SetEvaluationTime(1)
	if _, err := eng.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	want := []string{"started:n1", "before_eval", "before_node:n1", "after_node:n1", "after_eval"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

// TestGraphConnectFieldEdge exercises Connect with FromIndex >= 0: binding
// a downstream node to a single field of an upstream TSB output, rather
// than the whole output. The downstream node must be rescheduled purely by
// that field changing, without any direct NotifyModified call on it.
func TestGraphConnectFieldEdge(t *testing.T) {
	outMeta := schema.Bundle("out",
		schema.Field{Name: "a", Meta: schema.TS("a", value.Float64Type)},
		schema.Field{Name: "b", Meta: schema.TS("b", value.Float64Type)},
	)
	emptyIn := schema.Bundle("empty")
	src, err := NewNode("src", Signature{Name: "src", Kind: "push-source"}, emptyIn, outMeta,
		func(n *Node, at value.EngineTime) error {
			a, _ := n.Scalars["a"].(float64)
			b, _ := n.Scalars["b"].(float64)
			fieldA, err := n.Output().Value().Child(0)
			if err != nil {
				return err
			}
			if err := fieldA.SetScalar(scalarValue(value.Float64Type, a), at); err != nil {
				return err
			}
			fieldB, err := n.Output().Value().Child(1)
			if err != nil {
				return err
			}
			return fieldB.SetScalar(scalarValue(value.Float64Type, b), at)
		})
	if err != nil {
		t.Fatalf("NewNode src: %v", err)
	}

	oneFieldIn := schema.Bundle("in", schema.Field{Name: "x", Meta: schema.TS("x", value.Float64Type)})
	doubleB, err := NewNode("doubleB", Signature{Name: "doubleB", Kind: "compute"}, oneFieldIn, schema.TS("out", value.Float64Type),
		func(n *Node, at value.EngineTime) error {
			field, err := n.InputRoot().Field(0)
			if err != nil {
				return err
			}
			x, err := value.As[float64](field.Scalar().View())
			if err != nil {
				return err
			}
			return n.Output().Value().SetScalar(scalarValue(value.Float64Type, x*2), at)
		})
	if err != nil {
		t.Fatalf("NewNode doubleB: %v", err)
	}

	g := NewGraph(nil)
	if err := g.AddNode(src); err != nil {
		t.Fatalf("AddNode src: %v", err)
	}
	if err := g.AddNode(doubleB); err != nil {
		t.Fatalf("AddNode doubleB: %v", err)
	}
	// Bind doubleB's input to field 1 ("b") of src's output: the
	// FromIndex >= 0 case.
	if err := g.Connect(Edge{From: src, FromIndex: 1, To: doubleB, ToIndex: 0}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	clk := newTestClock(0)
	eng := NewEvaluationEngine(clk, g)
	if err := eng.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	src.Scalars["a"] = 1.0
	src.Scalars["b"] = 5.0
	src.RequestSchedule(1)
	clk.SetEvaluationTime(1)
	if _, err := eng.Tick(); err != nil {
		t.Fatalf("Tick 1: %v", err)
	}
	got, err := value.As[float64](doubleB.Output().Value().Scalar().View())
	if err != nil {
		t.Fatalf("As: %v", err)
	}
	if got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}

	// Second tick: only src is scheduled directly; doubleB must be
	// rescheduled purely by the field-edge subscription firing.
	src.Scalars["b"] = 7.0
	src.RequestSchedule(2)
	clk.SetEvaluationTime(2)
	if _, err := eng.Tick(); err != nil {
		t.Fatalf("Tick 2: %v", err)
	}
	got, err = value.As[float64](doubleB.Output().Value().Scalar().View())
	if err != nil {
		t.Fatalf("As: %v", err)
	}
	if got != 14 {
		t.Fatalf("expected field-edge notification to reschedule doubleB, got %v want 14", got)
	}
}

type recordingObserver struct {
	NopObserver
	events *[]string
}

func (r *recordingObserver) OnNodeStarted(n *Node, at value.EngineTime) {
	*r.events = append(*r.events, "started:"+n.ID)
}
func (r *recordingObserver) OnBeforeEvaluation(at value.EngineTime) {
	*r.events = append(*r.events, "before_eval")
}
func (r *recordingObserver) OnBeforeNode(n *Node, at value.EngineTime) {
	*r.events = append(*r.events, "before_node:"+n.ID)
}
func (r *recordingObserver) OnAfterNode(n *Node, at value.EngineTime, err error) {
	*r.events = append(*r.events, "after_node:"+n.ID)
}
func (r *recordingObserver) OnAfterEvaluation(at value.EngineTime) {
	*r.events = append(*r.events, "after_eval")
}

// testClock is a minimal EngineEvaluationClock double: AdvanceToNextScheduledTime
// and UpdateNextScheduledEvaluationTime are no-ops driven by the test calling
// SetEvaluationTime directly, matching SimClock's "instant jump" semantics
// without pulling pkg/clock into this test's import graph for alarms/push.
type testClock struct {
	at   value.EngineTime
	next value.EngineTime
}

func newTestClock(start value.EngineTime) *testClock {
	return &testClock{at: start, next: value.MinTime}
}

func (c *testClock) SetEvaluationTime(t value.EngineTime)        { c.at = t }
func (c *testClock) EvaluationTime() value.EngineTime            { return c.at }
func (c *testClock) Now() value.EngineTime                       { return c.at }
func (c *testClock) CycleTime() time.Duration                    { return 0 }
func (c *testClock) NextScheduledEvaluationTime() value.EngineTime { return c.next }
func (c *testClock) UpdateNextScheduledEvaluationTime(t value.EngineTime) {
	if t > c.at && (c.next == value.MinTime || t < c.next) {
		c.next = t
	}
}
func (c *testClock) AdvanceToNextScheduledTime() {}
func (c *testClock) SetAlarm(t value.EngineTime, name string, cb func()) {}
func (c *testClock) CancelAlarm(name string)                            {}
func (c *testClock) RequirePushScheduling()                             {}
func (c *testClock) ConsumePushScheduling() bool                        { return false }
