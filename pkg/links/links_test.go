package links

import (
	"testing"

	"tsengine/pkg/schema"
	"tsengine/pkg/tsvalue"
	"tsengine/pkg/value"
)

type recorder struct{ notified []value.EngineTime }

func (r *recorder) NotifyModified(at value.EngineTime) { r.notified = append(r.notified, at) }

func scalarValue(meta *value.TypeMeta, data any) value.Value {
	v := value.NewValue(meta)
	v.Set(data)
	return v
}

func TestPeerLinkSubscriptionAndResolve(t *testing.T) {
	upstream := tsvalue.New(schema.TS("x", value.Float64Type))
	output := NewTSOutput(upstream)
	link := NewPeerLink(output)

	r := &recorder{}
	link.Subscribe(r)
	upstream.SetScalar(scalarValue(value.Float64Type, 3.0), 1)
	output.NotifyModified(1)

	if len(r.notified) != 1 || r.notified[0] != 1 {
		t.Fatalf("expected one notification at time 1, got %v", r.notified)
	}
	if link.Resolve() != upstream {
		t.Fatalf("PeerLink.Resolve should return the bound output's TSValue")
	}

	link.Unsubscribe(r)
	upstream.SetScalar(scalarValue(value.Float64Type, 4.0), 2)
	output.NotifyModified(2)
	if len(r.notified) != 1 {
		t.Fatalf("unsubscribed recorder should not receive further notifications")
	}
}

func TestTSInputRootBindMakeActivePassive(t *testing.T) {
	upstream := tsvalue.New(schema.TS("x", value.Int64Type))
	output := NewTSOutput(upstream)
	link := NewPeerLink(output)

	inputMeta := schema.Bundle("in", schema.Field{Name: "x", Meta: schema.TS("x", value.Int64Type)})
	inputRoot := tsvalue.New(inputMeta)
	owner := &recorder{}
	root, err := NewTSInputRoot(inputRoot, owner)
	if err != nil {
		t.Fatalf("NewTSInputRoot: %v", err)
	}
	if err := root.BindFieldByName("x", link); err != nil {
		t.Fatalf("BindFieldByName: %v", err)
	}

	root.MakeActive()
	upstream.SetScalar(scalarValue(value.Int64Type, int64(5)), 1)
	output.NotifyModified(1)
	if len(owner.notified) != 1 {
		t.Fatalf("active input root's owner should be notified")
	}

	root.MakePassive()
	upstream.SetScalar(scalarValue(value.Int64Type, int64(6)), 2)
	output.NotifyModified(2)
	if len(owner.notified) != 1 {
		t.Fatalf("passive input root's owner should not be notified, got %v", owner.notified)
	}

	resolved, err := root.Field(0)
	if err != nil {
		t.Fatalf("Field(0): %v", err)
	}
	if resolved != upstream {
		t.Fatalf("bound field should resolve through the link even while passive")
	}
}

func TestREFLinkRebindOnSourceChange(t *testing.T) {
	targetA := tsvalue.New(schema.TS("a", value.StringType))
	targetB := tsvalue.New(schema.TS("b", value.StringType))
	outputA := NewTSOutput(targetA)
	outputB := NewTSOutput(targetB)

	refCell := tsvalue.New(schema.TS("ref", value.StringType))
	refOutput := NewTSOutput(refCell)
	refCell.SetScalar(scalarValue(value.StringType, "a"), 0)

	resolve := func(v value.View) *TSOutput {
		s, err := value.As[string](v)
		if err != nil {
			return nil
		}
		if s == "a" {
			return outputA
		}
		return outputB
	}

	link := NewREFLink(refOutput, resolve)
	if link.Resolve() != targetA {
		t.Fatalf("initial resolve should target A")
	}

	r := &recorder{}
	link.Subscribe(r)

	targetA.SetScalar(scalarValue(value.StringType, "va"), 1)
	outputA.NotifyModified(1)
	if len(r.notified) != 1 {
		t.Fatalf("change on current target should forward to subscriber")
	}

	refCell.SetScalar(scalarValue(value.StringType, "b"), 2)
	refOutput.NotifyModified(2)
	if link.Resolve() != targetB {
		t.Fatalf("rebind should switch resolution to B")
	}
	if link.LastRebindTime() != 2 {
		t.Fatalf("expected last rebind time 2, got %d", link.LastRebindTime())
	}
	if !link.Modified(2) {
		t.Fatalf("link should report modified at its own rebind time")
	}

	targetA.SetScalar(scalarValue(value.StringType, "stale"), 3)
	outputA.NotifyModified(3)
	if len(r.notified) != 2 {
		t.Fatalf("unsubscribed old target A should no longer forward notifications, got %d", len(r.notified))
	}
}
