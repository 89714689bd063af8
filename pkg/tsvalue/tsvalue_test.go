package tsvalue

import (
	"testing"

	"tsengine/pkg/schema"
	"tsengine/pkg/value"
)

func scalarValue(meta *value.TypeMeta, data any) value.Value {
	v := value.NewValue(meta)
	v.Set(data)
	return v
}

func TestScalarSetBubblesToBundle(t *testing.T) {
	m := schema.Bundle("quote",
		schema.Field{Name: "bid", Meta: schema.TS("bid", value.Float64Type)},
		schema.Field{Name: "ask", Meta: schema.TS("ask", value.Float64Type)},
	)
	root := New(m)

	bid, err := root.Field("bid")
	if err != nil {
		t.Fatalf("Field(bid): %v", err)
	}
	if err := bid.SetScalar(scalarValue(value.Float64Type, 1.5), 10); err != nil {
		t.Fatalf("SetScalar: %v", err)
	}

	if !bid.Modified(10) {
		t.Fatalf("leaf should be modified at time 10")
	}
	if !root.Modified(10) {
		t.Fatalf("bundle time should bubble up to 10 (invariant: container time = max child time)")
	}
	ask, _ := root.Field("ask")
	if ask.Modified(10) {
		t.Fatalf("sibling field should not have been touched")
	}
}

func TestDictPutCreatesChildAndBubbles(t *testing.T) {
	m := schema.Dict("book", value.StringType, schema.TS("level", value.Float64Type))
	root := New(m)

	child, err := root.DictPut("AAPL", 5)
	if err != nil {
		t.Fatalf("DictPut: %v", err)
	}
	child.SetScalar(scalarValue(value.Float64Type, 100.0), 5)

	if !root.Modified(5) {
		t.Fatalf("dict should be modified after DictPut")
	}
	got, ok := root.DictGet("AAPL")
	if !ok || got != child {
		t.Fatalf("DictGet should return the same child node")
	}

	if _, ok := root.MapDelta().Added()[0]; !ok {
		t.Fatalf("expected slot 0 recorded as added in MapDelta")
	}
}

func TestDictRemoveThenWasKeyRemoved(t *testing.T) {
	m := schema.Dict("book", value.StringType, schema.TS("level", value.Float64Type))
	root := New(m)
	root.DictPut("AAPL", 1)
	root.MapDelta().EndTick()

	if err := root.DictRemove("AAPL", 2); err != nil {
		t.Fatalf("DictRemove: %v", err)
	}
	if !root.MapDelta().WasKeyRemoved("AAPL") {
		t.Fatalf("expected WasKeyRemoved(AAPL) after remove")
	}
	if _, ok := root.DictGet("AAPL"); ok {
		t.Fatalf("removed key should no longer resolve via DictGet")
	}
}

func TestSetAddRemoveCancelWithinTick(t *testing.T) {
	m := schema.Set("tags", value.StringType)
	root := New(m)

	root.SetAdd("x", 1)
	root.SetRemove("x", 1)

	if root.SetContains("x") {
		t.Fatalf("x should not be alive after add+remove in the same tick")
	}
	if len(root.SetDelta().Added()) != 0 {
		t.Fatalf("cancellation should leave no added slots")
	}
}

func TestWindowPushRingBuffer(t *testing.T) {
	m := schema.Window("recent", value.Int64Type, 3)
	root := New(m)

	for i := int64(1); i <= 5; i++ {
		root.WindowPush(scalarValue(value.Int64Type, i), value.EngineTime(i))
	}
	got := root.WindowValues()
	if len(got) != 3 {
		t.Fatalf("expected window capped at 3 samples, got %d", len(got))
	}
	v, err := value.As[int64](got[0].View())
	if err != nil {
		t.Fatalf("As[int64]: %v", err)
	}
	if v != 3 {
		t.Fatalf("expected oldest retained sample to be 3, got %d", v)
	}
}

func TestRefBindAndPath(t *testing.T) {
	targetMeta := schema.TS("price", value.Float64Type)
	refMeta := schema.Ref("ref", targetMeta)
	bundleMeta := schema.Bundle("root",
		schema.Field{Name: "underlying", Meta: targetMeta},
		schema.Field{Name: "link", Meta: refMeta},
	)
	root := New(bundleMeta)
	underlying, _ := root.Field("underlying")
	link, _ := root.Field("link")

	if err := link.Bind(underlying, 3); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if link.Target() != underlying {
		t.Fatalf("Bind should set the REF's target")
	}

	path := underlying.Path()
	if len(path) != 1 || path[0].Field != "underlying" {
		t.Fatalf("unexpected path for underlying: %#v", path)
	}
}
