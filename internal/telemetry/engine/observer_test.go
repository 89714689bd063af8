package engine

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	tsengine "tsengine/internal/engine"
	"tsengine/pkg/schema"
	"tsengine/pkg/value"
)

func TestObserverRecordsTickAndNodeMetrics(t *testing.T) {
	Enable(true)
	defer Enable(false)

	before := testutil.ToFloat64(ticksTotal)
	beforeNodes := testutil.ToFloat64(nodesEvaluatedTotal)

	inputMeta := schema.Bundle("in", schema.Field{Name: "x", Meta: schema.TS("x", value.Float64Type)})
	outputMeta := schema.TS("out", value.Float64Type)
	n, err := tsengine.NewNode("n1", tsengine.Signature{Name: "n1", Kind: "compute"},
		inputMeta, outputMeta, func(n *tsengine.Node, at value.EngineTime) error {
			return nil
		})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}

	obs := NewObserver()
	obs.OnBeforeEvaluation(1)
	obs.OnBeforeNode(n, 1)
	time.Sleep(time.Microsecond)
	obs.OnAfterNode(n, 1, nil)
	obs.OnAfterEvaluation(1)

	if got := testutil.ToFloat64(ticksTotal); got != before+1 {
		t.Fatalf("expected ticksTotal to increment by 1, got delta %v", got-before)
	}
	if got := testutil.ToFloat64(nodesEvaluatedTotal); got != beforeNodes+1 {
		t.Fatalf("expected nodesEvaluatedTotal to increment by 1, got delta %v", got-beforeNodes)
	}
}

func TestObserverNoopWhenDisabled(t *testing.T) {
	Enable(false)
	before := testutil.ToFloat64(ticksTotal)

	obs := NewObserver()
	obs.OnBeforeEvaluation(1)

	if got := testutil.ToFloat64(ticksTotal); got != before {
		t.Fatalf("expected no change while disabled, got delta %v", got-before)
	}
}

func TestObserveMeshRankRecomputeAndTryExceptCaptureGatedByEnable(t *testing.T) {
	Enable(false)
	before := testutil.ToFloat64(meshRankRecomputeTotal)
	ObserveMeshRankRecompute()
	if got := testutil.ToFloat64(meshRankRecomputeTotal); got != before {
		t.Fatalf("expected no change while disabled")
	}

	Enable(true)
	defer Enable(false)
	ObserveMeshRankRecompute()
	if got := testutil.ToFloat64(meshRankRecomputeTotal); got != before+1 {
		t.Fatalf("expected increment once enabled")
	}

	beforeCapture := testutil.ToFloat64(tryExceptCapturesTotal)
	ObserveTryExceptCapture()
	if got := testutil.ToFloat64(tryExceptCapturesTotal); got != beforeCapture+1 {
		t.Fatalf("expected TryExcept capture counter increment")
	}
}
