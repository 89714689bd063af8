package nested

import (
	"fmt"

	"tsengine/internal/engine"
	telemetry "tsengine/internal/telemetry/engine"
	"tsengine/pkg/links"
	"tsengine/pkg/schema"
	"tsengine/pkg/tserrors"
	"tsengine/pkg/value"
)

func errMessageValue(msg string) value.Value {
	v := value.NewValue(value.StringType)
	v.Set(msg)
	return v
}

// InnerBuilder wires source (the outer node's own bound input) into a
// fresh inner graph and returns it along with the TSOutput that carries the
// inner graph's result.
type InnerBuilder func(source *links.TSOutput) (*engine.Graph, *links.TSOutput)

// TryExceptNode wraps an inner graph under a failure boundary: on success the inner output is forwarded to the outer output;
// on failure a structured tserrors.ComputeFailure is written to the error
// output and the outer output is left unmodified. Both a returned error and
// a recovered panic from the inner tick count as failure, since an
// uncaught inner panic is exactly the kind of fault this boundary exists to
// contain.
type TryExceptNode struct {
	*engine.Node
	inner       *engine.Graph
	innerClock  *Clock
	innerEngine *engine.EvaluationEngine
	innerOutput *links.TSOutput
}

// NewTryExceptNode builds a TryExceptNode. inputMeta must be a TSB whose
// field 0 is the value forwarded into the inner graph; outputMeta mirrors
// the inner graph's scalar output kind (TS or SIGNAL); errorMeta is
// typically a TS[string] capturing the failure's message.
func NewTryExceptNode(id string, inputMeta, outputMeta, errorMeta *schema.TSMeta, build InnerBuilder) (*TryExceptNode, error) {
	t := &TryExceptNode{}
	n, err := engine.NewNode(id, engine.Signature{Name: id, Kind: "nested"}, inputMeta, outputMeta, t.eval)
	if err != nil {
		return nil, err
	}
	n = n.WithErrorOut(errorMeta)
	t.Node = n
	t.innerClock = NewClock(func(value.EngineTime) {})

	// Field 0 is read once here, at construction, rather than through
	// InputRoot on every eval: the inner graph needs a stable TSOutput to
	// bind against up front. This means field 0 must be written to directly
	// (InputRoot().Root().Child(0).SetScalar(...)) rather than bound through
	// a link after construction.
	inputField, ferr := n.InputRoot().Field(0)
	if ferr != nil {
		return nil, ferr
	}
	source := links.NewTSOutput(inputField)
	graph, output := build(source)
	t.inner = graph
	t.innerOutput = output
	t.innerEngine = engine.NewEvaluationEngine(t.innerClock, graph)
	t.innerEngine.Start()
	return t, nil
}

func (t *TryExceptNode) eval(n *engine.Node, at value.EngineTime) (failureErr error) {
	defer func() {
		if r := recover(); r != nil {
			failureErr = t.captureFailure(n, at, fmt.Errorf("panic: %v", r))
		}
	}()

	t.innerClock.SetRequestedTime(at)
	if _, err := t.innerEngine.Tick(); err != nil {
		return t.captureFailure(n, at, err)
	}
	if t.innerOutput.Value().Modified(at) {
		if err := n.Output().Value().SetScalar(t.innerOutput.Value().Scalar(), at); err != nil {
			return t.captureFailure(n, at, err)
		}
	}
	return nil
}

// captureFailure writes a structured error record to the error output and
// reports success to the caller: the failure was handled at this boundary,
// so it must not propagate further up the outer graph.
func (t *TryExceptNode) captureFailure(n *engine.Node, at value.EngineTime, cause error) error {
	failure := &tserrors.ComputeFailure{NodeID: n.ID, AtTime: int64(at), Cause: cause}
	if err := n.ErrorOut().Value().SetScalar(errMessageValue(failure.Error()), at); err != nil {
		return err
	}
	telemetry.ObserveTryExceptCapture()
	return nil
}
