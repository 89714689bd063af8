package engine

import (
	"tsengine/pkg/clock"
	"tsengine/pkg/value"
)

// EvaluationEngine drives one or more graphs through a
// five-step tick: advance the clock, fire before_evaluation, evaluate every
// scheduled node per graph in registration order, fire after_evaluation,
// then recompute the next scheduled time. It generalizes core/worker.go's
// single fixed-interval ticker loop into a graph-driven variable-interval
// loop, where "what to wake up for next" comes from the nodes themselves
// rather than a constant Duration.
type EvaluationEngine struct {
	Clock    clock.EngineEvaluationClock
	Graphs   []*Graph
	observer LifecycleObserver

	stopRequested bool
}

// NewEvaluationEngine builds an engine over clk driving graphs in the given
// order (a graph's own internal node order is its registration order).
func NewEvaluationEngine(clk clock.EngineEvaluationClock, graphs ...*Graph) *EvaluationEngine {
	return &EvaluationEngine{Clock: clk, Graphs: graphs, observer: NopObserver{}}
}

// WithObserver attaches a top-level lifecycle observer (composed with each
// Graph's own observer, if any, via NewMultiObserver at the call site).
func (e *EvaluationEngine) WithObserver(obs LifecycleObserver) *EvaluationEngine {
	if obs == nil {
		obs = NopObserver{}
	}
	e.observer = obs
	return e
}

// Start brings every graph's nodes up at the clock's current evaluation
// time.
func (e *EvaluationEngine) Start() error {
	at := e.Clock.EvaluationTime()
	for _, g := range e.Graphs {
		if err := g.Start(at); err != nil {
			return err
		}
	}
	return nil
}

// Stop requests the loop exit after the current tick and tears every
// graph's nodes down.
func (e *EvaluationEngine) Stop() error {
	e.stopRequested = true
	for _, g := range e.Graphs {
		if err := g.Stop(); err != nil {
			return err
		}
	}
	return nil
}

// Tick runs exactly one evaluation cycle (the five steps below) and
// returns the evaluation time it ran at.
func (e *EvaluationEngine) Tick() (value.EngineTime, error) {
	// 1: advance_engine_time — move to the previously-computed next
	// scheduled time (or Now(), for a push-driven real-time wakeup).
	e.Clock.AdvanceToNextScheduledTime()
	next := e.Clock.NextScheduledEvaluationTime()
	at := e.Clock.Now()
	if next != value.MinTime && next > e.Clock.EvaluationTime() {
		at = next
	}
	e.Clock.SetEvaluationTime(at)

	// 2: before_evaluation
	e.observer.OnBeforeEvaluation(at)

	// 3: per graph, in dependency (registration) order
	for _, g := range e.Graphs {
		for _, n := range g.Nodes() {
			if !n.Active() || !n.scheduledAt(at) {
				continue
			}
			e.observer.OnBeforeNode(n, at)
			err := n.Eval(at, e.Clock)
			e.observer.OnAfterNode(n, at, err)
			if err != nil {
				return at, err
			}
		}
	}

	// 4: after_evaluation
	e.observer.OnAfterEvaluation(at)

	// 5: recompute next_scheduled_time as the min over every node's own
	// forced schedule request (NextScheduledEvaluationTime itself already
	// tracks the min of every UpdateNextScheduledEvaluationTime call made
	// during this tick's evaluation).
	for _, g := range e.Graphs {
		for _, n := range g.Nodes() {
			if n.forceScheduleAt != value.MinTime {
				e.Clock.UpdateNextScheduledEvaluationTime(n.forceScheduleAt)
			}
		}
	}

	return at, nil
}

// Run calls Tick repeatedly until Stop is called or a node's Eval returns
// an error that was not captured by a TryExceptNode boundary.
func (e *EvaluationEngine) Run() error {
	for !e.stopRequested {
		if _, err := e.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// StopRequested reports whether Stop has been called.
func (e *EvaluationEngine) StopRequested() bool { return e.stopRequested }
