// Package nested implements the engine's nested graph nodes: TsdMapNode
// (one sub-graph instance per dynamic key, demultiplexed over a TSD),
// MeshNode (TsdMapNode plus a key-to-key dependency DAG with rank-ordered
// evaluation), and TryExceptNode (an inner-graph failure boundary). All
// three share a lazily-created, per-key sub-graph instance as their unit
// of state.
package nested

import (
	"time"

	"tsengine/pkg/value"
)

// Clock implements clock.EngineEvaluationClock for a single key's sub-graph.
// Unlike SimClock or RealTimeClock it does not decide its own evaluation
// time: the owning TsdMapNode calls SetRequestedTime immediately before
// ticking the sub-engine, and Now() simply reports that. Every
// UpdateNextScheduledEvaluationTime call — made by the sub-engine's own
// tick-step-5 bookkeeping — is forwarded to onSchedule, which the owning
// node uses to record "this key next wants to run at time t".
type Clock struct {
	evalTime    value.EngineTime
	requestedAt value.EngineTime
	onSchedule  func(t value.EngineTime)
}

// NewClock builds a nested Clock that reports every schedule request to
// onSchedule.
func NewClock(onSchedule func(t value.EngineTime)) *Clock {
	return &Clock{evalTime: value.MinTime, requestedAt: value.MinTime, onSchedule: onSchedule}
}

// SetRequestedTime is called by the owning node just before ticking this
// key's sub-engine, fixing the time that tick will run at.
func (c *Clock) SetRequestedTime(t value.EngineTime) { c.requestedAt = t }

func (c *Clock) SetEvaluationTime(t value.EngineTime) { c.evalTime = t }
func (c *Clock) EvaluationTime() value.EngineTime     { return c.evalTime }

// Now returns the time fixed by the most recent SetRequestedTime call. The
// key's sub-engine Tick always runs at this time, since
// NextScheduledEvaluationTime here always reports MinTime.
func (c *Clock) Now() value.EngineTime { return c.requestedAt }

// CycleTime always reports zero: per-key sub-graphs don't track their own
// wall-clock tick cost separately from the outer engine's.
func (c *Clock) CycleTime() time.Duration { return 0 }

// NextScheduledEvaluationTime always reports MinTime: the outer node, not
// this sub-clock, is responsible for deciding the key's next run time from
// the values reported through onSchedule.
func (c *Clock) NextScheduledEvaluationTime() value.EngineTime { return value.MinTime }

// UpdateNextScheduledEvaluationTime forwards every request to onSchedule
// rather than tracking a minimum itself; the outer TsdMapNode is the one
// coalescing requests across ticks for this key.
func (c *Clock) UpdateNextScheduledEvaluationTime(t value.EngineTime) {
	if c.onSchedule != nil {
		c.onSchedule(t)
	}
}

// AdvanceToNextScheduledTime is a no-op: the owning node drives this
// sub-clock explicitly via SetRequestedTime.
func (c *Clock) AdvanceToNextScheduledTime() {}

func (c *Clock) SetAlarm(t value.EngineTime, name string, cb func()) {}
func (c *Clock) CancelAlarm(name string)                            {}
func (c *Clock) RequirePushScheduling()      {}
func (c *Clock) ConsumePushScheduling() bool { return false }
