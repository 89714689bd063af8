package clock

import (
	"sync"
	"time"

	"tsengine/pkg/value"
)

type scheduledAlarm struct {
	at value.EngineTime
	cb func()
}

// RealTimeClock implements EngineEvaluationClock for live operation: engine
// time is the actual wall clock (in nanoseconds, matching value.EngineTime's
// GLOSSARY definition), and AdvanceToNextScheduledTime blocks the scheduler
// goroutine until wall time reaches the next scheduled time, an alarm
// fires, or a push source flags RequirePushScheduling — whichever is
// first. This mirrors the ticker/stopCh/wake-channel shape of
// core/worker.go's commitLoop/evictionLoop and sservice.go's
// flushNowCh, generalized from a fixed periodic ticker to an
// arbitrary next-wakeup time recomputed every tick.
type RealTimeClock struct {
	mu            sync.Mutex
	evalTime      value.EngineTime
	nextScheduled value.EngineTime
	tickStart     time.Time
	pushFlag      bool
	alarms        map[string]scheduledAlarm

	wake chan struct{}
}

// NewRealTimeClock builds a RealTimeClock starting at start.
func NewRealTimeClock(start value.EngineTime) *RealTimeClock {
	return &RealTimeClock{
		evalTime:      start,
		nextScheduled: value.MinTime,
		tickStart:     time.Now(),
		alarms:        make(map[string]scheduledAlarm),
		wake:          make(chan struct{}, 1),
	}
}

func (c *RealTimeClock) SetEvaluationTime(t value.EngineTime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evalTime = t
	c.tickStart = time.Now()
}

func (c *RealTimeClock) EvaluationTime() value.EngineTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evalTime
}

// Now returns the actual current wall time as engine time.
func (c *RealTimeClock) Now() value.EngineTime {
	return value.EngineTime(time.Now().UnixNano())
}

func (c *RealTimeClock) CycleTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.tickStart)
}

func (c *RealTimeClock) NextScheduledEvaluationTime() value.EngineTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextScheduled
}

func (c *RealTimeClock) UpdateNextScheduledEvaluationTime(t value.EngineTime) {
	c.mu.Lock()
	cur := c.evalTime
	if t <= cur {
		c.mu.Unlock()
		return
	}
	changed := c.nextScheduled == value.MinTime || t < c.nextScheduled
	if changed {
		c.nextScheduled = t
	}
	c.mu.Unlock()
	if changed {
		c.signal()
	}
}

// signal wakes a blocked AdvanceToNextScheduledTime call, coalescing with
// any already-pending wakeup the way sservice.go's Flush coalesces
// flush requests via a buffered, non-blocking channel send.
func (c *RealTimeClock) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// SetAlarm schedules cb to fire at t under name, replacing any existing
// alarm with that name.
func (c *RealTimeClock) SetAlarm(t value.EngineTime, name string, cb func()) {
	c.mu.Lock()
	c.alarms[name] = scheduledAlarm{at: t, cb: cb}
	c.mu.Unlock()
	c.signal()
}

// CancelAlarm removes a previously-set alarm, if any.
func (c *RealTimeClock) CancelAlarm(name string) {
	c.mu.Lock()
	delete(c.alarms, name)
	c.mu.Unlock()
}

// RequirePushScheduling flags an external push source as ready and wakes a
// blocked Advance call immediately.
func (c *RealTimeClock) RequirePushScheduling() {
	c.mu.Lock()
	c.pushFlag = true
	c.mu.Unlock()
	c.signal()
}

// ConsumePushScheduling reports and clears the push flag.
func (c *RealTimeClock) ConsumePushScheduling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.pushFlag
	c.pushFlag = false
	return v
}

// earliestTarget returns the sooner of nextScheduled and the earliest
// alarm's time, plus that alarm's name (empty if the target came from
// nextScheduled instead).
func (c *RealTimeClock) earliestTarget() (target value.EngineTime, alarmName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	target = c.nextScheduled
	for name, a := range c.alarms {
		if target == value.MinTime || a.at < target {
			target = a.at
			alarmName = name
		}
	}
	return target, alarmName
}

func (c *RealTimeClock) fireAlarm(name string) {
	c.mu.Lock()
	a, ok := c.alarms[name]
	if ok {
		delete(c.alarms, name)
	}
	c.mu.Unlock()
	if ok && a.cb != nil {
		a.cb()
	}
}

// AdvanceToNextScheduledTime blocks until wall time reaches the earlier of
// NextScheduledEvaluationTime and any pending alarm, or returns immediately
// if RequirePushScheduling was called since the last Advance.
func (c *RealTimeClock) AdvanceToNextScheduledTime() {
	for {
		c.mu.Lock()
		push := c.pushFlag
		c.mu.Unlock()
		if push {
			c.mu.Lock()
			c.pushFlag = false
			c.mu.Unlock()
			return
		}

		target, alarmName := c.earliestTarget()
		if target == value.MinTime {
			<-c.wake
			continue
		}

		wait := time.Duration(int64(target) - time.Now().UnixNano())
		if wait <= 0 {
			if alarmName != "" {
				c.fireAlarm(alarmName)
			}
			return
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			if alarmName != "" {
				c.fireAlarm(alarmName)
			}
			return
		case <-c.wake:
			timer.Stop()
			continue
		}
	}
}
