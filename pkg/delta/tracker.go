// Package delta implements slot-based delta trackers. SetDelta and MapDelta
// observe a value.KeySet's insert/erase/clear events and maintain
// add/remove/update bookkeeping with add-remove cancellation and an O(1)
// was-removed index. BundleDeltaNav and ListDeltaNav are pure navigation
// records over child trackers, used when a TSB/TSL contains a TSS/TSD
// somewhere beneath it.
package delta

// Tracker is implemented by every delta node in the delta tree (SetDelta,
// MapDelta, BundleDeltaNav, ListDeltaNav). EndTick resets per-tick state,
// so that each tracker's add/remove/update sets start the next tick empty.
// Nothing in internal/engine calls EndTick; until a caller does, those
// sets keep accumulating across ticks.
type Tracker interface {
	EndTick()
}
