package schema

import "sync"

// DerivedShape is the memoized result of deriving the time/observer/delta/
// link schemas for a TSMeta node, per the field-kind table. We do not
// materialize separate schema trees the way the C++ original does (a
// second, third, and fourth parallel tree of TypeMetas); pkg/tsvalue
// switches on TSMeta.Kind directly when building storage. What the cache
// memoizes is the one derived property that is expensive to recompute on a
// deep tree and is read on every tick: HasDelta.
type DerivedShape struct {
	HasDelta bool
}

// SchemaCache memoizes DerivedShape per *TSMeta pointer identity — the
// TSMetaSchemaCache, one of the two permitted
// process-wide singletons (the other being pkg/value's TypeRegistry).
type SchemaCache struct {
	mu    sync.Mutex
	cache map[*TSMeta]DerivedShape
}

// NewSchemaCache constructs an empty cache. Most callers use the process
// global via Global(); a fresh cache is occasionally useful in tests that
// want isolation from other tests' schemas.
func NewSchemaCache() *SchemaCache {
	return &SchemaCache{cache: make(map[*TSMeta]DerivedShape)}
}

var globalCache = NewSchemaCache()

// Global returns the process-wide SchemaCache.
func Global() *SchemaCache { return globalCache }

// Derive returns (computing and memoizing on first use) the DerivedShape for m.
func (c *SchemaCache) Derive(m *TSMeta) DerivedShape {
	c.mu.Lock()
	shape, ok := c.cache[m]
	c.mu.Unlock()
	if ok {
		return shape
	}
	// The lock is not held while computing: computeHasDelta recurses back
	// into Derive for child schemas.
	shape = DerivedShape{HasDelta: computeHasDelta(m, c)}
	c.mu.Lock()
	c.cache[m] = shape
	c.mu.Unlock()
	return shape
}

// HasDelta is a convenience wrapper around Global().Derive(m).HasDelta.
func HasDelta(m *TSMeta) bool { return Global().Derive(m).HasDelta }

// computeHasDelta implements "true iff TSS or TSD occurs anywhere inside"
// , recursing through TSB fields and the TSL/TSD/REF element.
func computeHasDelta(m *TSMeta, c *SchemaCache) bool {
	switch m.Kind {
	case KindTSS, KindTSD:
		return true
	case KindTSB:
		for _, f := range m.Fields {
			if c.Derive(f.Meta).HasDelta {
				return true
			}
		}
		return false
	case KindTSL:
		return c.Derive(m.Elem).HasDelta
	case KindREF:
		return c.Derive(m.Elem).HasDelta
	default: // KindTS, KindSignal, KindTSW
		return false
	}
}
