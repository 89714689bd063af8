package value

import (
	"hash/fnv"
	"strconv"
)

// Common scalar TypeMetas, interned once and reused across schemas so that
// identical leaf types remain pointer-equal (a precondition for
// TSMetaSchemaCache interning in pkg/schema).
var (
	Int64Type = NewScalarType("int64",
		func() any { return int64(0) },
		func(a, b any) bool { return a.(int64) == b.(int64) },
		func(a any) uint64 { return uint64(a.(int64)) },
		func(a, b any) bool { return a.(int64) < b.(int64) },
	)
	Float64Type = NewScalarType("float64",
		func() any { return float64(0) },
		func(a, b any) bool { return a.(float64) == b.(float64) },
		nil, // not hashable: NaN breaks equality-consistent hashing
		func(a, b any) bool { return a.(float64) < b.(float64) },
	)
	StringType = NewScalarType("string",
		func() any { return "" },
		func(a, b any) bool { return a.(string) == b.(string) },
		func(a any) uint64 {
			h := fnv.New64a()
			_, _ = h.Write([]byte(a.(string)))
			return h.Sum64()
		},
		func(a, b any) bool { return a.(string) < b.(string) },
	)
	BoolType = NewScalarType("bool",
		func() any { return false },
		func(a, b any) bool { return a.(bool) == b.(bool) },
		func(a any) uint64 {
			if a.(bool) {
				return 1
			}
			return 0
		},
		func(a, b any) bool { return !a.(bool) && b.(bool) },
	)
)

// EngineTime is the 64-bit monotonic engine timestamp.
type EngineTime int64

// MinTime is the sentinel meaning "never modified" / "not valid".
const MinTime EngineTime = EngineTime(-1 << 62)

func (t EngineTime) String() string {
	if t == MinTime {
		return "MIN_TIME"
	}
	return strconv.FormatInt(int64(t), 10)
}

// Max returns the later of two engine times.
func Max(a, b EngineTime) EngineTime {
	if a > b {
		return a
	}
	return b
}
