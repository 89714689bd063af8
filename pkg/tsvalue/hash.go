package tsvalue

import "fmt"

// hashAny hashes a TSD/TSS key for the removed_key_hashes index (pkg/delta).
// Keys are always one of the scalar Go types behind pkg/value's interned
// scalar TypeMetas (int64, float64, string, bool), so a cheap FNV-1a over
// their default string formatting is sufficient here; it need never be
// collision-proof against adversarial input, only stable within a tick.
func hashAny(k any) uint64 {
	s := fmt.Sprint(k)
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
