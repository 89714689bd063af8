package nested

import (
	"fmt"
	"hash/fnv"

	"github.com/dgryski/go-rendezvous"
)

// defaultSlotPoolSize bounds how many distinct worker-slot labels a
// TsdMapNode/MeshNode hands out. It does not bound how many sub-graphs can
// be live at once (every distinct key still gets its own sub-graph); it
// only bounds how many scheduling-affinity buckets those sub-graphs are
// grouped into for telemetry labeling.
const defaultSlotPoolSize = 16

func hashKeyString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// slotPool assigns each demultiplexed key a stable worker-slot label via
// rendezvous hashing over a fixed pool of slot names. The engine itself
// evaluates nested graphs in deterministic single-threaded order regardless
// of slot assignment; this exists purely so internal/telemetry/engine can
// label its per-slot live sub-graph count with an assignment
// that stays stable as keys come and go, the way rendezvous hashing stays
// stable under pool resize.
type slotPool struct {
	r *rendezvous.Rendezvous
}

func newSlotPool(size int) *slotPool {
	slots := make([]string, size)
	for i := range slots {
		slots[i] = fmt.Sprintf("slot-%d", i)
	}
	return &slotPool{r: rendezvous.New(slots, hashKeyString)}
}

func (p *slotPool) assign(key any) string {
	return p.r.Lookup(fmt.Sprint(key))
}
