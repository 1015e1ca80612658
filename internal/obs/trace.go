package obs

import (
	"sync/atomic"
	"time"
)

// CorrelationGenerator hands out monotonically increasing correlation ids
// the engine attaches to each outgoing venue command; the engine keys its
// pending command_timeout entries by them.
type CorrelationGenerator struct {
	next uint64
}

// NewCorrelationGenerator returns a generator seeded with seed, or with
// the current time in nanoseconds if seed is zero.
func NewCorrelationGenerator(seed uint64) *CorrelationGenerator {
	if seed == 0 {
		seed = uint64(time.Now().UTC().UnixNano())
	}
	return &CorrelationGenerator{next: seed}
}

// Next returns the next correlation id.
func (g *CorrelationGenerator) Next() uint64 {
	if g == nil {
		return 0
	}
	return atomic.AddUint64(&g.next, 1)
}
