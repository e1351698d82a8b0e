package domain

import (
	"strconv"
	"sync"
	"time"
)

// OrderNumberGenerator issues ORD-<epoch millis> numbers. Within a process the
// millisecond component is strictly increasing, so two orders created in the
// same millisecond get consecutive values instead of colliding.
type OrderNumberGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewOrderNumberGenerator() *OrderNumberGenerator {
	return &OrderNumberGenerator{now: time.Now}
}

func (g *OrderNumberGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return "ORD-" + strconv.FormatInt(ms, 10)
}
