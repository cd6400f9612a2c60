package testutil

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"rufas/internal/rufas"
)

// StubClock is a settable rufas.Clock. It keeps millisecond precision, the
// resolution of every timestamp in the collections, so a stored value always
// equals what Now returned.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ rufas.Clock = (*StubClock)(nil)

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t.UTC().Truncate(time.Millisecond)}
}

// FixedClock starts at 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Millis is Now as stored in lastModified, createdAt and export timestamps.
func (c *StubClock) Millis() int64 {
	return rufas.Millis(c.Now())
}

func (c *StubClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC().Truncate(time.Millisecond)
}

// Advance moves the clock forward by d and returns the new time.
func (c *StubClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d).Truncate(time.Millisecond)
	return c.now
}

// StubIDGenerator hands out "id-1", "id-2" and so on. The engine adds the
// kind prefix, so the first tag created is "t_id-1".
type StubIDGenerator struct {
	issued atomic.Int64
}

var _ rufas.IDGenerator = (*StubIDGenerator)(nil)

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	return "id-" + strconv.FormatInt(g.issued.Add(1), 10)
}

// Issued reports how many ids have been handed out.
func (g *StubIDGenerator) Issued() int {
	return int(g.issued.Load())
}
