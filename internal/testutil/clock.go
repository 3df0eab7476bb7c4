package testutil

import (
	"strconv"
	"sync/atomic"
	"time"
)

// FixedTime is the instant FixedClock reports: 17:30 on a Monday in
// Bangkok, so Thai dates and UTC-based archive keys fall on the same day.
var FixedTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is a clock pinned to one instant for store, remote and print tests.
type StubClock struct {
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to FixedTime.
func FixedClock() *StubClock {
	return NewStubClock(FixedTime)
}

func (c *StubClock) Now() time.Time {
	return c.now
}

// StubIDGenerator hands out provisional record ids temp-1, temp-2, ...
type StubIDGenerator struct {
	n atomic.Int64
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	return "temp-" + strconv.FormatInt(g.n.Add(1), 10)
}
