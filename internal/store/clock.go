package store

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator produces the temporary ids given to provisional records.
type IDGenerator interface {
	New() string
}

// TempIDGenerator produces "temp-<uuid>" ids. The prefix keeps provisional
// records recognisable and can never collide with a store-assigned id.
type TempIDGenerator struct{}

func (TempIDGenerator) New() string { return "temp-" + uuid.New().String() }
