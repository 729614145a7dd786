// Package scheduler groups text units into bounded batches and drives
// the remote translation client, strictly sequentially and under
// cooperative cancellation.
package scheduler

import (
	"github.com/google/uuid"

	"github.com/pageglot/pageglot/internal/extract"
)

// Status is the lifecycle state of a batch.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInFlight  Status = "in-flight"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Batch is an ordered set of text units submitted together. At most
// one in-flight batch may exist per id.
type Batch struct {
	ID     string
	Units  []*extract.TextUnit
	Status Status
}

// NewBatch creates a pending batch with a generated id.
func NewBatch(units []*extract.TextUnit) *Batch {
	return &Batch{
		ID:     uuid.NewString(),
		Units:  units,
		Status: StatusPending,
	}
}

// split groups units into batches of at most size units, preserving
// submission order.
func split(units []*extract.TextUnit, size int) []*Batch {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([]*Batch, 0, (len(units)+size-1)/size)
	for start := 0; start < len(units); start += size {
		end := min(start+size, len(units))
		batches = append(batches, NewBatch(units[start:end]))
	}
	return batches
}
