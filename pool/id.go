package pool

import "sync/atomic"

// ID is a process-unique object identifier.
// IDs are totally ordered by allocation time.
type ID uint64

// InvalidID is the zero value and is never handed out.
const InvalidID ID = 0

// IDSource allocates monotonically increasing identifiers.
// The zero value is ready for use and starts at 1.
type IDSource struct {
	last atomic.Uint64
}

// NewIDSource creates a new identifier source.
func NewIDSource() *IDSource {
	return &IDSource{}
}

// Next returns the next identifier.
func (s *IDSource) Next() ID {
	return ID(s.last.Add(1))
}

// Last returns the most recently allocated identifier, or InvalidID.
func (s *IDSource) Last() ID {
	return ID(s.last.Load())
}
