package buffer

// ReadStatus describes the outcome of reading a sequence from a Ring
type ReadStatus int

const (
	// ReadOK means the item at the requested sequence was returned
	ReadOK ReadStatus = iota
	// ReadPending means the requested sequence has not been written yet
	ReadPending
	// ReadLagged means the requested sequence was already overwritten
	ReadLagged
)

// String returns a human-readable representation of the read status
func (s ReadStatus) String() string {
	switch s {
	case ReadOK:
		return "ok"
	case ReadPending:
		return "pending"
	case ReadLagged:
		return "lagged"
	default:
		return "unknown"
	}
}

// Ring is a fixed-capacity broadcast buffer addressed by sequence number
type Ring[T any] interface {
	// Append stores item, overwriting the oldest item when full, and returns
	// the sequence number assigned to it.
	Append(item T) uint64

	// Read returns the item stored at seq. The second return value is the
	// oldest sequence still retained, which a lagged reader should resume from.
	Read(seq uint64) (T, uint64, ReadStatus)

	// Next returns the sequence number the next Append will assign.
	Next() uint64

	// Oldest returns the oldest sequence still retained.
	Oldest() uint64

	// Len returns the number of retained items.
	Len() int

	// Capacity returns the maximum number of retained items.
	Capacity() int

	// Stats returns ring statistics.
	Stats() *Statistics
}

// DropCallback is called with an item that was overwritten by Append
type DropCallback[T any] func(item T)

// NewRing creates a ring with the given capacity and options.
// Returns an error if metrics registration fails when metrics are requested.
func NewRing[T any](capacity int, options ...Option[T]) (Ring[T], error) {
	opts := applyOptions(options...)
	return newRing(capacity, opts)
}
