package sisyphus

import "time"

const (
	// ThoughtLogCapacity is how many thoughts are retained, most recent first.
	ThoughtLogCapacity = 20
	// SystemLogCapacity is how many system messages are retained.
	SystemLogCapacity = 5
	// TraumaRetainedThoughts is what survives a trauma reset.
	TraumaRetainedThoughts = 5
)

// Source says where a thought came from.
type Source string

const (
	SourceTemplate   Source = "template"
	SourceDeep       Source = "deep"
	SourceMilestone  Source = "milestone"
	SourceVisitor    Source = "visitor"
	SourceEscape     Source = "escape"
	SourceReflection Source = "reflection"
	SourceFallback   Source = "fallback"
	SourceSystem     Source = "system"
)

// Thought is one entry of the inner monologue.
type Thought struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Cycle     int64     `json:"cycle"`
	Source    Source    `json:"source"`
}

// Clock formats the timestamp the way the overlay shows it.
func (t Thought) Clock() string {
	return t.Timestamp.Format("15:04:05")
}

// SystemMessage is one line of the system override channel.
type SystemMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Cycle     int64     `json:"cycle"`
}

// BoundedLog keeps the most recent entries first and evicts the oldest once full.
type BoundedLog[T any] struct {
	items    []T
	capacity int
}

// NewBoundedLog creates an empty log holding at most capacity entries.
func NewBoundedLog[T any](capacity int) *BoundedLog[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &BoundedLog[T]{
		items:    make([]T, 0, capacity+1),
		capacity: capacity,
	}
}

// Push inserts item at the head, dropping the oldest entry beyond capacity.
func (l *BoundedLog[T]) Push(item T) {
	l.items = append(l.items, item)
	copy(l.items[1:], l.items[:len(l.items)-1])
	l.items[0] = item
	if len(l.items) > l.capacity {
		l.items = l.items[:l.capacity]
	}
}

// Truncate keeps only the n most recent entries.
func (l *BoundedLog[T]) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(l.items) {
		clear(l.items[n:])
		l.items = l.items[:n]
	}
}

// Len is the number of retained entries.
func (l *BoundedLog[T]) Len() int {
	return len(l.items)
}

// Head returns the most recent entry.
func (l *BoundedLog[T]) Head() (T, bool) {
	var zero T
	if len(l.items) == 0 {
		return zero, false
	}
	return l.items[0], true
}

// Items returns a copy of the entries, most recent first.
func (l *BoundedLog[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}
