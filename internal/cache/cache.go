// Package cache holds in-process caches used during a single fetch run.
package cache

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// DefaultSeenCapacity bounds the number of message ids remembered per run.
const DefaultSeenCapacity = 4096

// SeenSet remembers message ids already handled in this run so a message
// listed by two overlapping queries is processed once.
type SeenSet struct {
	entries *LRUCache[struct{}]
}

// NewSeenSet creates a set holding at most capacity ids; the oldest are
// forgotten first.
func NewSeenSet(capacity int) *SeenSet {
	if capacity <= 0 {
		capacity = DefaultSeenCapacity
	}
	return &SeenSet{entries: NewLRUCache[struct{}](capacity)}
}

// Mark records id and reports whether it had been seen before.
func (s *SeenSet) Mark(id string) bool {
	_, seen := s.entries.GetOrSet(id, struct{}{})
	return seen
}

func (s *SeenSet) Len() int {
	return s.entries.Size()
}
