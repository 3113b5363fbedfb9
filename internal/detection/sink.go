package detection

import "sync"

// Page is one page of a sink query, items ordered newest first.
type Page[T any] struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Items []T `json:"items"`
}

// Sink is a bounded, append-only result log. When its length exceeds the
// capacity it drops the oldest entries and keeps the newest retain entries,
// so trimming happens once per (capacity - retain) appends instead of on
// every append.
type Sink[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	retain   int
}

// NewSink creates a sink. Invalid bounds fall back to capacity 100, retain 50.
func NewSink[T any](capacity, retain int) *Sink[T] {
	if capacity <= 0 {
		capacity = 100
	}
	if retain <= 0 || retain > capacity {
		retain = min(50, capacity)
	}
	return &Sink[T]{
		items:    make([]T, 0, capacity+1),
		capacity: capacity,
		retain:   retain,
	}
}

// Append adds an item and trims the sink when it exceeds capacity.
// It returns the number of evicted items.
func (s *Sink[T]) Append(item T) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return s.trimLocked()
}

// Trim applies the eviction policy and returns the number of evicted items.
func (s *Sink[T]) Trim() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trimLocked()
}

func (s *Sink[T]) trimLocked() int {
	if len(s.items) <= s.capacity {
		return 0
	}
	evicted := len(s.items) - s.retain
	kept := make([]T, s.retain, s.capacity+1)
	copy(kept, s.items[evicted:])
	s.items = kept
	return evicted
}

// Len returns the number of retained items.
func (s *Sink[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Clear removes all items.
func (s *Sink[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]T, 0, s.capacity+1)
}

// Snapshot returns a copy of all items, newest first.
func (s *Sink[T]) Snapshot() []T {
	s.mu.Lock()
	out := make([]T, len(s.items))
	for i, item := range s.items {
		out[len(s.items)-1-i] = item
	}
	s.mu.Unlock()
	return out
}

// Query returns a page of items matching filter, newest first. A nil filter
// matches everything. Pagination runs over one snapshot so concurrent appends
// never duplicate or skip an item within a single call. page < 1 is treated
// as 1 and limit < 1 returns every match.
func (s *Sink[T]) Query(limit, page int, filter func(T) bool) Page[T] {
	if page < 1 {
		page = 1
	}

	matched := s.Snapshot()
	if filter != nil {
		n := 0
		for _, item := range matched {
			if filter(item) {
				matched[n] = item
				n++
			}
		}
		matched = matched[:n]
	}

	total := len(matched)
	if limit < 1 {
		return Page[T]{Total: total, Page: page, Limit: total, Items: matched}
	}

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := min(start+limit, total)

	return Page[T]{
		Total: total,
		Page:  page,
		Limit: limit,
		Items: matched[start:end:end],
	}
}
