/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tracker.go
Description: Resource tracker used to check that every handle acquired inside a harness
invocation is released on every exit path.
*/

package harness

import (
	"sort"
	"sync"
)

// Tracker counts acquisitions and releases per resource kind. A nil *Tracker
// ignores every call, so adapters can report unconditionally.
type Tracker struct {
	mu       sync.Mutex
	acquired map[string]int
	released map[string]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		acquired: make(map[string]int),
		released: make(map[string]int),
	}
}

// Acquire records one acquisition of kind.
func (t *Tracker) Acquire(kind string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.acquired[kind]++
	t.mu.Unlock()
}

// Release records one release of kind.
func (t *Tracker) Release(kind string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.released[kind]++
	t.mu.Unlock()
}

// Acquired returns how many times kind was acquired.
func (t *Tracker) Acquired(kind string) int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acquired[kind]
}

// Outstanding returns the kinds with more acquisitions than releases, mapped
// to the difference.
func (t *Tracker) Outstanding() map[string]int {
	out := make(map[string]int)
	if t == nil {
		return out
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for kind, n := range t.acquired {
		if d := n - t.released[kind]; d != 0 {
			out[kind] = d
		}
	}
	for kind, n := range t.released {
		if _, seen := t.acquired[kind]; !seen {
			out[kind] = -n
		}
	}
	return out
}

// Kinds lists every kind seen, sorted.
func (t *Tracker) Kinds() []string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	kinds := make([]string, 0, len(t.acquired))
	for kind := range t.acquired {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
