package filter

import (
	"time"

	"github.com/akita-tools/akita/internal/domain"
)

// DedupeFilter collapses events whose raw line repeats. Logcat captures that
// merge the main and events buffers can carry the same kill line twice;
// collapsing by raw text keeps one copy.
type DedupeFilter struct {
	window  time.Duration // 0 = consecutive only
	seen    map[string]*dedupeEntry
	lastRaw string
}

type dedupeEntry struct {
	count     int
	firstSeen time.Time
	lastSeen  time.Time
}

// NewDedupeFilter creates a deduplication filter.
// window=0 collapses only consecutive identical lines; window>0 collapses
// identical lines whose event times fall within the window.
func NewDedupeFilter(window time.Duration) *DedupeFilter {
	return &DedupeFilter{
		window: window,
		seen:   make(map[string]*dedupeEntry),
	}
}

// DedupeResult holds the result of a dedupe check.
type DedupeResult struct {
	Keep      bool      // whether this event should be kept
	Count     int       // occurrences so far (1 = first)
	FirstSeen time.Time // first occurrence's event time
	LastSeen  time.Time
}

// Check determines if an event should be kept or suppressed as a duplicate.
// Events must arrive in timeline order; the window is measured on event
// timestamps, not wall time.
func (f *DedupeFilter) Check(ev *domain.LogEvent) DedupeResult {
	key := ev.Raw
	now := ev.Time

	if f.window > 0 {
		f.cleanOldEntries(now)
	}

	if existing, ok := f.seen[key]; ok {
		existing.count++
		existing.lastSeen = now

		if f.window > 0 {
			return DedupeResult{
				Keep:      false,
				Count:     existing.count,
				FirstSeen: existing.firstSeen,
				LastSeen:  existing.lastSeen,
			}
		}

		if f.lastRaw == key {
			return DedupeResult{
				Keep:      false,
				Count:     existing.count,
				FirstSeen: existing.firstSeen,
				LastSeen:  existing.lastSeen,
			}
		}
	}

	f.seen[key] = &dedupeEntry{
		count:     1,
		firstSeen: now,
		lastSeen:  now,
	}
	f.lastRaw = key

	return DedupeResult{
		Keep:      true,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
}

// Apply filters a timeline, keeping only non-duplicate events.
func (f *DedupeFilter) Apply(events []*domain.LogEvent) []*domain.LogEvent {
	out := make([]*domain.LogEvent, 0, len(events))
	for _, ev := range events {
		if f.Check(ev).Keep {
			out = append(out, ev)
		}
	}
	return out
}

// Reset clears the deduplication state.
func (f *DedupeFilter) Reset() {
	f.seen = make(map[string]*dedupeEntry)
	f.lastRaw = ""
}

// cleanOldEntries removes entries outside the time window.
func (f *DedupeFilter) cleanOldEntries(now time.Time) {
	cutoff := now.Add(-f.window)
	for key, entry := range f.seen {
		if entry.lastSeen.Before(cutoff) {
			delete(f.seen, key)
		}
	}
}
