package dedup

import (
	"strings"
	"time"
)

// Default windows.
const (
	DefaultIDWindow         = 5 * time.Minute
	DefaultContentWindow    = 2 * time.Second
	DefaultContentPurgeMult = 5
)

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Filter admits or rejects keys. Admit returns true when key is new and has
// been recorded, false when it is a duplicate. Recording happens only on admit.
type Filter interface {
	Admit(key string) bool
	Len() int
}

// IDFilter deduplicates by identifier over a long window.
type IDFilter struct {
	window time.Duration
	now    Clock
	seen   map[string]time.Time // id -> first seen
}

// NewIDFilter creates an identifier filter. A zero window uses DefaultIDWindow.
func NewIDFilter(window time.Duration, now Clock) *IDFilter {
	if window <= 0 {
		window = DefaultIDWindow
	}
	if now == nil {
		now = time.Now
	}
	return &IDFilter{
		window: window,
		now:    now,
		seen:   make(map[string]time.Time),
	}
}

// Admit implements Filter.
func (f *IDFilter) Admit(id string) bool {
	now := f.now()

	// Sweep before the membership test so an expired id counts as new.
	for k, ts := range f.seen {
		if now.Sub(ts) > f.window {
			delete(f.seen, k)
		}
	}

	if _, ok := f.seen[id]; ok {
		return false
	}
	f.seen[id] = now
	return true
}

// Len returns the number of retained identifiers.
func (f *IDFilter) Len() int {
	return len(f.seen)
}

// ContentFilter deduplicates by content fingerprint over a short window.
// Entries older than the window no longer count as duplicates; they are
// dropped from the map once older than purgeAfter.
type ContentFilter struct {
	window     time.Duration
	purgeAfter time.Duration
	now        Clock
	seen       map[string]time.Time
}

// NewContentFilter creates a content filter. A zero window uses
// DefaultContentWindow; a purgeAfter shorter than the window uses
// DefaultContentPurgeMult windows.
func NewContentFilter(window, purgeAfter time.Duration, now Clock) *ContentFilter {
	if window <= 0 {
		window = DefaultContentWindow
	}
	if purgeAfter < window {
		purgeAfter = window * DefaultContentPurgeMult
	}
	if now == nil {
		now = time.Now
	}
	return &ContentFilter{
		window:     window,
		purgeAfter: purgeAfter,
		now:        now,
		seen:       make(map[string]time.Time),
	}
}

// Admit implements Filter.
func (f *ContentFilter) Admit(fingerprint string) bool {
	now := f.now()

	for k, ts := range f.seen {
		if now.Sub(ts) > f.purgeAfter {
			delete(f.seen, k)
		}
	}

	if ts, ok := f.seen[fingerprint]; ok && now.Sub(ts) <= f.window {
		return false
	}
	f.seen[fingerprint] = now
	return true
}

// Len returns the number of retained fingerprints.
func (f *ContentFilter) Len() int {
	return len(f.seen)
}

// Fingerprint joins parts into a content key. Parts are separated by a unit
// separator so "a|b" + "c" never collides with "a" + "b|c".
func Fingerprint(parts ...string) string {
	return strings.Join(parts, "\x1f")
}
