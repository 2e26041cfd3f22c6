package state

import "github.com/five82/beacon/internal/api"

// LogCapacity is the number of request log entries kept for display.
const LogCapacity = 50

// LogBuffer is a fixed-capacity, newest-first sequence of request log
// entries. Inserting past capacity evicts the oldest entry. The zero value is
// ready to use with LogCapacity.
type LogBuffer struct {
	capacity int
	entries  []api.RequestLogEntry
}

// NewLogBuffer returns a buffer holding at most capacity entries. Non-positive
// capacities fall back to LogCapacity.
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = LogCapacity
	}
	return &LogBuffer{capacity: capacity}
}

// Cap returns the buffer capacity.
func (b *LogBuffer) Cap() int {
	if b.capacity <= 0 {
		return LogCapacity
	}
	return b.capacity
}

// Len returns the number of retained entries.
func (b *LogBuffer) Len() int {
	return len(b.entries)
}

// Prepend inserts entry as the newest element.
func (b *LogBuffer) Prepend(entry api.RequestLogEntry) {
	keep := min(len(b.entries), b.Cap()-1)
	next := make([]api.RequestLogEntry, 0, keep+1)
	next = append(next, entry)
	next = append(next, b.entries[:keep]...)
	b.entries = next
}

// Replace swaps the contents for entries (already newest first), keeping
// only the first Cap() of them.
func (b *LogBuffer) Replace(entries []api.RequestLogEntry) {
	if len(entries) > b.Cap() {
		entries = entries[:b.Cap()]
	}
	b.entries = append([]api.RequestLogEntry(nil), entries...)
}

// Clear drops every entry.
func (b *LogBuffer) Clear() {
	b.entries = nil
}

// Entries returns a copy of the retained entries, newest first.
func (b *LogBuffer) Entries() []api.RequestLogEntry {
	if len(b.entries) == 0 {
		return nil
	}
	dup := make([]api.RequestLogEntry, len(b.entries))
	copy(dup, b.entries)
	return dup
}
