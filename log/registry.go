package log

import (
	"sync"
	"time"

	C "github.com/jupyterlab-contrib/jupyterlab-js-logs/constant"
)

var (
	_ Output = (*Registry)(nil)
	_ Sink   = (*Registry)(nil)
)

// Registry retains the most recent entries for display. It keeps at most
// maxLength entries, dropping the oldest, and filters by its own level
// independently of the factory level.
type Registry struct {
	access     sync.RWMutex
	maxLength  int
	level      Level
	entries    []registryEntry
	sequence   uint64
	checkpoint uint64
}

type registryEntry struct {
	sequence uint64
	entry    Entry
}

func NewRegistry(maxLength int) *Registry {
	if maxLength <= 0 {
		maxLength = C.DefaultRegistryLength
	}
	return &Registry{
		maxLength: maxLength,
		level:     LevelDebug,
	}
}

// Log stores a record received directly from the pipeline.
func (r *Registry) Log(record Record) {
	_ = r.Write(Entry{
		Timestamp: time.Now(),
		Record:    record,
	})
}

func (r *Registry) Write(entry Entry) error {
	r.access.Lock()
	defer r.access.Unlock()
	if entry.Level < r.level {
		return nil
	}
	if len(r.entries) >= r.maxLength {
		r.entries[0] = registryEntry{}
		r.entries = r.entries[1:]
	}
	r.entries = append(r.entries, registryEntry{
		sequence: r.sequence,
		entry:    entry,
	})
	r.sequence++
	return nil
}

func (r *Registry) Close() error {
	return nil
}

func (r *Registry) Level() Level {
	r.access.RLock()
	defer r.access.RUnlock()
	return r.level
}

// SetLevel changes the minimum level of newly stored entries.
func (r *Registry) SetLevel(level Level) {
	r.access.Lock()
	defer r.access.Unlock()
	r.level = level
}

// Clear drops every retained entry.
func (r *Registry) Clear() {
	r.access.Lock()
	defer r.access.Unlock()
	r.entries = nil
	r.checkpoint = r.sequence
}

// Checkpoint marks every entry stored so far as seen.
func (r *Registry) Checkpoint() {
	r.access.Lock()
	defer r.access.Unlock()
	r.checkpoint = r.sequence
}

// Entries returns a copy of the retained entries, oldest first.
func (r *Registry) Entries() []Entry {
	r.access.RLock()
	defer r.access.RUnlock()
	entries := make([]Entry, len(r.entries))
	for i, stored := range r.entries {
		entries[i] = stored.entry
	}
	return entries
}

// SinceCheckpoint returns the retained entries stored after the last
// Checkpoint or Clear.
func (r *Registry) SinceCheckpoint() []Entry {
	r.access.RLock()
	defer r.access.RUnlock()
	var entries []Entry
	for _, stored := range r.entries {
		if stored.sequence >= r.checkpoint {
			entries = append(entries, stored.entry)
		}
	}
	return entries
}

func (r *Registry) Length() int {
	r.access.RLock()
	defer r.access.RUnlock()
	return len(r.entries)
}
