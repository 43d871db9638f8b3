// Package store implements the local-first data access layer. All planner
// data lives in the local medium as one serialized array per collection;
// every write is broadcast process-wide and handed to the sync bridge for
// best-effort cloud propagation.
package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nexusplan/core/internal/application/notify"
	"github.com/nexusplan/core/internal/domain/entities"
	"github.com/nexusplan/core/internal/infrastructure/logger"
	"github.com/nexusplan/core/internal/ports"
)

// Propagator receives the full serialized value of every locally written
// collection. Push must not block: propagation is best-effort and its
// failures never reach the writer.
type Propagator interface {
	Push(collection entities.Collection, content json.RawMessage)
}

// Store is the single owner of the canonical local view of all collections.
// Reads never fail: absent or malformed data degrades to the collection
// default. Writes persist the full collection value, fire the change
// notifier, then hand off to the propagator, in that order.
type Store struct {
	mu         sync.Mutex
	medium     ports.Medium
	notifier   *notify.Notifier
	propagator Propagator
	logger     *logger.Logger

	localWrites   atomic.Uint64
	remoteApplies atomic.Uint64
}

// New creates a store over the given medium. The propagator is attached
// later via SetPropagator since the sync bridge is constructed after the
// store it serves.
func New(medium ports.Medium, notifier *notify.Notifier, log *logger.Logger) *Store {
	return &Store{
		medium:   medium,
		notifier: notifier,
		logger:   log.WithComponent("store"),
	}
}

// SetPropagator attaches the outbound sync hand-off. Passing nil detaches it.
func (s *Store) SetPropagator(p Propagator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.propagator = p
}

// Read returns the collection's persisted serialized value, or its default
// when the value is absent or not valid JSON. It never fails.
func (s *Store) Read(collection entities.Collection) json.RawMessage {
	raw, ok := s.Current(collection)
	if !ok || !json.Valid(raw) {
		return entities.DefaultRaw(collection)
	}
	return raw
}

// Current returns the exact serialized value in the medium, with no default
// substitution. The sync bridge compares against this to detect echoes.
func (s *Store) Current(collection entities.Collection) (json.RawMessage, bool) {
	value, ok, err := s.medium.Get(collection.Key())
	if err != nil {
		// Treated as absence: reads degrade silently.
		s.logger.Warnw("Local read failed", "collection", collection, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return json.RawMessage(value), true
}

// Write serializes and persists the full collection value, unconditionally
// overwriting any prior value, then broadcasts the change and hands the
// value to the propagator. Only local persistence failure is returned.
func (s *Store) Write(collection entities.Collection, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", collection, err)
	}
	return s.WriteRaw(collection, raw)
}

// WriteRaw is Write for an already-serialized value. The bytes are stored
// verbatim so a round-trip read returns them unchanged.
func (s *Store) WriteRaw(collection entities.Collection, raw json.RawMessage) error {
	if !collection.IsValid() {
		return entities.ErrUnknownCollection
	}

	s.mu.Lock()
	err := s.medium.Set(collection.Key(), string(raw))
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}
	s.localWrites.Add(1)

	s.notifier.Notify()

	s.mu.Lock()
	p := s.propagator
	s.mu.Unlock()
	if p != nil {
		p.Push(collection, raw)
	}
	return nil
}

// Reset is an explicit override write, semantically identical to Write. The
// distinct name marks intentional discards of user edits at call sites.
func (s *Store) Reset(collection entities.Collection, value interface{}) error {
	return s.Write(collection, value)
}

// ResetSchedule force-resets the schedule collection to its fixed template.
// Deliberate product policy: no merge with previous edits.
func (s *Store) ResetSchedule() error {
	return s.Reset(entities.CollectionSchedule, entities.DefaultSchedule())
}

// ApplyRemote overwrites the collection with remote-originated content and
// broadcasts the change. It bypasses the propagator so data that arrived
// from the cloud is never pushed back out.
func (s *Store) ApplyRemote(collection entities.Collection, raw json.RawMessage) error {
	if !collection.IsValid() {
		return entities.ErrUnknownCollection
	}

	s.mu.Lock()
	err := s.medium.Set(collection.Key(), string(raw))
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("apply remote %s: %w", collection, err)
	}
	s.remoteApplies.Add(1)

	s.notifier.Notify()
	return nil
}

// Schedule returns the schedule collection, falling back to the default
// template when absent or malformed.
func (s *Store) Schedule() []entities.ScheduleEntry {
	var entries []entities.ScheduleEntry
	if !s.readInto(entities.CollectionSchedule, &entries) {
		return entities.DefaultSchedule()
	}
	return entries
}

// Tasks returns the tasks collection.
func (s *Store) Tasks() []entities.Task {
	var tasks []entities.Task
	if !s.readInto(entities.CollectionTasks, &tasks) {
		return []entities.Task{}
	}
	return tasks
}

// Events returns the exams/events collection.
func (s *Store) Events() []entities.Event {
	var events []entities.Event
	if !s.readInto(entities.CollectionExams, &events) {
		return []entities.Event{}
	}
	return events
}

// Notes returns the notes collection.
func (s *Store) Notes() []entities.Note {
	var notes []entities.Note
	if !s.readInto(entities.CollectionNotes, &notes) {
		return []entities.Note{}
	}
	return notes
}

// readInto unmarshals the persisted value into v. False means absent or
// malformed; the caller substitutes the default.
func (s *Store) readInto(collection entities.Collection, v interface{}) bool {
	raw, ok := s.Current(collection)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.logger.Warnw("Malformed local data, using default", "collection", collection, "error", err)
		return false
	}
	return true
}

// Stats reports write counters for metrics exposure.
type Stats struct {
	LocalWrites   uint64
	RemoteApplies uint64
}

// Stats returns a snapshot of the store's counters.
func (s *Store) Stats() Stats {
	return Stats{
		LocalWrites:   s.localWrites.Load(),
		RemoteApplies: s.remoteApplies.Load(),
	}
}
