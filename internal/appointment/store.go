package appointment

import (
	"sync"
)

// Store is the in-memory dashboard state: the fetched appointment list and
// the record currently opened in the detail view. The opened record is kept
// as a snapshot so it survives a refresh whose filter excludes it.
//
// Each entity carries a monotonic sequence. Status writers reserve a ticket
// before their remote call and apply only if no newer ticket has been
// applied since, so out-of-order responses never roll state back.
type Store struct {
	mu       sync.RWMutex
	items    []Appointment
	selected string
	snapshot Appointment
	issued   map[string]uint64
	applied  map[string]uint64
}

func NewStore() *Store {
	return &Store{
		issued:  make(map[string]uint64),
		applied: make(map[string]uint64),
	}
}

// Replace swaps in a fresh snapshot. Sequence counters survive so in-flight
// updates are still ordered against each other.
func (s *Store) Replace(appts []Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]Appointment, len(appts))
	copy(s.items, appts)
	if s.selected != "" {
		if i := s.indexOf(s.selected); i >= 0 {
			s.snapshot = s.items[i]
		}
	}
}

// List returns a copy of the current snapshot.
func (s *Store) List() []Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Appointment, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Get(id string) (Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return Appointment{}, false
	}
	return s.items[i], true
}

// Select opens the record with the given id in the detail view.
func (s *Store) Select(id string) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return Appointment{}, ErrAppointmentNotFound
	}
	s.selected = id
	s.snapshot = s.items[i]
	return s.items[i], nil
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.snapshot = Appointment{}
	s.mu.Unlock()
}

// Selected returns the opened record. While it is in the list the list entry
// is returned, so the two views never diverge.
func (s *Store) Selected() (Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return Appointment{}, false
	}
	if i := s.indexOf(s.selected); i >= 0 {
		return s.items[i], true
	}
	return s.snapshot, true
}

// Ticket reserves the next sequence number for id.
func (s *Store) Ticket(id string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[id]++
	return s.issued[id]
}

// ApplyStatus sets the status of id if ticket is newer than the last applied
// one. It returns the resulting record and whether the write was applied.
// ErrAppointmentNotFound means id is neither listed nor selected.
func (s *Store) ApplyStatus(id string, status Status, ticket uint64) (Appointment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	isSelected := id == s.selected && id != ""
	if i < 0 && !isSelected {
		return Appointment{}, false, ErrAppointmentNotFound
	}
	if ticket <= s.applied[id] {
		if i < 0 {
			return s.snapshot, false, nil
		}
		return s.items[i], false, nil
	}
	s.applied[id] = ticket
	if isSelected {
		s.snapshot.Status = status
	}
	if i < 0 {
		return s.snapshot, true, nil
	}
	s.items[i].Status = status
	return s.items[i], true, nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
