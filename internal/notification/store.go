package notification

import "sync"

// DefaultMaxItems is the store capacity when none is configured.
const DefaultMaxItems = 50

// Entry is a stored notification with its read flag.
type Entry struct {
	Notification
	Read bool `json:"read"`
}

// Store is a bounded in-memory notification list, newest first.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry
	maxItems int
}

// NewStore creates a store holding at most maxItems notifications.
func NewStore(maxItems int) *Store {
	if maxItems < 1 {
		maxItems = DefaultMaxItems
	}
	return &Store{
		entries:  make([]Entry, 0, maxItems),
		maxItems: maxItems,
	}
}

// AddNotification prepends n, ignoring ids already present and
// evicting the oldest entry when full.
func (s *Store) AddNotification(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID != "" && s.indexLocked(n.ID) >= 0 {
		return
	}

	s.entries = append(s.entries, Entry{})
	copy(s.entries[1:], s.entries)
	s.entries[0] = Entry{Notification: n}

	if len(s.entries) > s.maxItems {
		s.entries[len(s.entries)-1] = Entry{}
		s.entries = s.entries[:s.maxItems]
	}
}

// List returns a copy of all entries, newest first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of stored notifications.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// UnreadCount returns the number of unread notifications.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if !e.Read {
			count++
		}
	}
	return count
}

// MarkRead marks the notification with the given id as read.
// Returns false if no such notification exists.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.entries[i].Read = true
	return true
}

// MarkAllRead marks every notification as read.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		s.entries[i].Read = true
	}
}

// Remove deletes the notification with the given id.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return true
}

// Clear removes all notifications.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
}

func (s *Store) indexLocked(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
