package room

import "sync"

// Store manages active rooms in memory for the lifetime of the process.
// Lookup lazily creates a room on first reference; entries are never evicted.
type Store struct {
	mu       sync.Mutex       // Protects access to the rooms map only.
	rooms    map[string]*Room // Map of room ID to Room pointer.
	defaults Config
}

// NewStore initializes an empty Store whose rooms are created with the given
// default configuration.
func NewStore(defaults Config) *Store {
	return &Store{
		rooms:    make(map[string]*Room),
		defaults: defaults,
	}
}

// Get returns the room for the given id, creating an empty one on first
// reference. Safe under concurrent calls with the same id: only one Room is
// ever created per id and all callers receive it. The store's lock is held
// only for the map access, never across any room operation.
func (s *Store) Get(id string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		return r
	}
	r := New(id, s.defaults)
	s.rooms[id] = r
	return r
}

// Lookup returns the room for the given id without creating one.
func (s *Store) Lookup(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// Rooms returns a copy of the map of active rooms, for listing and debugging.
// Returning a copy prevents races if the caller iterates while another
// goroutine creates rooms.
func (s *Store) Rooms() map[string]*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomsCopy := make(map[string]*Room, len(s.rooms))
	for k, v := range s.rooms {
		roomsCopy[k] = v
	}
	return roomsCopy
}
