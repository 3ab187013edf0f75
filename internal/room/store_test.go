package room

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetCreatesLazily(t *testing.T) {
	s := NewStore(DefaultConfig())

	_, ok := s.Lookup("demo")
	assert.False(t, ok)

	r := s.Get("demo")
	require.NotNil(t, r)
	assert.Equal(t, "demo", r.ID)
	assert.False(t, r.Ready())

	again := s.Get("demo")
	assert.Same(t, r, again, "Get must return the existing room")

	found, ok := s.Lookup("demo")
	require.True(t, ok)
	assert.Same(t, r, found)
}

func TestStoreGetAppliesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Roles = []Role{"host", "player"}
	cfg.Host = "host"
	cfg.Topology = TopologyPerRole
	cfg.HandSize = 5
	s := NewStore(cfg)

	got := s.Get("demo").Config()
	assert.Equal(t, []Role{"host", "player"}, got.Roles)
	assert.Equal(t, Role("host"), got.Host)
	assert.Equal(t, TopologyPerRole, got.Topology)
	assert.Equal(t, 5, got.HandSize)
}

func TestStoreConcurrentGetCreatesOneRoom(t *testing.T) {
	s := NewStore(DefaultConfig())

	const workers = 32
	rooms := make([]*Room, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rooms[i] = s.Get("contended")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, rooms[0], rooms[i], "all callers must observe the same room")
	}
}

func TestStoreRoomsReturnsCopy(t *testing.T) {
	s := NewStore(DefaultConfig())
	for i := 0; i < 3; i++ {
		s.Get(fmt.Sprintf("room-%d", i))
	}

	rooms := s.Rooms()
	assert.Len(t, rooms, 3)

	delete(rooms, "room-0")
	_, ok := s.Lookup("room-0")
	assert.True(t, ok, "mutating the returned map must not affect the store")
}
