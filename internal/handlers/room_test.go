package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkoziol/twistdeck/internal/assets"
	"github.com/pkoziol/twistdeck/internal/models"
	"github.com/pkoziol/twistdeck/internal/room"
)

func testAssets(prefix string, n int) []models.CardAsset {
	cards := make([]models.CardAsset, n)
	for i := range cards {
		cards[i] = models.CardAsset{Name: fmt.Sprintf("%s%02d.png", prefix, i), Data: []byte(fmt.Sprintf("%s-%d", prefix, i))}
	}
	return cards
}

func newTestServer() *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := room.DefaultConfig()
	cfg.Seed = "test-seed"
	s := NewServer(logger, cfg)
	s.Assets = assets.StaticSource{
		"cards":  testAssets("c", 8),
		"gyhran": testAssets("g", 3),
	}
	return s
}

func getSnapshot(t *testing.T, s *Server, game, role string) room.Snapshot {
	t.Helper()
	req := httptest.NewRequest("GET", "/room/state?game="+game+"&role="+role, nil)
	w := httptest.NewRecorder()
	s.StateHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var snap room.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

func TestStateAutoInitializes(t *testing.T) {
	s := newTestServer()

	snap := getSnapshot(t, s, "demo", "p1")

	assert.True(t, snap.Ready)
	assert.True(t, snap.Host)
	assert.Equal(t, 3, snap.HandSize)
	assert.Len(t, snap.Hand, 3, "page load tops the viewer's hand up")
	assert.Equal(t, 5, snap.DeckCount)
	require.NotNil(t, snap.TwistCurrent, "page load ensures a twist card")
	assert.Equal(t, 2, snap.TwistDeckCount)
}

func TestStateUnknownRole(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("GET", "/room/state?game=demo&role=p9", nil)
	w := httptest.NewRecorder()
	s.StateHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStateFailsWhenAssetsMissing(t *testing.T) {
	s := newTestServer()
	s.Assets = assets.StaticSource{}

	req := httptest.NewRequest("GET", "/room/state?game=demo&role=p1", nil)
	w := httptest.NewRecorder()
	s.StateHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitRequiresHost(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("POST", "/room/init?game=demo&role=p2", nil)
	w := httptest.NewRecorder()
	s.InitHandler(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInitResetsRoom(t *testing.T) {
	s := newTestServer()

	// Play a little first.
	snap := getSnapshot(t, s, "demo", "p1")
	body, _ := json.Marshal(discardRequest{IDs: snap.Hand[:1]})
	req := httptest.NewRequest("POST", "/room/discard?game=demo&role=p1", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.DiscardHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Host reset with a new hand size rebuilds everything from scratch.
	req = httptest.NewRequest("POST", "/room/init?game=demo&role=p1&hand_size=4&seed=other", nil)
	w = httptest.NewRecorder()
	s.InitHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reset room.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reset))
	assert.True(t, reset.Ready)
	assert.Equal(t, 4, reset.HandSize)
	assert.Empty(t, reset.Hand)
	assert.Equal(t, 8, reset.DeckCount)
	assert.Equal(t, 0, reset.DiscardCount)
	assert.Nil(t, reset.TwistCurrent)
	assert.Equal(t, 3, reset.TwistDeckCount)
}

func TestInitInvalidHandSize(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("POST", "/room/init?game=demo&role=p1&hand_size=0", nil)
	w := httptest.NewRecorder()
	s.InitHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiscardIgnoresStaleIDs(t *testing.T) {
	s := newTestServer()
	snap := getSnapshot(t, s, "demo", "p1")
	require.Len(t, snap.Hand, 3)

	body, _ := json.Marshal(discardRequest{IDs: []int{snap.Hand[0], 99}})
	req := httptest.NewRequest("POST", "/room/discard?game=demo&role=p1", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.DiscardHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var after room.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	assert.Len(t, after.Hand, 2)
	assert.Equal(t, 1, after.DiscardCount)
	assert.NotContains(t, after.Hand, snap.Hand[0])
}

func TestTwistChangeByNonHostIsNoOp(t *testing.T) {
	s := newTestServer()
	before := getSnapshot(t, s, "demo", "p1")
	require.NotNil(t, before.TwistCurrent)

	req := httptest.NewRequest("POST", "/room/twist?game=demo&role=p2", nil)
	w := httptest.NewRecorder()
	s.TwistHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var after room.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	require.NotNil(t, after.TwistCurrent)
	assert.Equal(t, *before.TwistCurrent, *after.TwistCurrent)
	assert.Equal(t, before.TwistDeckCount, after.TwistDeckCount)
	assert.Equal(t, before.TwistDiscardCount, after.TwistDiscardCount)
}

func TestTwistChangeByHost(t *testing.T) {
	s := newTestServer()
	before := getSnapshot(t, s, "demo", "p1")

	req := httptest.NewRequest("POST", "/room/twist?game=demo&role=p1", nil)
	w := httptest.NewRecorder()
	s.TwistHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var after room.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	require.NotNil(t, after.TwistCurrent)
	assert.NotEqual(t, *before.TwistCurrent, *after.TwistCurrent)
	assert.Equal(t, before.TwistDeckCount-1, after.TwistDeckCount)
	assert.Equal(t, before.TwistDiscardCount+1, after.TwistDiscardCount)
}

func TestCreateAndListRooms(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("POST", "/room/create", nil)
	w := httptest.NewRecorder()
	s.CreateRoomHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		RoomID string `json:"room_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	_, err := uuid.Parse(created.RoomID)
	require.NoError(t, err, "room id should be a uuid")

	req = httptest.NewRequest("GET", "/rooms", nil)
	w = httptest.NewRecorder()
	s.ListRoomsHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var rooms []struct {
		ID    string `json:"id"`
		Ready bool   `json:"ready"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, created.RoomID, rooms[0].ID)
	assert.False(t, rooms[0].Ready)
}

func TestCreateRoomRejectsGet(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("GET", "/room/create", nil)
	w := httptest.NewRecorder()
	s.CreateRoomHandler(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCardHandler(t *testing.T) {
	s := newTestServer()
	getSnapshot(t, s, "demo", "p1") // initialize the room

	req := httptest.NewRequest("GET", "/room/card?game=demo&id=0", nil)
	w := httptest.NewRecorder()
	s.CardHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "c-0", w.Body.String())

	req = httptest.NewRequest("GET", "/room/card?game=demo&kind=twist&id=1", nil)
	w = httptest.NewRecorder()
	s.CardHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "g-1", w.Body.String())

	req = httptest.NewRequest("GET", "/room/card?game=demo&id=999", nil)
	w = httptest.NewRecorder()
	s.CardHandler(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest("GET", "/room/card?game=demo&id=abc", nil)
	w = httptest.NewRecorder()
	s.CardHandler(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
