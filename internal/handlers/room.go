package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/pkoziol/twistdeck/internal/room"
)

// CreateRoomHandler mints a fresh room id and registers the (empty) room.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := uuid.NewString()
	s.Store.Get(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"room_id": id})
}

// ListRoomsHandler returns the ids and readiness of all active rooms.
func (s *Server) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	type roomInfo struct {
		ID    string `json:"id"`
		Ready bool   `json:"ready"`
	}
	rooms := s.Store.Rooms()
	out := make([]roomInfo, 0, len(rooms))
	for id, rm := range rooms {
		out = append(out, roomInfo{ID: id, Ready: rm.Ready()})
	}
	writeJSON(w, http.StatusOK, out)
}

// StateHandler returns the requesting role's snapshot, lazily initializing
// the room and topping up the viewer's hand on page load.
func (s *Server) StateHandler(w http.ResponseWriter, r *http.Request) {
	rm, role := s.resolve(r)
	snap, err := s.view(rm, role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// InitHandler handles host-triggered (re)initialization: load/reload from the
// configured directories and rebuild both decks and the twist pool from
// scratch. Non-host roles get 403; configuration is host-only.
func (s *Server) InitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rm, role := s.resolve(r)
	if !rm.IsHost(role) {
		http.Error(w, "only the host may configure the room", http.StatusForbidden)
		return
	}

	cfg := rm.Config()
	handSize := cfg.HandSize
	if v := r.FormValue("hand_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid hand_size", http.StatusBadRequest)
			return
		}
		handSize = n
	}
	seed := r.FormValue("seed")
	if err := rm.Configure(handSize, seed, r.FormValue("cards_dir"), r.FormValue("twist_dir")); err != nil {
		writeError(w, err)
		return
	}

	if err := s.initFromConfig(rm); err != nil {
		s.Logger.WithError(err).Warnf("initialization failed for room %s", rm.ID)
		writeError(w, err)
		return
	}

	snap, err := rm.SnapshotFor(role)
	if err != nil {
		writeError(w, err)
		return
	}
	s.broadcastRoom(rm)
	writeJSON(w, http.StatusOK, snap)
}

// DrawHandler tops the requesting role's hand up to the configured size.
func (s *Server) DrawHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rm, role := s.resolve(r)
	if err := rm.DrawUpToFull(role); err != nil {
		writeError(w, err)
		return
	}
	s.respondWithSnapshot(w, rm, role)
}

// discardRequest is the JSON body for DiscardHandler.
type discardRequest struct {
	IDs []int `json:"ids"`
}

// DiscardHandler moves the selected card ids out of the requesting role's
// hand. Ids no longer in the hand are ignored, tolerating stale selections.
func (s *Server) DiscardHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req discardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	rm, role := s.resolve(r)
	if err := rm.DiscardSelected(role, req.IDs); err != nil {
		writeError(w, err)
		return
	}
	s.respondWithSnapshot(w, rm, role)
}

// TwistHandler changes the twist card. In the shared topology the room treats
// non-host requests as a silent no-op; the returned snapshot simply shows no
// change.
func (s *Server) TwistHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rm, role := s.resolve(r)
	if err := rm.ChangeTwist(role); err != nil {
		writeError(w, err)
		return
	}
	s.respondWithSnapshot(w, rm, role)
}

// CardHandler serves a card image by id so browser clients can render hands.
func (s *Server) CardHandler(w http.ResponseWriter, r *http.Request) {
	rm, _ := s.resolve(r)
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}

	kind := r.URL.Query().Get("kind")
	var data []byte
	switch kind {
	case "twist":
		a, ok := rm.TwistAsset(id)
		if !ok {
			http.Error(w, "card not found", http.StatusNotFound)
			return
		}
		data = a.Data
	case "", "main":
		a, ok := rm.MainAsset(id)
		if !ok {
			http.Error(w, "card not found", http.StatusNotFound)
			return
		}
		data = a.Data
	default:
		http.Error(w, "unknown card kind", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// respondWithSnapshot writes the requester's snapshot and pushes fresh
// snapshots to every WebSocket client in the room.
func (s *Server) respondWithSnapshot(w http.ResponseWriter, rm *room.Room, role room.Role) {
	snap, err := rm.SnapshotFor(role)
	if err != nil {
		writeError(w, err)
		return
	}
	s.broadcastRoom(rm)
	writeJSON(w, http.StatusOK, snap)
}
