// Package handlers is the transport boundary: it resolves an incoming request
// to a (room id, role) pair, drives exactly one room operation, and renders
// the resulting snapshot as JSON over HTTP or WebSocket.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/pkoziol/twistdeck/internal/assets"
	"github.com/pkoziol/twistdeck/internal/room"
)

// Server wires the room store to the HTTP/WebSocket surface.
type Server struct {
	Logger *logrus.Logger
	Store  *room.Store
	Assets assets.Source

	hub *hub
}

// NewServer builds a Server whose rooms are created with the given defaults
// and whose decks load from directories on disk.
func NewServer(logger *logrus.Logger, defaults room.Config) *Server {
	return &Server{
		Logger: logger,
		Store:  room.NewStore(defaults),
		Assets: assets.DirSource{},
		hub:    newHub(),
	}
}

// resolve maps a request (?game=...&role=...) to its room and role. The room
// id defaults to "default" and the role to the room's host.
func (s *Server) resolve(r *http.Request) (*room.Room, room.Role) {
	id := r.URL.Query().Get("game")
	if id == "" {
		id = "default"
	}
	rm := s.Store.Get(id)
	role := room.Role(r.URL.Query().Get("role"))
	if role == "" {
		role = rm.Config().Host
	}
	return rm, role
}

// initFromConfig (re)initializes a room from its last-known configuration.
// Asset loading happens before the room lock is ever taken.
func (s *Server) initFromConfig(rm *room.Room) error {
	cfg := rm.Config()
	main, err := s.Assets.Load(cfg.CardsDir)
	if err != nil {
		return err
	}
	twist, err := s.Assets.Load(cfg.TwistDir)
	if err != nil {
		return err
	}
	return rm.Initialize(main, twist, cfg.HandSize, cfg.Seed)
}

// view implements the page-load behavior: lazily initialize an unready room,
// top up the viewer's hand, make sure a twist card is face up, and return the
// viewer's snapshot.
func (s *Server) view(rm *room.Room, role room.Role) (room.Snapshot, error) {
	if !rm.Ready() {
		if err := s.initFromConfig(rm); err != nil {
			return room.Snapshot{}, err
		}
	}
	if err := rm.DrawUpToFull(role); err != nil {
		return room.Snapshot{}, err
	}
	if err := rm.EnsureTwist(role); err != nil {
		return room.Snapshot{}, err
	}
	return rm.SnapshotFor(role)
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps core errors onto HTTP statuses. Asset failures surface as
// user-visible messages for the host to correct; unknown roles are caller
// errors.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assets.ErrEmptyAssetSet):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, room.ErrUnknownRole):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, room.ErrInvalidHandSize):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, room.ErrNotReady):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
