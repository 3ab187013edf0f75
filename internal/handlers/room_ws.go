package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/pkoziol/twistdeck/internal/middleware"
	"github.com/pkoziol/twistdeck/internal/room"
)

// RoomMessage is an incoming WebSocket action message.
type RoomMessage struct {
	Action string `json:"action"`
	IDs    []int  `json:"ids,omitempty"`
}

// wsEnvelope wraps outgoing WebSocket payloads.
type wsEnvelope struct {
	Type     string         `json:"type"`
	Snapshot *room.Snapshot `json:"snapshot,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// wsClient is one live connection, pinned to a room and role.
type wsClient struct {
	id   uuid.UUID
	role room.Role
	conn *websocket.Conn
}

// hub tracks the WebSocket connections per room so any state change can be
// pushed to everyone viewing that room.
type hub struct {
	mu    sync.Mutex
	rooms map[string]map[uuid.UUID]*wsClient
}

func newHub() *hub {
	return &hub{rooms: make(map[string]map[uuid.UUID]*wsClient)}
}

func (h *hub) add(roomID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[uuid.UUID]*wsClient)
	}
	h.rooms[roomID][c.id] = c
}

func (h *hub) remove(roomID string, id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[roomID], id)
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *hub) clients(roomID string) []*wsClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*wsClient, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		out = append(out, c)
	}
	return out
}

// broadcastRoom pushes a fresh per-role snapshot to every client connected to
// the room. Snapshots are taken before the writes so no room lock is held
// while writing to sockets.
func (s *Server) broadcastRoom(rm *room.Room) {
	clients := s.hub.clients(rm.ID)
	if len(clients) == 0 {
		return
	}

	type outgoing struct {
		client *wsClient
		data   []byte
	}
	sends := make([]outgoing, 0, len(clients))
	for _, c := range clients {
		snap, err := rm.SnapshotFor(c.role)
		if err != nil {
			continue
		}
		data, err := json.Marshal(wsEnvelope{Type: "snapshot", Snapshot: &snap})
		if err != nil {
			s.Logger.Errorf("failed to marshal snapshot for room %s: %v", rm.ID, err)
			continue
		}
		sends = append(sends, outgoing{client: c, data: data})
	}

	go func() {
		for _, out := range sends {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := out.client.conn.Write(ctx, websocket.MessageText, out.data)
			cancel()
			if err != nil {
				s.Logger.Warnf("failed to push snapshot to client %s in room %s: %v", out.client.id, rm.ID, err)
			}
		}
	}()
}

// RoomWSHandler upgrades the connection, registers it with the hub, sends the
// initial view and then reads action messages until the client goes away.
func (s *Server) RoomWSHandler(w http.ResponseWriter, r *http.Request) {
	rm, role := s.resolve(r)

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"room"},
		OriginPatterns: []string{"*"}, // Adjust for production security.
	})
	if err != nil {
		s.Logger.Warnf("WebSocket accept error for room %s: %v", rm.ID, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "internal error during handler exit")

	if c.Subprotocol() != "room" {
		c.Close(websocket.StatusPolicyViolation, "client must use the 'room' subprotocol")
		return
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, rm.ID, string(role))

	// The first view validates the role before the connection joins the hub.
	snap, err := s.view(rm, role)
	if err != nil {
		c.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}

	client := &wsClient{id: uuid.New(), role: role, conn: c}
	s.hub.add(rm.ID, client)
	defer s.hub.remove(rm.ID, client.id)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if data, err := json.Marshal(wsEnvelope{Type: "snapshot", Snapshot: &snap}); err == nil {
		writeCtx, writeCancel := context.WithTimeout(ctx, 3*time.Second)
		c.Write(writeCtx, websocket.MessageText, data)
		writeCancel()
	}
	// Everyone else sees the effects of the join (hand top-up, twist draw).
	s.broadcastRoom(rm)

	readErr := s.readRoomMessages(ctx, c, rm, role)
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, rm.ID, string(role), readErr)
	c.Close(websocket.StatusNormalClosure, "")
}

// readRoomMessages is the per-connection read loop: parse an action, apply it
// to the room, then push snapshots to the whole room.
func (s *Server) readRoomMessages(ctx context.Context, c *websocket.Conn, rm *room.Room, role room.Role) error {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return err
		}

		var msg RoomMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendWSError(ctx, c, "invalid message format")
			continue
		}

		var opErr error
		switch msg.Action {
		case "draw":
			opErr = rm.DrawUpToFull(role)
		case "discard":
			opErr = rm.DiscardSelected(role, msg.IDs)
		case "twist":
			opErr = rm.ChangeTwist(role)
		case "ensure_twist":
			opErr = rm.EnsureTwist(role)
		case "state":
			// No mutation; fall through to the broadcast below.
		default:
			s.sendWSError(ctx, c, "unknown action: "+msg.Action)
			continue
		}
		if opErr != nil {
			s.sendWSError(ctx, c, opErr.Error())
			continue
		}
		s.broadcastRoom(rm)
	}
}

// sendWSError sends a private error envelope to one client.
func (s *Server) sendWSError(ctx context.Context, c *websocket.Conn, message string) {
	data, err := json.Marshal(wsEnvelope{Type: "error", Message: message})
	if err != nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	c.Write(writeCtx, websocket.MessageText, data)
}
