package room

// Snapshot is the read-only view of a room from one role's perspective. The
// hand preserves insertion order so clients can render it stably.
type Snapshot struct {
	RoomID   string   `json:"room_id"`
	Role     Role     `json:"role"`
	Ready    bool     `json:"ready"`
	Host     bool     `json:"host"`
	Topology Topology `json:"topology"`

	HandSize     int   `json:"hand_size"`
	Hand         []int `json:"hand"`
	DeckCount    int   `json:"deck_count"`
	DiscardCount int   `json:"discard_count"`

	TwistCurrent      *int `json:"twist_current,omitempty"`
	TwistDeckCount    int  `json:"twist_deck_count"`
	TwistDiscardCount int  `json:"twist_discard_count"`
}

// SnapshotFor generates the current view of the room for the requesting role.
func (r *Room) SnapshotFor(role Role) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkRole(role); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		RoomID:            r.ID,
		Role:              role,
		Ready:             r.ready,
		Host:              role == r.cfg.Host,
		Topology:          r.cfg.Topology,
		HandSize:          r.cfg.HandSize,
		Hand:              append([]int{}, r.hands[role]...),
		DeckCount:         len(r.decks[role]),
		DiscardCount:      len(r.discards[role]),
		TwistDeckCount:    len(r.twistDeck),
		TwistDiscardCount: len(r.twistDiscard),
	}
	if cur := r.twistCurrent[r.slotKey(role)]; cur != nil {
		id := *cur
		snap.TwistCurrent = &id
	}
	return snap, nil
}
