// Package room implements the shared session state for one card game room:
// two (or more) per-role main decks dealt from a single shuffled base
// ordering, plus a shared twist pool. Every mutation goes through a Room
// method, each of which holds the room's lock for its full duration.
package room

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/pkoziol/twistdeck/internal/assets"
	"github.com/pkoziol/twistdeck/internal/cache"
	"github.com/pkoziol/twistdeck/internal/models"
)

// Role is a fixed logical seat in a room, e.g. "p1" or "p2".
type Role string

// Topology selects how the current twist card is held: one shared slot for
// the whole room, or one independent slot per role. Fixed at room creation.
type Topology string

const (
	TopologyShared  Topology = "shared"
	TopologyPerRole Topology = "per_role"
)

var (
	// ErrUnknownRole is returned when an operation names a role outside the
	// room's configured role set.
	ErrUnknownRole = errors.New("unknown role")

	// ErrNotReady is returned by game operations invoked before the room has
	// been successfully initialized.
	ErrNotReady = errors.New("room is not initialized")

	// ErrInvalidHandSize is returned by Initialize for a non-positive hand size.
	ErrInvalidHandSize = errors.New("hand size must be positive")
)

// sharedSlot keys the single twist slot in the shared topology.
const sharedSlot Role = ""

// Config carries a room's fixed shape (roles, host, twist topology) and its
// host-adjustable settings (hand size, seed, asset identifiers).
type Config struct {
	Roles    []Role
	Host     Role
	Topology Topology

	HandSize int
	Seed     string
	CardsDir string
	TwistDir string
}

// DefaultConfig is the standard two-player setup: p1 hosting, one shared
// twist card, hands of three.
func DefaultConfig() Config {
	return Config{
		Roles:    []Role{"p1", "p2"},
		Host:     "p1",
		Topology: TopologyShared,
		HandSize: 3,
		CardsDir: "cards",
		TwistDir: "gyhran",
	}
}

// Room holds the entire state for a single game room in memory.
//
// Card ids are indices into the loaded asset sequences; main-card ids and
// twist-card ids are disjoint spaces and never compared. For each role,
// deck/hand/discard partition the ids that have entered play: a discarded id
// never returns to any deck, hand or twist slot.
type Room struct {
	ID string

	mu  sync.Mutex
	cfg Config

	mainAssets  []models.CardAsset
	twistAssets []models.CardAsset
	ready       bool

	decks    map[Role][]int
	hands    map[Role][]int
	discards map[Role][]int

	twistDeck    []int
	twistDiscard []int
	twistCurrent map[Role]*int // keyed by sharedSlot in the shared topology

	actionIndex int
}

// New builds an empty, not-ready room. Creation cannot fail; loading assets
// and dealing happens in Initialize.
func New(id string, cfg Config) *Room {
	if len(cfg.Roles) == 0 {
		cfg.Roles = DefaultConfig().Roles
	}
	if cfg.Host == "" {
		cfg.Host = cfg.Roles[0]
	}
	if cfg.Topology == "" {
		cfg.Topology = TopologyShared
	}
	if cfg.HandSize <= 0 {
		cfg.HandSize = DefaultConfig().HandSize
	}
	return &Room{
		ID:           id,
		cfg:          cfg,
		decks:        make(map[Role][]int),
		hands:        make(map[Role][]int),
		discards:     make(map[Role][]int),
		twistCurrent: make(map[Role]*int),
	}
}

// Config returns a copy of the room's current configuration.
func (r *Room) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg := r.cfg
	cfg.Roles = append([]Role(nil), r.cfg.Roles...)
	return cfg
}

// Ready reports whether the room has been successfully initialized.
func (r *Room) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// IsHost reports whether the given role is the room's host.
func (r *Room) IsHost(role Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return role == r.cfg.Host
}

// Configure updates the host-adjustable settings used by the next
// initialization. The transport layer is responsible for only letting the
// host role reach this.
func (r *Room) Configure(handSize int, seed, cardsDir, twistDir string) error {
	if handSize <= 0 {
		return ErrInvalidHandSize
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.HandSize = handSize
	r.cfg.Seed = seed
	if cardsDir != "" {
		r.cfg.CardsDir = cardsDir
	}
	if twistDir != "" {
		r.cfg.TwistDir = twistDir
	}
	return nil
}

// Initialize (re)builds the room from already-loaded asset sequences: one
// shuffled base ordering copied into every role's deck, an independently
// shuffled twist deck, and everything else cleared. On any error the prior
// state is left untouched; nothing partial is ever committed.
func (r *Room) Initialize(main, twist []models.CardAsset, handSize int, seed string) error {
	if handSize <= 0 {
		return ErrInvalidHandSize
	}
	if len(main) == 0 {
		return fmt.Errorf("main deck: %w", assets.ErrEmptyAssetSet)
	}
	if len(twist) == 0 {
		return fmt.Errorf("twist deck: %w", assets.ErrEmptyAssetSet)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rng := rand.New(rand.NewSource(shuffleSeed(seed)))

	base := rng.Perm(len(main))
	decks := make(map[Role][]int, len(r.cfg.Roles))
	hands := make(map[Role][]int, len(r.cfg.Roles))
	discards := make(map[Role][]int, len(r.cfg.Roles))
	for _, role := range r.cfg.Roles {
		deck := make([]int, len(base))
		copy(deck, base)
		decks[role] = deck
		hands[role] = []int{}
		discards[role] = []int{}
	}

	r.mainAssets = main
	r.twistAssets = twist
	r.decks = decks
	r.hands = hands
	r.discards = discards
	r.twistDeck = rng.Perm(len(twist))
	r.twistDiscard = []int{}
	r.twistCurrent = make(map[Role]*int)
	r.cfg.HandSize = handSize
	r.cfg.Seed = seed
	r.ready = true

	r.logAction(r.cfg.Host, "room_initialize", map[string]interface{}{
		"mainCards":  len(main),
		"twistCards": len(twist),
		"handSize":   handSize,
		"seeded":     seed != "",
	})
	return nil
}

// DrawUpToFull pops cards off the tail of the role's deck into its hand until
// the hand reaches the configured size or the deck runs dry. An under-full
// hand with an empty deck is a valid terminal state, not an error.
func (r *Room) DrawUpToFull(role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkRole(role); err != nil {
		return err
	}
	if !r.ready {
		return ErrNotReady
	}

	deck := r.decks[role]
	hand := r.hands[role]
	drawn := 0
	for len(hand) < r.cfg.HandSize && len(deck) > 0 {
		id := deck[len(deck)-1]
		deck = deck[:len(deck)-1]
		if !containsID(hand, id) {
			hand = append(hand, id)
			drawn++
		}
	}
	r.decks[role] = deck
	r.hands[role] = hand

	if drawn > 0 {
		r.logAction(role, "player_draw", map[string]interface{}{
			"drawn":    drawn,
			"deckLeft": len(deck),
		})
	}
	return nil
}

// DiscardSelected moves every id that is actually in the role's hand into its
// discard pile. Ids not present in the hand are silently ignored; stale
// client selections are expected under concurrency.
func (r *Room) DiscardSelected(role Role, ids []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkRole(role); err != nil {
		return err
	}
	if !r.ready {
		return ErrNotReady
	}

	moved := []int{}
	for _, id := range ids {
		hand := r.hands[role]
		for i, held := range hand {
			if held == id {
				r.hands[role] = append(hand[:i], hand[i+1:]...)
				r.discards[role] = append(r.discards[role], id)
				moved = append(moved, id)
				break
			}
		}
	}

	if len(moved) > 0 {
		r.logAction(role, "player_discard", map[string]interface{}{
			"cards": moved,
		})
	}
	return nil
}

// EnsureTwist draws a twist card into the requesting role's slot (or the
// single shared slot) if the slot is empty and the twist deck is non-empty.
// Idempotent; a no-op otherwise.
func (r *Room) EnsureTwist(role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkRole(role); err != nil {
		return err
	}
	if !r.ready {
		return ErrNotReady
	}

	slot := r.slotKey(role)
	if r.twistCurrent[slot] != nil || len(r.twistDeck) == 0 {
		return nil
	}
	id := r.popTwist()
	r.twistCurrent[slot] = &id
	r.logAction(role, "twist_draw", map[string]interface{}{"card": id})
	return nil
}

// ChangeTwist retires the current twist card (if any) to the twist discard
// and pops a replacement from the twist deck. In the shared topology only the
// host may change the twist; requests from other roles are silently ignored.
// An exhausted twist deck leaves the slot empty, which is terminal until the
// next reset.
func (r *Room) ChangeTwist(requester Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkRole(requester); err != nil {
		return err
	}
	if !r.ready {
		return ErrNotReady
	}
	if r.cfg.Topology == TopologyShared && requester != r.cfg.Host {
		return nil
	}

	slot := r.slotKey(requester)
	payload := map[string]interface{}{}
	if cur := r.twistCurrent[slot]; cur != nil {
		r.twistDiscard = append(r.twistDiscard, *cur)
		r.twistCurrent[slot] = nil
		payload["retired"] = *cur
	}
	if len(r.twistDeck) > 0 {
		id := r.popTwist()
		r.twistCurrent[slot] = &id
		payload["card"] = id
	}
	r.logAction(requester, "twist_change", payload)
	return nil
}

// MainAsset returns the asset for a main-card id.
func (r *Room) MainAsset(id int) (models.CardAsset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.mainAssets) {
		return models.CardAsset{}, false
	}
	return r.mainAssets[id], true
}

// TwistAsset returns the asset for a twist-card id.
func (r *Room) TwistAsset(id int) (models.CardAsset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.twistAssets) {
		return models.CardAsset{}, false
	}
	return r.twistAssets[id], true
}

// checkRole validates a role against the configured set. Callers hold the lock.
func (r *Room) checkRole(role Role) error {
	for _, known := range r.cfg.Roles {
		if role == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownRole, role)
}

// slotKey maps a role to its twist slot key. Callers hold the lock.
func (r *Room) slotKey(role Role) Role {
	if r.cfg.Topology == TopologyShared {
		return sharedSlot
	}
	return role
}

// popTwist removes and returns the tail of the twist deck. Callers hold the
// lock and have checked the deck is non-empty.
func (r *Room) popTwist() int {
	id := r.twistDeck[len(r.twistDeck)-1]
	r.twistDeck = r.twistDeck[:len(r.twistDeck)-1]
	return id
}

// logAction asynchronously publishes an action record to the historian queue.
// Callers hold the lock; the Redis push happens off the hot path.
func (r *Room) logAction(role Role, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.RoomActionRecord{
		RoomID:        r.ID,
		ActionIndex:   r.actionIndex,
		Role:          string(role),
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.RoomActionRecord) {
		if cache.Rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishRoomAction(ctx, rec); err != nil {
			log.Printf("failed to publish action %d for room %s: %v", rec.ActionIndex, rec.RoomID, err)
		}
	}(record)
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// shuffleSeed derives the RNG seed: a stable hash of the configured seed
// string when set, wall-clock nanos otherwise.
func shuffleSeed(seed string) int64 {
	if seed == "" {
		return time.Now().UnixNano()
	}
	h := fnv.New64a()
	h.Write([]byte(seed))
	return int64(h.Sum64())
}
