// Package store holds the bidding client's in-memory view of the auction.
package store

import (
	"sync"

	"github.com/sevahub/templeauction/go/internal/models"
)

// Store is the single owner of the auction snapshot for one client session.
// Every operation is last-write-wins on the fields it touches.
type Store struct {
	mu      sync.RWMutex
	state   models.AuctionState
	overlay models.Overlay
	team    *models.Team
	squad   []models.Player
	queue   []models.Player

	subsMu sync.Mutex
	subs   map[chan struct{}]struct{}
	closed bool
}

// New creates an empty store
func New() *Store {
	return &Store{
		state: models.AuctionState{Status: models.AuctionStatusIdle},
		subs:  make(map[chan struct{}]struct{}),
	}
}

// ReplaceState installs an authoritative full state. It always wins over any
// earlier patch, even when the full state is older by wall clock.
func (s *Store) ReplaceState(full models.AuctionState) {
	s.mu.Lock()
	s.state = Replace(s.state, full)
	s.mu.Unlock()
	s.notify()
}

// PatchState overwrites only the fields set on the patch
func (s *Store) PatchState(p models.StatePatch) {
	s.mu.Lock()
	s.state = Patch(s.state, p)
	s.mu.Unlock()
	s.notify()
}

// Update applies fn to the current state atomically. fn must not call back into the store.
func (s *Store) Update(fn func(models.AuctionState) models.AuctionState) {
	s.mu.Lock()
	next := fn(s.state.Clone())
	next.Normalize()
	s.state = next
	s.mu.Unlock()
	s.notify()
}

// PrependBid pushes a bid onto the front of the history
func (s *Store) PrependBid(bid models.Bid) {
	s.mu.Lock()
	s.state.Bids = PrependBid(s.state.Bids, bid)
	s.mu.Unlock()
	s.notify()
}

// SetTeam replaces the viewer's team
func (s *Store) SetTeam(team *models.Team) {
	s.mu.Lock()
	s.team = team.Clone()
	s.mu.Unlock()
	s.notify()
}

// SetSquad replaces the viewer's purchased players
func (s *Store) SetSquad(players []models.Player) {
	s.mu.Lock()
	s.squad = models.ClonePlayers(players)
	s.mu.Unlock()
	s.notify()
}

// SetQueue replaces the upcoming player queue
func (s *Store) SetQueue(players []models.Player) {
	s.mu.Lock()
	s.queue = models.ClonePlayers(players)
	s.mu.Unlock()
	s.notify()
}

// SetFrozen sets the client-only bid freeze flag
func (s *Store) SetFrozen(frozen bool) {
	s.mu.Lock()
	changed := s.overlay.BidFrozen != frozen
	s.overlay.BidFrozen = frozen
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Clear drops everything back to an idle, empty snapshot
func (s *Store) Clear() {
	s.mu.Lock()
	s.state = models.AuctionState{Status: models.AuctionStatusIdle}
	s.overlay = models.Overlay{}
	s.team = nil
	s.squad = nil
	s.queue = nil
	s.mu.Unlock()
	s.notify()
}

// State returns a copy of the auction state
func (s *Store) State() models.AuctionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Overlay returns the client-only display flags
func (s *Store) Overlay() models.Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlay
}

// Team returns a copy of the viewer's team, or nil
func (s *Store) Team() *models.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.team.Clone()
}

// Snapshot returns a consistent copy of everything in the store
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Snapshot{
		State:   s.state.Clone(),
		Overlay: s.overlay,
		Team:    s.team.Clone(),
		Squad:   models.ClonePlayers(s.squad),
		Queue:   models.ClonePlayers(s.queue),
	}
}

// Subscribe returns a channel signalled after mutations. Signals coalesce;
// a slow reader sees one pending signal, not one per mutation.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subsMu.Lock()
	if s.closed {
		s.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

// Close releases subscribers. The store stays readable.
func (s *Store) Close() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
}

func (s *Store) notify() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
