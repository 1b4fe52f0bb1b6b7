package bot

import (
	"sync"
	"sync/atomic"
	"time"

	"erepbot/internal/game"
)

// State is the session's view of the character. Writers hold the gate that
// covers the data they mutate; the mutex only keeps readers consistent.
type State struct {
	mu              sync.RWMutex
	energy          game.Energy
	citizen         game.Citizen
	ffLockdown      int
	hasContribution bool
	houseExpiresAt  time.Time
	refreshedAt     time.Time
	// nil until the first inventory refresh.
	inventory *game.Inventory

	battles atomic.Pointer[game.BattleSet]
}

func NewState() *State {
	s := &State{energy: game.NewEnergy()}
	s.battles.Store(game.NewBattleSet(nil, time.Time{}))
	return s
}

// Apply replaces the state with a full-state refresh.
func (s *State) Apply(st game.Status, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.energy.Set(st.Energy.Recovered, st.Energy.Recoverable, st.Energy.Interval, st.Energy.Limit)
	if !st.Energy.NextTickAt.IsZero() {
		s.energy.SetReferenceTime(st.Energy.NextTickAt)
	}
	s.citizen = st.Citizen
	s.ffLockdown = st.FFLockdown
	s.hasContribution = st.HasContribution
	s.houseExpiresAt = st.HouseExpiresAt
	s.refreshedAt = at
}

// ApplyPassive takes only the parts of a refresh that an in-flight action
// never writes. Energy, citizen and contribution keep their local values.
func (s *State) ApplyPassive(st game.Status, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.houseExpiresAt = st.HouseExpiresAt
	s.refreshedAt = at
}

func (s *State) SetInventory(inv game.Inventory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory = &inv
}

// Inventory reports the last refreshed inventory and whether one is known.
func (s *State) Inventory() (game.Inventory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.inventory == nil {
		return game.Inventory{}, false
	}
	return *s.inventory, true
}

func (s *State) Energy() game.Energy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.energy
}

func (s *State) Citizen() game.Citizen {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.citizen
}

func (s *State) FFLockdown() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ffLockdown
}

func (s *State) HasContribution() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasContribution
}

func (s *State) HouseExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.houseExpiresAt
}

func (s *State) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

func (s *State) UpdateEnergy(fn func(e *game.Energy)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.energy)
}

func (s *State) UpdateCitizen(fn func(c *game.Citizen)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.citizen)
}

func (s *State) SetFFLockdown(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ffLockdown = v
}

func (s *State) MarkContribution() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasContribution = true
}

func (s *State) SetHouseExpiresAt(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.houseExpiresAt = t
}

// Battles returns the current battle snapshot; it is never nil.
func (s *State) Battles() *game.BattleSet {
	return s.battles.Load()
}

// ReplaceBattles swaps the whole battle collection in one step.
func (s *State) ReplaceBattles(battles []game.Battle, at time.Time) *game.BattleSet {
	set := game.NewBattleSet(battles, at)
	s.battles.Store(set)
	return set
}
