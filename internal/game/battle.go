package game

import (
	"slices"
	"sort"
	"time"
)

type Wall struct {
	For int     `json:"for"`
	Dom float64 `json:"dom"`
}

type Division struct {
	ID       int64     `json:"id"`
	BattleID int64     `json:"battle_id"`
	Number   int       `json:"div"`
	End      time.Time `json:"end"`
	Epic     bool      `json:"epic"`
	Terrain  int       `json:"terrain"`
	Wall     Wall      `json:"wall"`
}

func (d Division) IsAir() bool {
	return d.Number == AirDivision
}

// Fightable reports whether the zone is open and has not ended at now.
func (d Division) Fightable(now time.Time) bool {
	if d.Terrain != 0 {
		return false
	}
	return d.End.IsZero() || d.End.After(now)
}

type Side struct {
	Country    int   `json:"country"`
	Points     int   `json:"points"`
	Allies     []int `json:"allies"`
	Deployed   []int `json:"deployed"`
	IsDefender bool  `json:"is_defender"`
}

// Involves reports whether country is this side's owner or one of its allies.
func (s Side) Involves(country int) bool {
	return s.Country == country || slices.Contains(s.Allies, country)
}

type Battle struct {
	ID        int64            `json:"id"`
	WarID     int64            `json:"war_id"`
	ZoneID    int              `json:"zone_id"`
	RW        bool             `json:"is_rw"`
	Region    string           `json:"region"`
	RegionID  int              `json:"region_id"`
	Start     time.Time        `json:"start"`
	Invader   Side             `json:"invader"`
	Defender  Side             `json:"defender"`
	Divisions map[int]Division `json:"divisions"`
}

func (b *Battle) HasAir() bool {
	for _, d := range b.Divisions {
		if d.IsAir() {
			return true
		}
	}
	return false
}

func (b *Battle) Countries() []int {
	return []int{b.Invader.Country, b.Defender.Country}
}

// Allies are the countries anyone may fight from without travelling.
func (b *Battle) Allies() []int {
	out := make([]int, 0, 2+len(b.Invader.Deployed)+len(b.Defender.Deployed))
	out = append(out, b.Invader.Deployed...)
	out = append(out, b.Defender.Deployed...)
	return append(out, b.Invader.Country, b.Defender.Country)
}

// SortedDivisions returns the divisions ordered by division number.
func (b *Battle) SortedDivisions() []Division {
	out := make([]Division, 0, len(b.Divisions))
	for _, d := range b.Divisions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// BattleSet is an immutable snapshot of all known battles, keyed by id.
type BattleSet struct {
	FetchedAt time.Time
	byID      map[int64]*Battle
	ids       []int64
}

func NewBattleSet(battles []Battle, fetchedAt time.Time) *BattleSet {
	set := &BattleSet{
		FetchedAt: fetchedAt,
		byID:      make(map[int64]*Battle, len(battles)),
		ids:       make([]int64, 0, len(battles)),
	}
	for i := range battles {
		b := battles[i]
		if _, dup := set.byID[b.ID]; dup {
			continue
		}
		divs := make(map[int]Division, len(b.Divisions))
		for n, d := range b.Divisions {
			d.BattleID = b.ID
			if d.Number == 0 {
				d.Number = n
			}
			divs[n] = d
		}
		b.Divisions = divs
		set.byID[b.ID] = &b
		set.ids = append(set.ids, b.ID)
	}
	slices.Sort(set.ids)
	return set
}

func (s *BattleSet) Get(id int64) (*Battle, bool) {
	if s == nil {
		return nil, false
	}
	b, ok := s.byID[id]
	return b, ok
}

func (s *BattleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// All returns battles in ascending id order.
func (s *BattleSet) All() []*Battle {
	if s == nil {
		return nil
	}
	out := make([]*Battle, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.byID[id])
	}
	return out
}
