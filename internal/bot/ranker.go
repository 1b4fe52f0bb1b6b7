package bot

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"erepbot/internal/config"
	"erepbot/internal/game"
)

// Candidate is a concrete place to fight: battle, zone and side.
type Candidate struct {
	Battle       *game.Battle
	Division     game.Division
	Side         game.Side
	TravelNeeded bool
	// TravelCountry/TravelRegion are where to go when TravelNeeded is set.
	TravelCountry int
	TravelRegion  int
}

func (c Candidate) String() string {
	side := "invader"
	if c.Side.IsDefender {
		side = "defender"
	}
	return fmt.Sprintf("battle %d (%s) d%d on %s side of %d", c.Battle.ID, c.Battle.Region, c.Division.Number, side, c.Side.Country)
}

// FilterEnv is what a battle_filter expression can see.
type FilterEnv struct {
	ID       int64
	WarID    int64
	Zone     int
	RW       bool
	Region   string
	Invader  int
	Defender int
	Division int
	Air      bool
	Epic     bool
	Side     int
	Defend   bool
	Travel   bool
	WallFor  int
	WallDom  float64
}

type Ranker struct {
	opts   config.Options
	filter *vm.Program
	log    *slog.Logger
}

func NewRanker(opts config.Options, logger *slog.Logger) (*Ranker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Ranker{opts: opts, log: logger}
	if src := strings.TrimSpace(opts.BattleFilter); src != "" {
		program, err := expr.Compile(src, expr.Env(FilterEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile battle filter: %w", err)
		}
		r.filter = program
	}
	return r, nil
}

type bucket int

const (
	bucketHomeDefence bucket = iota
	bucketHomeInvasion
	bucketLocation
	bucketAlly
	bucketOther
	bucketCount
)

func classify(b *game.Battle, c game.Citizen) bucket {
	sides := b.Countries()
	switch {
	case slices.Contains(sides, c.Citizenship):
		if b.Defender.Country == c.Citizenship {
			return bucketHomeDefence
		}
		return bucketHomeInvasion
	case slices.Contains(sides, c.CurrentCountry):
		return bucketLocation
	case slices.Contains(b.Invader.Allies, c.CurrentCountry),
		slices.Contains(b.Defender.Allies, c.CurrentCountry),
		slices.Contains(b.Invader.Deployed, c.CurrentCountry),
		slices.Contains(b.Defender.Deployed, c.CurrentCountry):
		return bucketAlly
	default:
		return bucketOther
	}
}

// Sorted orders every known battle by fighting priority. Battles with
// recorded contributions come first by descending damage; the rest follow in
// bucket order, air before ground inside each bucket.
func (r *Ranker) Sorted(set *game.BattleSet, c game.Citizen, contributions []game.Contribution, byTime bool) []*game.Battle {
	out := make([]*game.Battle, 0, set.Len())
	seen := make(map[int64]bool, set.Len())

	contrib := slices.Clone(contributions)
	sort.SliceStable(contrib, func(i, j int) bool { return contrib[i].Damage > contrib[j].Damage })
	for _, cb := range contrib {
		if seen[cb.BattleID] {
			continue
		}
		b, ok := set.Get(cb.BattleID)
		if !ok {
			continue
		}
		seen[cb.BattleID] = true
		out = append(out, b)
	}

	rest := make([]*game.Battle, 0, set.Len())
	for _, b := range set.All() {
		if !seen[b.ID] {
			rest = append(rest, b)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return lessBattle(rest[i], rest[j], byTime) })

	var air, ground [bucketCount][]*game.Battle
	for _, b := range rest {
		k := classify(b, c)
		if b.HasAir() {
			air[k] = append(air[k], b)
		} else {
			ground[k] = append(ground[k], b)
		}
	}
	for k := bucket(0); k < bucketCount; k++ {
		out = append(out, air[k]...)
		out = append(out, ground[k]...)
	}
	return out
}

func lessBattle(a, b *game.Battle, byTime bool) bool {
	if byTime {
		if !a.Start.Equal(b.Start) {
			return a.Start.After(b.Start)
		}
		return a.ID < b.ID
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return a.Start.After(b.Start)
}

// Division picks the zone to fight in, or false when none is usable. Air
// zones win over ground zones when both are enabled.
func (r *Ranker) Division(b *game.Battle, c game.Citizen, now time.Time) (game.Division, bool) {
	divisions := b.SortedDivisions()
	if r.opts.Air {
		for _, d := range divisions {
			if d.IsAir() && d.Fightable(now) {
				return d, true
			}
		}
	}
	if !r.opts.Ground {
		return game.Division{}, false
	}
	maverick := r.opts.Maverick && c.Maverick
	for _, d := range divisions {
		if !d.IsAir() && d.Fightable(now) && (d.Number == c.Division || maverick) {
			return d, true
		}
	}
	return game.Division{}, false
}

// Side picks which side to fight on.
func (r *Ranker) Side(b *game.Battle, c game.Citizen) game.Side {
	defend := b.Defender.Involves(c.CurrentCountry)
	if b.RW {
		defend = r.opts.RWDefenderSide
	}
	if defend {
		side := b.Defender
		side.IsDefender = true
		return side
	}
	side := b.Invader
	side.IsDefender = false
	return side
}

// Candidate resolves a ranked battle into division, side and travel needs.
// Battles that have not started yet are not candidates.
func (r *Ranker) Candidate(b *game.Battle, c game.Citizen, now time.Time) (Candidate, bool) {
	if b.Start.After(now) {
		return Candidate{}, false
	}
	div, ok := r.Division(b, c, now)
	if !ok {
		return Candidate{}, false
	}
	side := r.Side(b, c)
	out := Candidate{
		Battle:       b,
		Division:     div,
		Side:         side,
		TravelNeeded: !slices.Contains(b.Allies(), c.CurrentCountry),
	}
	if out.TravelNeeded {
		out.TravelCountry = side.Country
		if side.IsDefender {
			out.TravelRegion = b.RegionID
		}
	}
	if !r.accept(out) {
		return Candidate{}, false
	}
	return out, true
}

func (r *Ranker) accept(c Candidate) bool {
	if r.filter == nil {
		return true
	}
	env := FilterEnv{
		ID:       c.Battle.ID,
		WarID:    c.Battle.WarID,
		Zone:     c.Battle.ZoneID,
		RW:       c.Battle.RW,
		Region:   c.Battle.Region,
		Invader:  c.Battle.Invader.Country,
		Defender: c.Battle.Defender.Country,
		Division: c.Division.Number,
		Air:      c.Division.IsAir(),
		Epic:     c.Division.Epic,
		Side:     c.Side.Country,
		Defend:   c.Side.IsDefender,
		Travel:   c.TravelNeeded,
		WallFor:  c.Division.Wall.For,
		WallDom:  c.Division.Wall.Dom,
	}
	result, err := vm.Run(r.filter, env)
	if err != nil {
		r.log.Warn("battle filter error", "battle_id", c.Battle.ID, "err", err)
		return false
	}
	ok, _ := result.(bool)
	return ok
}
