package bot

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"erepbot/internal/config"
	"erepbot/internal/game"
)

func ground(n int) map[int]game.Division {
	return map[int]game.Division{n: {ID: int64(100 + n), Number: n}}
}

func withAir(n int) map[int]game.Division {
	return map[int]game.Division{
		n:                {ID: int64(100 + n), Number: n},
		game.AirDivision: {ID: 111, Number: game.AirDivision},
	}
}

func newTestRanker(t *testing.T, opts config.Options) *Ranker {
	t.Helper()
	r, err := NewRanker(opts, quietLogger())
	if err != nil {
		t.Fatalf("new ranker: %v", err)
	}
	return r
}

func TestRankerBucketPrecedence(t *testing.T) {
	citizen := game.Citizen{Citizenship: 1, CurrentCountry: 9, Division: 1}
	set := game.NewBattleSet([]game.Battle{
		{ID: 1, Invader: game.Side{Country: 3}, Defender: game.Side{Country: 4}, Divisions: ground(1)},
		{ID: 2, Invader: game.Side{Country: 5}, Defender: game.Side{Country: 1}, Divisions: ground(1)},
		{ID: 3, Invader: game.Side{Country: 1}, Defender: game.Side{Country: 6}, Divisions: ground(1)},
		{ID: 4, Invader: game.Side{Country: 9}, Defender: game.Side{Country: 7}, Divisions: ground(1)},
		{ID: 5, Invader: game.Side{Country: 3}, Defender: game.Side{Country: 4, Allies: []int{9}}, Divisions: ground(1)},
		{ID: 6, Invader: game.Side{Country: 8}, Defender: game.Side{Country: 1}, Divisions: ground(1)},
		{ID: 7, Invader: game.Side{Country: 12}, Defender: game.Side{Country: 1}, Divisions: withAir(1)},
		{ID: 8, Invader: game.Side{Country: 13}, Defender: game.Side{Country: 14}, Divisions: ground(1)},
	}, testNow)
	contributions := []game.Contribution{
		{BattleID: 8, Damage: 10},
		{BattleID: 1, Damage: 500},
		{BattleID: 99, Damage: 900},
		{BattleID: 1, Damage: 5},
	}

	r := newTestRanker(t, config.DefaultOptions())
	var got []int64
	for _, b := range r.Sorted(set, citizen, contributions, false) {
		got = append(got, b.ID)
	}
	want := []int64{1, 8, 7, 2, 6, 3, 4, 5}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestRankerBucketOrderOverRandomBattles(t *testing.T) {
	rnd := rand.New(rand.NewPCG(3, 5))
	r := newTestRanker(t, config.DefaultOptions())
	someCountries := func() []int {
		var out []int
		for range rnd.IntN(3) {
			out = append(out, 1+rnd.IntN(8))
		}
		return out
	}

	for round := range 200 {
		citizen := game.Citizen{Citizenship: 1, CurrentCountry: 1 + rnd.IntN(8), Division: 1}
		battles := make([]game.Battle, 0, 12)
		for i := range 1 + rnd.IntN(12) {
			invader := 1 + rnd.IntN(6)
			defender := 1 + (invader+rnd.IntN(5))%6
			divisions := ground(1)
			if rnd.IntN(3) == 0 {
				divisions = withAir(1)
			}
			battles = append(battles, game.Battle{
				ID:        int64(i + 1),
				Invader:   game.Side{Country: invader, Allies: someCountries(), Deployed: someCountries()},
				Defender:  game.Side{Country: defender, Allies: someCountries(), Deployed: someCountries()},
				Divisions: divisions,
				Start:     testNow.Add(-time.Duration(rnd.IntN(600)) * time.Minute),
			})
		}
		set := game.NewBattleSet(battles, testNow)
		sorted := r.Sorted(set, citizen, nil, rnd.IntN(2) == 0)

		if len(sorted) != len(battles) {
			t.Fatalf("round %d: got %d battles want %d", round, len(sorted), len(battles))
		}
		seen := make(map[int64]bool, len(sorted))
		last := -1
		for _, b := range sorted {
			if seen[b.ID] {
				t.Fatalf("round %d: battle %d listed twice", round, b.ID)
			}
			seen[b.ID] = true
			rank := 2 * int(classify(b, citizen))
			if !b.HasAir() {
				rank++
			}
			if rank < last {
				t.Fatalf("round %d: battle %d out of bucket order", round, b.ID)
			}
			last = rank
		}
	}
}

func TestRankerSortByTime(t *testing.T) {
	citizen := game.Citizen{Citizenship: 1, CurrentCountry: 1}
	set := game.NewBattleSet([]game.Battle{
		{ID: 1, Start: testNow.Add(-3 * time.Hour), Invader: game.Side{Country: 3}, Defender: game.Side{Country: 4}},
		{ID: 2, Start: testNow.Add(-1 * time.Hour), Invader: game.Side{Country: 3}, Defender: game.Side{Country: 4}},
		{ID: 3, Start: testNow.Add(-2 * time.Hour), Invader: game.Side{Country: 3}, Defender: game.Side{Country: 4}},
	}, testNow)
	r := newTestRanker(t, config.DefaultOptions())
	var got []int64
	for _, b := range r.Sorted(set, citizen, nil, true) {
		got = append(got, b.ID)
	}
	if want := []int64{2, 3, 1}; !slices.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestRankerDivision(t *testing.T) {
	b := &game.Battle{ID: 1, Divisions: map[int]game.Division{
		1:                {ID: 11, Number: 1, End: testNow.Add(-time.Minute)},
		2:                {ID: 12, Number: 2},
		3:                {ID: 13, Number: 3},
		game.AirDivision: {ID: 111, Number: game.AirDivision},
	}}
	set := game.NewBattleSet([]game.Battle{*b}, testNow)
	b, _ = set.Get(1)

	o := config.DefaultOptions()
	r := newTestRanker(t, o)
	d, ok := r.Division(b, game.Citizen{Division: 3}, testNow)
	if !ok || d.Number != 3 {
		t.Fatalf("native division got %+v ok=%v", d, ok)
	}
	if _, ok := r.Division(b, game.Citizen{Division: 1}, testNow); ok {
		t.Fatalf("ended native division should not be picked")
	}

	o.Maverick = true
	r = newTestRanker(t, o)
	d, ok = r.Division(b, game.Citizen{Division: 1, Maverick: true}, testNow)
	if !ok || d.Number != 2 {
		t.Fatalf("maverick division got %+v ok=%v", d, ok)
	}

	o = config.DefaultOptions()
	o.Air = true
	r = newTestRanker(t, o)
	d, ok = r.Division(b, game.Citizen{Division: 3}, testNow)
	if !ok || !d.IsAir() {
		t.Fatalf("air division got %+v ok=%v", d, ok)
	}
}

func TestRankerSide(t *testing.T) {
	b := &game.Battle{
		Invader:  game.Side{Country: 3},
		Defender: game.Side{Country: 4, Allies: []int{9}},
	}
	r := newTestRanker(t, config.DefaultOptions())
	if s := r.Side(b, game.Citizen{CurrentCountry: 9}); !s.IsDefender || s.Country != 4 {
		t.Fatalf("ally of defender got %+v", s)
	}
	if s := r.Side(b, game.Citizen{CurrentCountry: 3}); s.IsDefender || s.Country != 3 {
		t.Fatalf("invader got %+v", s)
	}

	rw := &game.Battle{RW: true, Invader: game.Side{Country: 3}, Defender: game.Side{Country: 3}}
	o := config.DefaultOptions()
	o.RWDefenderSide = true
	r = newTestRanker(t, o)
	if s := r.Side(rw, game.Citizen{CurrentCountry: 5}); !s.IsDefender {
		t.Fatalf("resistance war side should follow the option, got %+v", s)
	}
}

func TestRankerCandidate(t *testing.T) {
	set := game.NewBattleSet([]game.Battle{
		{ID: 1, RegionID: 77, Invader: game.Side{Country: 3}, Defender: game.Side{Country: 4}, Divisions: ground(1)},
		{ID: 2, Start: testNow.Add(time.Hour), Invader: game.Side{Country: 3}, Defender: game.Side{Country: 4}, Divisions: ground(1)},
	}, testNow)
	b1, _ := set.Get(1)
	b2, _ := set.Get(2)
	citizen := game.Citizen{Citizenship: 4, CurrentCountry: 9, Division: 1}

	r := newTestRanker(t, config.DefaultOptions())
	c, ok := r.Candidate(b1, citizen, testNow)
	if !ok {
		t.Fatalf("expected a candidate")
	}
	if !c.TravelNeeded || c.TravelCountry != 3 || c.TravelRegion != 0 {
		t.Fatalf("travel target got %+v", c)
	}
	if _, ok := r.Candidate(b2, citizen, testNow); ok {
		t.Fatalf("battle that has not started should not be a candidate")
	}

	citizen.CurrentCountry = 4
	c, ok = r.Candidate(b1, citizen, testNow)
	if !ok || c.TravelNeeded || !c.Side.IsDefender {
		t.Fatalf("defender in place got %+v ok=%v", c, ok)
	}
}

func TestRankerFilter(t *testing.T) {
	set := game.NewBattleSet([]game.Battle{
		{ID: 1, Invader: game.Side{Country: 3}, Defender: game.Side{Country: 4}, Divisions: ground(1)},
		{ID: 2, Invader: game.Side{Country: 5}, Defender: game.Side{Country: 4}, Divisions: ground(1)},
	}, testNow)
	citizen := game.Citizen{CurrentCountry: 4, Division: 1}

	o := config.DefaultOptions()
	o.BattleFilter = `Invader != 5 && !Travel`
	r := newTestRanker(t, o)
	b1, _ := set.Get(1)
	b2, _ := set.Get(2)
	if _, ok := r.Candidate(b1, citizen, testNow); !ok {
		t.Fatalf("battle 1 should pass the filter")
	}
	if _, ok := r.Candidate(b2, citizen, testNow); ok {
		t.Fatalf("battle 2 should be filtered out")
	}

	o.BattleFilter = `Invader +`
	if _, err := NewRanker(o, quietLogger()); err == nil {
		t.Fatalf("expected compile error for a broken filter")
	}
}
