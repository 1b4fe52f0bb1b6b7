package game

import (
	"slices"
	"testing"
	"time"
)

func TestNewBattleSet(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	set := NewBattleSet([]Battle{
		{ID: 30, Divisions: map[int]Division{1: {ID: 301}, 11: {ID: 311, Number: 11}}},
		{ID: 10, Divisions: map[int]Division{2: {ID: 102, Number: 2}}},
		{ID: 30, Region: "duplicate"},
	}, at)

	if set.Len() != 2 {
		t.Fatalf("len got %d want 2", set.Len())
	}
	var ids []int64
	for _, b := range set.All() {
		ids = append(ids, b.ID)
	}
	if !slices.Equal(ids, []int64{10, 30}) {
		t.Fatalf("ids got %v want [10 30]", ids)
	}

	b, ok := set.Get(30)
	if !ok {
		t.Fatalf("expected battle 30")
	}
	if b.Region == "duplicate" {
		t.Fatalf("duplicate id replaced the first battle")
	}
	d := b.Divisions[1]
	if d.BattleID != 30 || d.Number != 1 {
		t.Fatalf("division not normalized: %+v", d)
	}
	if !b.HasAir() {
		t.Fatalf("expected battle 30 to have an air division")
	}
	if !set.FetchedAt.Equal(at) {
		t.Fatalf("fetched at got %s want %s", set.FetchedAt, at)
	}
}

func TestNilBattleSet(t *testing.T) {
	var set *BattleSet
	if set.Len() != 0 || set.All() != nil {
		t.Fatalf("nil set should be empty")
	}
	if _, ok := set.Get(1); ok {
		t.Fatalf("nil set should not find battles")
	}
}

func TestBattleAllies(t *testing.T) {
	b := Battle{
		Invader:  Side{Country: 1, Allies: []int{5}, Deployed: []int{7}},
		Defender: Side{Country: 2, Allies: []int{6}, Deployed: []int{8}},
	}
	allies := b.Allies()
	for _, c := range []int{1, 2, 7, 8} {
		if !slices.Contains(allies, c) {
			t.Fatalf("expected %d in %v", c, allies)
		}
	}
	if slices.Contains(allies, 5) {
		t.Fatalf("undeployed ally should not count as present: %v", allies)
	}
	if !b.Invader.Involves(5) || b.Invader.Involves(6) {
		t.Fatalf("involves mismatch")
	}
}

func TestDivisionFightable(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		d    Division
		want bool
	}{
		{name: "open", d: Division{}, want: true},
		{name: "ends later", d: Division{End: now.Add(time.Minute)}, want: true},
		{name: "ended", d: Division{End: now}, want: false},
		{name: "terrain", d: Division{Terrain: 3}, want: false},
	}
	for _, tc := range tests {
		if got := tc.d.Fightable(now); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}
