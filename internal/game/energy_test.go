package game

import (
	"math/rand/v2"
	"testing"
	"time"
)

func energy(recovered, recoverable, interval, limit int) Energy {
	e := NewEnergy()
	e.Set(recovered, recoverable, interval, limit)
	return e
}

func TestEnergyDerivedCounters(t *testing.T) {
	e := energy(300, 200, 10, 500)
	if got := e.Available(); got != 500 {
		t.Fatalf("available got %d want 500", got)
	}
	if got := e.FoodFights(); got != 50 {
		t.Fatalf("food fights got %d want 50", got)
	}

	e = energy(-5, 900, 10, 500)
	if e.Recovered != 0 || e.Recoverable != 500 {
		t.Fatalf("expected clamped counters, got recovered=%d recoverable=%d", e.Recovered, e.Recoverable)
	}
}

func TestEnergyFullness(t *testing.T) {
	tests := []struct {
		name                      string
		recovered, recoverable    int
		recoverableFull, nearFull bool
	}{
		{name: "empty", recovered: 0, recoverable: 0},
		{name: "pool at threshold", recovered: 0, recoverable: 450, recoverableFull: true},
		{name: "near full edge", recovered: 470, recoverable: 500, recoverableFull: true, nearFull: true},
		{name: "just below near full", recovered: 469, recoverable: 500, recoverableFull: true},
	}
	for _, tc := range tests {
		e := energy(tc.recovered, tc.recoverable, 10, 500)
		if got := e.IsRecoverableFull(); got != tc.recoverableFull {
			t.Fatalf("%s: recoverable full got %v want %v", tc.name, got, tc.recoverableFull)
		}
		if got := e.NearFull(); got != tc.nearFull {
			t.Fatalf("%s: near full got %v want %v", tc.name, got, tc.nearFull)
		}
	}
}

func TestEnergyReferenceTime(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	e := energy(100, 200, 10, 500)
	if got := e.ReferenceTime(now); !got.Equal(now) {
		t.Fatalf("unset reference got %s want %s", got, now)
	}

	e.SetReferenceTime(now.Add(90*time.Second + 400*time.Millisecond))
	if got := e.ReferenceTime(now); !got.Equal(now.Add(90 * time.Second)) {
		t.Fatalf("reference got %s want %s", got, now.Add(90*time.Second))
	}

	e.SetReferenceTime(now.Add(-time.Minute))
	if got := e.ReferenceTime(now); !got.Equal(now) {
		t.Fatalf("stale reference got %s want now", got)
	}

	full := energy(495, 200, 10, 500)
	full.SetReferenceTime(now.Add(3 * time.Minute))
	if got := full.ReferenceTime(now); !got.Equal(now) {
		t.Fatalf("full recovered reference got %s want now", got)
	}
}

func TestEnergyTimeTillFull(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	e := energy(500, 400, 10, 500)
	if got := e.TimeTillFull(now); got != 60*time.Minute {
		t.Fatalf("got %s want 1h0m0s", got)
	}

	e = energy(300, 400, 10, 500)
	e.SetReferenceTime(now.Add(2 * time.Minute))
	if got := e.TimeTillFull(now); got != 182*time.Minute {
		t.Fatalf("got %s want 3h2m0s", got)
	}

	// 50 missing at 20 per tick is 2.5 ticks, which rounds to 2.
	e = energy(450, 500, 20, 500)
	if got := e.TimeTillFull(now); got != 12*time.Minute {
		t.Fatalf("half tick got %s want 12m0s", got)
	}

	e = energy(500, 500, 10, 500)
	if got := e.TimeTillFull(now); got != 0 {
		t.Fatalf("full energy got %s want 0s", got)
	}
}

func TestEnergyMaxTimeTillFull(t *testing.T) {
	tests := []struct {
		interval, limit int
		want            time.Duration
	}{
		{interval: 10, limit: 500, want: 600 * time.Minute},
		{interval: 30, limit: 3000, want: 1200 * time.Minute},
		{interval: 30, limit: 1010, want: 408 * time.Minute},
	}
	for _, tc := range tests {
		e := energy(0, 0, tc.interval, tc.limit)
		if got := e.MaxTimeTillFull(); got != tc.want {
			t.Fatalf("interval=%d limit=%d got %s want %s", tc.interval, tc.limit, got, tc.want)
		}
	}
}

func TestEnergyTicksFor(t *testing.T) {
	e := energy(0, 0, 10, 500)
	tests := []struct{ amount, want int }{
		{amount: 0, want: 0},
		{amount: -20, want: 0},
		{amount: 10, want: 1},
		{amount: 25, want: 3},
	}
	for _, tc := range tests {
		if got := e.TicksFor(tc.amount); got != tc.want {
			t.Fatalf("amount=%d got %d want %d", tc.amount, got, tc.want)
		}
	}
}

func TestEnergyCountersOverRandomStates(t *testing.T) {
	rnd := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 2000; i++ {
		limit := rnd.IntN(5000)
		interval := 1 + rnd.IntN(60)
		recovered := rnd.IntN(10000)
		recoverable := rnd.IntN(limit + 1)
		e := energy(recovered, recoverable, interval, limit)

		if e.Recoverable < 0 || e.Recoverable > e.Limit || e.Recovered < 0 {
			t.Fatalf("bounds broken: %+v", e)
		}
		if got := e.Available(); got != recovered+recoverable {
			t.Fatalf("%+v: available got %d want %d", e, got, recovered+recoverable)
		}
		if got := e.FoodFights(); got != (recovered+recoverable)/EnergyPerHit {
			t.Fatalf("%+v: food fights got %d", e, got)
		}
	}
}
