package game

import (
	"math"
	"time"
)

// Energy tracks banked (recovered) and food-backed (recoverable) energy and the
// time the next recovery tick completes.
type Energy struct {
	Recovered   int
	Recoverable int
	Interval    int
	Limit       int

	recoveryAt time.Time
}

func NewEnergy() Energy {
	return Energy{
		Interval: DefaultEnergyInterval,
		Limit:    DefaultEnergyLimit,
	}
}

// Set replaces all counters, clamping to 0 <= recovered and
// 0 <= recoverable <= limit.
func (e *Energy) Set(recovered, recoverable, interval, limit int) {
	if limit < 0 {
		limit = 0
	}
	if interval < 1 {
		interval = 1
	}
	e.Limit = limit
	e.Interval = interval
	e.SetRecovered(recovered)
	e.SetRecoverable(recoverable)
}

func (e *Energy) SetRecovered(v int) {
	if v < 0 {
		v = 0
	}
	e.Recovered = v
}

func (e *Energy) SetRecoverable(v int) {
	if v < 0 {
		v = 0
	}
	if v > e.Limit {
		v = e.Limit
	}
	e.Recoverable = v
}

func (e *Energy) SetReferenceTime(t time.Time) {
	e.recoveryAt = t.Truncate(time.Second)
}

// ReferenceTime is when the next recovery tick completes, as seen at now.
func (e Energy) ReferenceTime(now time.Time) time.Time {
	if e.IsRecoveredFull() || e.recoveryAt.IsZero() || e.recoveryAt.Before(now) {
		return now.Truncate(time.Second)
	}
	return e.recoveryAt
}

func (e Energy) Available() int {
	return e.Recovered + e.Recoverable
}

func (e Energy) FoodFights() int {
	return e.Available() / EnergyPerHit
}

func (e Energy) IsRecoverableFull() bool {
	return e.Recoverable >= e.Limit-5*e.Interval
}

func (e Energy) IsRecoveredFull() bool {
	return e.Recovered >= e.Limit-e.Interval
}

func (e Energy) IsFull() bool {
	return e.IsRecoverableFull() && e.IsRecoveredFull()
}

// NearFull reports whether available energy is within three ticks of the
// double-limit cap, roughly one hour of regeneration.
func (e Energy) NearFull() bool {
	return e.Available()+3*e.Interval >= 2*e.Limit
}

// TimeTillFull projects when available energy reaches twice the limit. Tick
// counts round half to even.
func (e Energy) TimeTillFull(now time.Time) time.Duration {
	available := e.Available()
	if available >= 2*e.Limit {
		return 0
	}
	ticks := math.RoundToEven(float64(2*e.Limit-available) / float64(e.interval()))
	toTick := e.ReferenceTime(now).Sub(now)
	if toTick < 0 {
		toTick = 0
	}
	if toTick > RecoveryTick {
		toTick = RecoveryTick
	}
	return (toTick + time.Duration(ticks)*RecoveryTick).Truncate(time.Second)
}

// MaxTimeTillFull is the worst-case recovery time starting from empty.
func (e Energy) MaxTimeTillFull() time.Duration {
	ticks := math.RoundToEven(float64(2*e.Limit)/float64(e.interval()) + 0.49)
	return time.Duration(ticks) * RecoveryTick
}

// TicksFor returns how many recovery ticks regenerate the given amount.
func (e Energy) TicksFor(energy int) int {
	if energy <= 0 {
		return 0
	}
	interval := e.interval()
	return (energy + interval - 1) / interval
}

func (e Energy) interval() int {
	if e.Interval < 1 {
		return 1
	}
	return e.Interval
}
