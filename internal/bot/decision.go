package bot

import (
	"fmt"
	"time"

	"erepbot/internal/config"
	"erepbot/internal/game"
)

const (
	notAllowed    = "Fighting not allowed!"
	reasonLevelUp = "Level up"
)

type Decision struct {
	Hits   int    `json:"hits"`
	Reason string `json:"reason"`
	Forced bool   `json:"forced"`
}

// decisionInput is everything a fight decision depends on.
type decisionInput struct {
	opts            config.Options
	energy          game.Energy
	citizen         game.Citizen
	ffLockdown      int
	hasContribution bool
	tillDeadline    time.Duration
}

// DecisionEngine decides how many hits to do right now. It only reads state,
// so status endpoints may poll it freely.
type DecisionEngine struct {
	opts     config.Options
	state    *State
	calendar *Calendar
}

func NewDecisionEngine(opts config.Options, state *State, calendar *Calendar) *DecisionEngine {
	return &DecisionEngine{opts: opts, state: state, calendar: calendar}
}

func (d *DecisionEngine) input(now time.Time) decisionInput {
	in := decisionInput{
		opts:            d.opts,
		energy:          d.state.Energy(),
		citizen:         d.state.Citizen(),
		ffLockdown:      d.state.FFLockdown(),
		hasContribution: d.state.HasContribution(),
		tillDeadline:    time.Duration(1<<63 - 1),
	}
	if d.calendar != nil {
		in.tillDeadline = d.calendar.WeeklyDeadline(now).Sub(now)
	}
	return in
}

func (d *DecisionEngine) ShouldFight(now time.Time) Decision {
	return decide(d.input(now))
}

// ShouldTravel reports whether it is worth travelling to reach a battle.
func (d *DecisionEngine) ShouldTravel(now time.Time) bool {
	return shouldTravel(d.input(now))
}

// ShouldDoLevelup reports whether a level-up is reachable from banked energy
// and recoverable energy is close enough to the limit to spend it now.
func ShouldDoLevelup(e game.Energy, c game.Citizen) bool {
	return isLevelupReachable(e, c) && e.Recoverable+2*e.Interval >= e.Limit
}

func isLevelupReachable(e game.Energy, c game.Citizen) bool {
	return e.Recovered >= c.XPTillLevelUp()*game.EnergyPerHit
}

func isLevelupClose(e game.Energy, c game.Citizen) bool {
	return e.Limit*2 >= c.XPTillLevelUp()*game.EnergyPerHit
}

// NextReachableEnergy returns the hits missing to the furthest prestige
// milestone reachable with current food fights, or 0.
func NextReachableEnergy(e game.Energy, c game.Citizen) int {
	reach := c.PP + e.FoodFights()
	best := 0
	for _, m := range c.PPMilestones {
		if m > c.PP && m <= reach && m > best {
			best = m
		}
	}
	if best == 0 {
		return 0
	}
	return best - c.PP
}

func shouldTravel(in decisionInput) bool {
	switch {
	case in.opts.AlwaysTravel:
		return true
	case ShouldDoLevelup(in.energy, in.citizen):
		return true
	case in.opts.NextEnergy && NextReachableEnergy(in.energy, in.citizen) > 0:
		return true
	default:
		return in.energy.NearFull()
	}
}

func decide(in decisionInput) Decision {
	out := Decision{Reason: notAllowed}
	if !in.opts.Fight {
		return out
	}
	e, c := in.energy, in.citizen

	switch {
	case c.NextLevelXP > 0 && isLevelupReachable(e, c):
		out.Reason = reasonLevelUp
		if ShouldDoLevelup(e, c) {
			out.Hits = e.Limit * 3 / 10
			out.Forced = true
		}
	case c.NextLevelXP > 0 && isLevelupClose(e, c):
		out.Hits = c.XPTillLevelUp() - e.Limit/10 + 5
		out.Reason = fmt.Sprintf("Fighting for close level up. Doing %d hits", out.Hits)
		out.Forced = true
	case c.PP < game.ObligatoryPP:
		out.Hits = game.ObligatoryPP - c.PP
		out.Reason = fmt.Sprintf("Obligatory fighting for at least %dpp", game.ObligatoryPP)
		out.Forced = true
	case in.opts.ContinuousFighting && in.hasContribution:
		out.Hits = e.FoodFights()
		out.Reason = "Continuing to fight in previous battle"
	case in.opts.AllIn && e.NearFull():
		out.Hits = e.FoodFights()
		out.Reason = fmt.Sprintf("Fighting all-in. Doing %d hits", out.Hits)
	case in.opts.AllIn && in.opts.Air && e.Available() >= e.Limit:
		out.Hits = e.FoodFights()
		out.Reason = fmt.Sprintf("Fighting all-in in air. Doing %d hits", out.Hits)
	case in.opts.NextEnergy && NextReachableEnergy(e, c) > 0:
		out.Hits = NextReachableEnergy(e, c)
		out.Reason = fmt.Sprintf("Fighting for +1 energy. Doing %d hits", out.Hits)
	case e.NearFull():
		out.Hits = e.Interval
		out.Reason = fmt.Sprintf("Fighting for 1h energy. Doing %d hits", out.Hits)
		out.Forced = true
	}

	if out.Hits > 0 && !out.Forced {
		if e.FoodFights()-in.ffLockdown < out.Hits {
			adjusted := out.Hits - in.ffLockdown
			out.Reason = fmt.Sprintf("Fight count modified (old count: %d | FF: %d | WAM ff_lockdown: %d | new count: %d)",
				out.Hits, e.FoodFights(), in.ffLockdown, adjusted)
			out.Hits = adjusted
			if out.Hits <= 0 {
				out.Hits = 0
				out.Reason = fmt.Sprintf("Not fighting because WAM needs %d food fights", in.ffLockdown)
			}
		}
		if e.MaxTimeTillFull() > in.tillDeadline {
			secs := int(in.tillDeadline.Seconds())
			if secs < 0 {
				secs = 0
			}
			maxHits := (secs / 360 * e.Interval) / game.EnergyPerHit
			if maxHits < out.Hits {
				out.Reason = fmt.Sprintf("Weekly cycle ends soon (recoverable until then %d hits | wanted %d hits)", maxHits, out.Hits)
				out.Hits = maxHits
			}
		}
	}
	if out.Hits < 0 {
		out.Hits = 0
	}
	return out
}
