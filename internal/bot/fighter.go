package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"erepbot/internal/config"
	"erepbot/internal/game"
)

const (
	maxShotErrors = 10
	// minShotEnergy is the banked energy below which the fighter eats first.
	minShotEnergy = 5 * game.EnergyPerHit
	foodColor     = "blue"
)

type FightReport struct {
	Decision  Decision   `json:"decision"`
	Candidate *Candidate `json:"-"`
	BattleID  int64      `json:"battle_id,omitempty"`
	Hits      int        `json:"hits"`
	Damage    float64    `json:"damage"`
	Errors    int        `json:"errors"`
}

// Fighter finds a battle and fights in it. Every fight holds the concurrency
// gate for its whole duration.
type Fighter struct {
	opts      config.Options
	game      Game
	state     *State
	ranker    *Ranker
	decisions *DecisionEngine
	guard     *Guard
	reporter  Reporter
	log       *slog.Logger
	now       func() time.Time
}

func NewFighter(opts config.Options, g Game, state *State, ranker *Ranker, decisions *DecisionEngine, guard *Guard, reporter Reporter, logger *slog.Logger) *Fighter {
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = logReporter{log: logger}
	}
	return &Fighter{
		opts:      opts,
		game:      g,
		state:     state,
		ranker:    ranker,
		decisions: decisions,
		guard:     guard,
		reporter:  reporter,
		log:       logger,
		now:       time.Now,
	}
}

// Candidates lists fightable candidates in priority order, without travel gating.
func (f *Fighter) Candidates(ctx context.Context) ([]Candidate, error) {
	now := f.now()
	citizen := f.state.Citizen()
	contributions, err := f.contributions(ctx)
	if err != nil {
		return nil, err
	}
	var out []Candidate
	for _, b := range f.ranker.Sorted(f.state.Battles(), citizen, contributions, f.opts.SortBattlesByTime) {
		if c, ok := f.ranker.Candidate(b, citizen, now); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *Fighter) contributions(ctx context.Context) ([]game.Contribution, error) {
	contributions, err := f.game.Contributions(ctx)
	if err != nil {
		if errors.Is(err, game.ErrTransient) {
			return nil, err
		}
		f.log.Warn("contributions unavailable", "err", err)
		return nil, nil
	}
	return contributions, nil
}

// FindBattleAndFight fights in the highest-priority reachable battle when
// the decision engine wants hits.
func (f *Fighter) FindBattleAndFight(ctx context.Context) (FightReport, error) {
	now := f.now()
	decision := f.decisions.ShouldFight(now)
	report := FightReport{Decision: decision}
	if decision.Hits <= 0 {
		if decision.Reason == reasonLevelUp {
			e := f.state.Energy()
			f.log.Info("waiting for fully recovered energy before leveling up", "recoverable", e.Recoverable, "limit", e.Limit)
		}
		f.log.Info("not fighting", "reason", decision.Reason)
		return report, nil
	}
	f.log.Info("checking for battles to fight in", "hits", decision.Hits, "reason", decision.Reason, "forced", decision.Forced)

	candidates, err := f.Candidates(ctx)
	if err != nil {
		return report, err
	}
	for i := range candidates {
		c := candidates[i]
		if c.TravelNeeded {
			travel := (f.opts.TravelToFight && f.decisions.ShouldTravel(now)) || f.opts.ForceTravel
			if !travel {
				continue
			}
		}
		f.log.Info("fighting", "candidate", c.String())
		var fought FightReport
		err := f.guard.Concurrency.Do(ctx, "fight", func(ctx context.Context) error {
			var ferr error
			fought, ferr = f.fight(ctx, c, decision.Hits)
			return ferr
		})
		fought.Decision = decision
		return fought, err
	}
	f.log.Info("no battle to fight in", "known_battles", f.state.Battles().Len())
	return report, nil
}

// EpicHunt spends all food fights in the first reachable epic zone. It
// reports whether a fight took place.
func (f *Fighter) EpicHunt(ctx context.Context) (bool, error) {
	candidates, err := f.Candidates(ctx)
	if err != nil {
		return false, err
	}
	for i := range candidates {
		c := candidates[i]
		if !c.Division.Epic {
			continue
		}
		if c.TravelNeeded && !f.opts.TravelToFight && !f.opts.ForceTravel {
			continue
		}
		hits := f.state.Energy().FoodFights() - f.state.FFLockdown()
		if hits <= 0 {
			return false, nil
		}
		f.log.Info("epic battle found", "candidate", c.String(), "hits", hits)
		err := f.guard.Concurrency.Do(ctx, "epic-fight", func(ctx context.Context) error {
			_, ferr := f.fight(ctx, c, hits)
			return ferr
		})
		return err == nil, err
	}
	return false, nil
}

// fight runs the shot loop; the caller holds the concurrency gate.
func (f *Fighter) fight(ctx context.Context, c Candidate, count int) (FightReport, error) {
	report := FightReport{Candidate: &c, BattleID: c.Battle.ID}
	citizen := f.state.Citizen()

	travelled := false
	if c.TravelNeeded {
		if err := f.travel(ctx, c.TravelCountry, c.TravelRegion); err != nil {
			return report, fmt.Errorf("travel to battle %d: %w", c.Battle.ID, err)
		}
		travelled = true
	}
	defer func() {
		if !travelled {
			return
		}
		if err := f.travel(context.WithoutCancel(ctx), citizen.ResidenceCountry, citizen.ResidenceRegion); err != nil {
			f.log.Warn("travel back to residence failed", "err", err)
		}
	}()

	if err := f.game.SetDefaultWeapon(ctx, c.Battle.ID, c.Division); err != nil && !game.IsDomain(err) {
		return report, err
	}

	for count > 0 && report.Errors < maxShotErrors {
		for count > 0 && report.Errors < maxShotErrors && f.state.Energy().Recovered >= minShotEnergy {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			res, err := f.game.FightOnce(ctx, c.Battle.ID, c.Division, c.Side.Country)
			if err != nil {
				if herr := f.handleShotError(ctx, c, err, &report, &travelled); herr != nil {
					return report, herr
				}
				continue
			}
			if res.Hits <= 0 {
				report.Errors++
				continue
			}
			count -= res.Hits
			report.Hits += res.Hits
			report.Damage += res.Damage
			f.state.UpdateEnergy(func(e *game.Energy) { e.SetRecovered(res.Recovered) })
			if res.XP > 0 {
				f.state.UpdateCitizen(func(cz *game.Citizen) { cz.XP = res.XP })
			}
			f.state.MarkContribution()
		}
		if count <= 0 || report.Errors >= maxShotErrors {
			break
		}
		if !f.eatForFight(ctx) {
			break
		}
	}

	f.log.Info("fight finished", "battle_id", c.Battle.ID, "hits", report.Hits, "damage", report.Damage, "errors", report.Errors)
	if report.Hits > 0 {
		f.reporter.Report(ctx, "fight", fmt.Sprintf("Fought %d hits in %s", report.Hits, c.String()), map[string]any{
			"battle_id": c.Battle.ID,
			"division":  c.Division.Number,
			"side":      c.Side.Country,
			"hits":      report.Hits,
			"damage":    report.Damage,
		})
	}
	return report, nil
}

// handleShotError applies the corrective action for a failed shot. Errors it
// returns abort the fight. travelled is set when the correction moved the
// citizen, so the fight returns home afterwards.
func (f *Fighter) handleShotError(ctx context.Context, c Candidate, err error, report *FightReport, travelled *bool) error {
	switch {
	case errors.Is(err, game.ErrShootLockout):
		report.Errors++
	case errors.Is(err, game.ErrNotEnoughWeapons), errors.Is(err, game.ErrFightDisabled):
		report.Errors++
		if werr := f.game.SetDefaultWeapon(ctx, c.Battle.ID, c.Division); werr != nil && !game.IsDomain(werr) {
			return werr
		}
	case errors.Is(err, game.ErrWrongDivision), errors.Is(err, game.ErrZoneInactive), errors.Is(err, game.ErrNonBelligerent):
		f.log.Warn("aborting fight", "battle_id", c.Battle.ID, "division", c.Division.Number, "err", err)
		report.Errors = maxShotErrors
	case errors.Is(err, game.ErrUnknownSide):
		report.Errors++
		if serr := f.game.ChooseSide(ctx, c.Battle.ID, c.Side.Country); serr != nil && !game.IsDomain(serr) {
			return serr
		}
	case errors.Is(err, game.ErrChangeLocation):
		report.Errors++
		terr := f.travel(ctx, c.Side.Country, 0)
		if terr == nil {
			*travelled = true
		} else if !game.IsDomain(terr) {
			return terr
		}
	case game.IsDomain(err):
		report.Errors++
	default:
		return err
	}
	return nil
}

// eatForFight refills banked energy mid-fight. It reports whether fighting
// can continue.
func (f *Fighter) eatForFight(ctx context.Context) bool {
	color, ok := f.foodToEat()
	if !ok {
		f.log.Warn("no food left to eat during fight")
		return false
	}
	res, err := f.game.Eat(ctx, color)
	if err != nil {
		f.log.Warn("eat during fight failed", "err", err)
		return false
	}
	f.applyEat(res)
	return f.state.Energy().Recovered >= minShotEnergy
}

// foodToEat picks the food color to eat. Blue is preferred; with no
// inventory known yet it is tried blindly.
func (f *Fighter) foodToEat() (string, bool) {
	inv, known := f.state.Inventory()
	if !known {
		return foodColor, true
	}
	if inv.Food[foodColor] > 0 {
		return foodColor, true
	}
	for _, color := range slices.Sorted(maps.Keys(inv.Food)) {
		if inv.Food[color] > 0 {
			return color, true
		}
	}
	return "", false
}

func (f *Fighter) applyEat(res game.EatResult) {
	f.state.UpdateEnergy(func(e *game.Energy) {
		e.SetRecovered(res.Recovered)
		e.SetRecoverable(res.Recoverable)
		if !res.NextTickAt.IsZero() {
			e.SetReferenceTime(res.NextTickAt)
		}
	})
}

func (f *Fighter) travel(ctx context.Context, country, region int) error {
	if err := f.game.TravelTo(ctx, country, region); err != nil {
		return err
	}
	f.state.UpdateCitizen(func(c *game.Citizen) {
		c.CurrentCountry = country
		if region != 0 {
			c.CurrentRegion = region
		}
	})
	f.log.Info("travelled", "country", country, "region", region)
	return nil
}
