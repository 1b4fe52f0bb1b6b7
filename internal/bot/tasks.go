package bot

import (
	"context"
	"fmt"
	"time"

	"erepbot/internal/game"
)

const (
	epicHuntEvery  = 10 * time.Minute
	wamRetryDelay  = 30 * time.Minute
	overtimePoints = 24
	houseMargin    = time.Hour
)

func (s *Scheduler) taskTable() map[TaskName]taskFunc {
	return map[TaskName]taskFunc{
		TaskWork:            s.work,
		TaskTrain:           s.train,
		TaskEat:             s.eat,
		TaskFight:           s.fight,
		TaskWAM:             s.wam,
		TaskOvertime:        s.overtime,
		TaskEmploy:          s.employ,
		TaskEpicHunt:        s.epicHunt,
		TaskGoldBuy:         s.goldBuy,
		TaskCongress:        s.congress,
		TaskPartyPresidency: s.partyPresidency,
		TaskContributeCC:    s.contributeCC,
		TaskRenewHouses:     s.renewHouses,
	}
}

// enabledTasks lists the tasks switched on by the options, in run order.
func (s *Scheduler) enabledTasks() []TaskName {
	o := s.opts
	candidates := []struct {
		name TaskName
		on   bool
	}{
		{TaskWork, o.Work},
		{TaskTrain, o.Train},
		{TaskWAM, o.WAM},
		{TaskEmploy, o.Employ},
		{TaskEat, o.Eat},
		{TaskFight, o.Fight},
		{TaskEpicHunt, o.EpicHunt},
		{TaskOvertime, o.Overtime},
		{TaskGoldBuy, o.GoldBuy},
		{TaskCongress, o.Congress},
		{TaskPartyPresidency, o.PartyPresidency},
		{TaskContributeCC, o.ContributeCC && o.ContributeCCAmount > 0},
		{TaskRenewHouses, o.RenewHouses},
	}
	var out []TaskName
	for _, c := range candidates {
		if c.on {
			out = append(out, c.name)
		}
	}
	return out
}

func (s *Scheduler) jobInfo(ctx context.Context) (game.JobInfo, error) {
	var info game.JobInfo
	err := s.guard.Update.Do(ctx, "job-info", func(ctx context.Context) error {
		var err error
		info, err = s.game.RefreshJobInfo(ctx)
		return err
	})
	return info, err
}

func (s *Scheduler) work(ctx context.Context, now time.Time) (time.Time, error) {
	info, err := s.jobInfo(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if !info.Worked {
		if err := s.game.Work(ctx); err != nil {
			return time.Time{}, err
		}
		s.reporter.Report(ctx, "task", "Worked at employer", nil)
	}
	return s.calendar.NextMidnight(now), nil
}

func (s *Scheduler) train(ctx context.Context, now time.Time) (time.Time, error) {
	info, err := s.jobInfo(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if !info.Trained {
		if err := s.game.Train(ctx); err != nil {
			return time.Time{}, err
		}
		s.reporter.Report(ctx, "task", "Trained", nil)
	}
	return s.calendar.NextMidnight(now), nil
}

func (s *Scheduler) employ(ctx context.Context, now time.Time) (time.Time, error) {
	if err := s.game.Employ(ctx); err != nil {
		return time.Time{}, err
	}
	return s.calendar.NextMidnight(now), nil
}

// eat converts food into banked energy when there is room for it and comes
// back when the recoverable pool is expected to be near full again.
func (s *Scheduler) eat(ctx context.Context, now time.Time) (time.Time, error) {
	e := s.state.Energy()
	if !e.IsRecoveredFull() {
		if color, ok := s.fighter.foodToEat(); ok {
			res, err := s.game.Eat(ctx, color)
			if err != nil {
				return time.Time{}, err
			}
			s.fighter.applyEat(res)
			e = s.state.Energy()
			s.log.Info("ate food", "color", color, "recovered", e.Recovered, "recoverable", e.Recoverable)
		} else {
			s.log.Info("no food in inventory, not eating")
		}
	}
	ticks := 1
	if deficit := e.Limit - 5*e.Interval - e.Recoverable; deficit > 0 {
		ticks = e.TicksFor(deficit)
	}
	return e.ReferenceTime(now).Add(time.Duration(ticks) * game.RecoveryTick), nil
}

// fight spends energy per the decision engine and returns when the energy
// gap to the one-hour threshold is expected to close.
func (s *Scheduler) fight(ctx context.Context, now time.Time) (time.Time, error) {
	report, err := s.fighter.FindBattleAndFight(ctx)
	if err != nil {
		return time.Time{}, err
	}
	e := s.state.Energy()
	ticks := 1
	if report.Hits == 0 || report.Decision.Hits <= report.Hits {
		gap := 2*e.Limit - 3*e.Interval - e.Available()
		if t := e.TicksFor(gap); t > ticks {
			ticks = t
		}
	}
	return e.ReferenceTime(s.now()).Add(time.Duration(ticks) * game.RecoveryTick), nil
}

// wam works as manager in every holding. Any holding that could not be worked
// brings the task back in half an hour.
func (s *Scheduler) wam(ctx context.Context, now time.Time) (time.Time, error) {
	var companies game.Companies
	err := s.guard.Update.Do(ctx, "companies", func(ctx context.Context) error {
		var err error
		companies, err = s.game.RefreshCompanies(ctx)
		return err
	})
	if err != nil {
		return time.Time{}, err
	}
	s.state.SetFFLockdown(companies.FFLockdown)

	worked, failed := 0, 0
	err = s.guard.Concurrency.Do(ctx, "wam", func(ctx context.Context) error {
		for _, holding := range companies.Holdings {
			res, err := s.game.WorkAsManager(ctx, holding)
			if err != nil {
				if !game.IsDomain(err) {
					return err
				}
				s.log.Warn("work as manager failed", "holding", holding, "err", err)
				failed++
				continue
			}
			if !res.Worked {
				failed++
				continue
			}
			worked++
			s.state.SetFFLockdown(res.FFLockdown)
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	if worked > 0 {
		s.reporter.Report(ctx, "task", fmt.Sprintf("Worked as manager in %d holdings", worked), map[string]any{"failed": failed})
	}
	if failed > 0 {
		return s.now().Add(wamRetryDelay), nil
	}
	return s.calendar.WAMTomorrow(now), nil
}

func (s *Scheduler) overtime(ctx context.Context, now time.Time) (time.Time, error) {
	info, err := s.jobInfo(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if info.OTPoints >= overtimePoints && s.state.Energy().FoodFights() > 1 {
		err := s.guard.Concurrency.Do(ctx, "overtime", func(ctx context.Context) error {
			return s.game.WorkOvertime(ctx)
		})
		if err != nil {
			return time.Time{}, err
		}
		s.reporter.Report(ctx, "task", "Worked overtime", nil)
		return s.now().Add(time.Hour), nil
	}
	missing := overtimePoints - info.OTPoints
	if missing < 1 {
		missing = 1
	}
	return now.Add(time.Duration(missing) * time.Hour), nil
}

func (s *Scheduler) epicHunt(ctx context.Context, now time.Time) (time.Time, error) {
	fought, err := s.fighter.EpicHunt(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if fought {
		s.log.Info("epic hunt fought")
	}
	return s.now().Add(epicHuntEvery), nil
}

func (s *Scheduler) goldBuy(ctx context.Context, now time.Time) (time.Time, error) {
	var money game.Money
	err := s.guard.Update.Do(ctx, "money", func(ctx context.Context) error {
		var err error
		money, err = s.game.RefreshMoney(ctx)
		return err
	})
	if err != nil {
		return time.Time{}, err
	}
	if money.CC > 0 {
		err := s.guard.Concurrency.Do(ctx, "gold-buy", func(ctx context.Context) error {
			return s.game.BuyGold(ctx)
		})
		if err != nil {
			return time.Time{}, err
		}
	}
	return s.calendar.NextMidnight(now), nil
}

func (s *Scheduler) congress(ctx context.Context, now time.Time) (time.Time, error) {
	next := s.calendar.NextCongress(now)
	if err := s.game.CandidateCongress(ctx); err != nil {
		return next, err
	}
	s.reporter.Report(ctx, "task", "Candidated for congress", nil)
	return next, nil
}

func (s *Scheduler) partyPresidency(ctx context.Context, now time.Time) (time.Time, error) {
	next := s.calendar.NextPartyPresidency(now)
	if err := s.game.CandidatePartyPresidency(ctx); err != nil {
		return next, err
	}
	s.reporter.Report(ctx, "task", "Candidated for party presidency", nil)
	return next, nil
}

func (s *Scheduler) contributeCC(ctx context.Context, now time.Time) (time.Time, error) {
	if err := s.game.ContributeCC(ctx, s.opts.ContributeCCAmount); err != nil {
		return time.Time{}, err
	}
	s.reporter.Report(ctx, "task", fmt.Sprintf("Contributed %d cc", s.opts.ContributeCCAmount), nil)
	return s.calendar.NextMidnight(now), nil
}

// renewHouses keeps houses active, renewing when less than two hours remain.
func (s *Scheduler) renewHouses(ctx context.Context, now time.Time) (time.Time, error) {
	expires := s.state.HouseExpiresAt()
	if !expires.IsZero() && expires.Sub(now) >= 2*houseMargin {
		return expires.Add(-houseMargin), nil
	}
	renewed, err := s.game.RenewHouses(ctx)
	if err != nil {
		return time.Time{}, err
	}
	s.state.SetHouseExpiresAt(renewed)
	if renewed.IsZero() {
		// No houses to keep active.
		return s.now().Add(24 * time.Hour), nil
	}
	next := renewed.Add(-houseMargin)
	if after := s.now(); !next.After(after) {
		return after.Add(houseMargin), nil
	}
	return next, nil
}
