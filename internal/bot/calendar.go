package bot

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"erepbot/internal/config"
)

// Calendar answers "when next" questions in game time.
type Calendar struct {
	loc             *time.Location
	midnight        cron.Schedule
	wam             cron.Schedule
	weekly          cron.Schedule
	congress        cron.Schedule
	partyPresidency cron.Schedule
}

func NewCalendar(opts config.Options) (*Calendar, error) {
	parse := func(field, spec string) (cron.Schedule, error) {
		s, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", field, spec, err)
		}
		return s, nil
	}
	c := &Calendar{loc: opts.Location()}
	var err error
	if c.midnight, err = parse("midnight", "0 0 * * *"); err != nil {
		return nil, err
	}
	if c.wam, err = parse("wam_hour", fmt.Sprintf("0 %d * * *", opts.WAMHour)); err != nil {
		return nil, err
	}
	if c.weekly, err = parse("weekly_reset_cron", opts.WeeklyResetCron); err != nil {
		return nil, err
	}
	if c.congress, err = parse("congress_cron", opts.CongressCron); err != nil {
		return nil, err
	}
	if c.partyPresidency, err = parse("party_presidency_cron", opts.PartyPresidencyCron); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Calendar) Location() *time.Location { return c.loc }

func (c *Calendar) NextMidnight(now time.Time) time.Time {
	return c.midnight.Next(now.In(c.loc))
}

// WAMTomorrow is the configured manager-work hour on the next game day, even
// when that hour has not yet passed today.
func (c *Calendar) WAMTomorrow(now time.Time) time.Time {
	return c.wam.Next(c.NextMidnight(now).Add(-time.Second))
}

// WeeklyDeadline is the next weekly-cycle rollover.
func (c *Calendar) WeeklyDeadline(now time.Time) time.Time {
	return c.weekly.Next(now.In(c.loc))
}

func (c *Calendar) NextCongress(now time.Time) time.Time {
	return c.congress.Next(now.In(c.loc))
}

func (c *Calendar) NextPartyPresidency(now time.Time) time.Time {
	return c.partyPresidency.Next(now.In(c.loc))
}
