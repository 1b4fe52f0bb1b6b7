package game

import "time"

type Citizen struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Level            int    `json:"level"`
	XP               int    `json:"xp"`
	NextLevelXP      int    `json:"next_level_xp"`
	PP               int    `json:"pp"`
	PPMilestones     []int  `json:"pp_milestones"`
	Citizenship      int    `json:"citizenship"`
	CurrentCountry   int    `json:"current_country"`
	CurrentRegion    int    `json:"current_region"`
	ResidenceCountry int    `json:"residence_country"`
	ResidenceRegion  int    `json:"residence_region"`
	Division         int    `json:"division"`
	Maverick         bool   `json:"maverick"`
	OTPoints         int    `json:"ot_points"`
}

// XPTillLevelUp is the experience (one point per hit) missing to the next level.
func (c Citizen) XPTillLevelUp() int {
	if c.NextLevelXP <= c.XP {
		return 0
	}
	return c.NextLevelXP - c.XP
}

type EnergyState struct {
	Recovered   int       `json:"recovered"`
	Recoverable int       `json:"recoverable"`
	Interval    int       `json:"interval"`
	Limit       int       `json:"limit"`
	NextTickAt  time.Time `json:"next_tick_at"`
}

// Status is the full-state snapshot the gateway reports after a refresh.
type Status struct {
	Energy          EnergyState `json:"energy"`
	Citizen         Citizen     `json:"citizen"`
	FFLockdown      int         `json:"ff_lockdown"`
	HasContribution bool        `json:"has_contribution"`
	HouseExpiresAt  time.Time   `json:"house_expires_at"`
}

type Contribution struct {
	BattleID int64   `json:"battle_id"`
	Damage   float64 `json:"damage"`
}

// ShotResult is the outcome of a single fight request.
type ShotResult struct {
	Hits        int     `json:"hits"`
	Damage      float64 `json:"damage"`
	Recovered   int     `json:"recovered"`
	XP          int     `json:"xp"`
	EnemyKilled bool    `json:"enemy_killed"`
}

type EatResult struct {
	Recovered   int       `json:"recovered"`
	Recoverable int       `json:"recoverable"`
	NextTickAt  time.Time `json:"next_tick_at"`
}

type WorkResult struct {
	Worked     bool `json:"worked"`
	EnergyUsed int  `json:"energy_used"`
	FFLockdown int  `json:"ff_lockdown"`
}

type Inventory struct {
	Food    map[string]int `json:"food"`
	Weapons map[string]int `json:"weapons"`
	Used    int            `json:"used"`
	Total   int            `json:"total"`
}

type Companies struct {
	Holdings   []int64 `json:"holdings"`
	FFLockdown int     `json:"ff_lockdown"`
}

type Money struct {
	Gold float64 `json:"gold"`
	CC   float64 `json:"cc"`
}

type JobInfo struct {
	Worked   bool `json:"worked"`
	Trained  bool `json:"trained"`
	OTPoints int  `json:"ot_points"`
}
