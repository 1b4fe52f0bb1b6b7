package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Options are the behaviour switches the scheduler and fight engine consume.
type Options struct {
	Fight              bool   `yaml:"fight"`
	Air                bool   `yaml:"air"`
	Ground             bool   `yaml:"ground"`
	AllIn              bool   `yaml:"all_in"`
	NextEnergy         bool   `yaml:"next_energy"`
	ContinuousFighting bool   `yaml:"continuous_fighting"`
	TravelToFight      bool   `yaml:"travel_to_fight"`
	AlwaysTravel       bool   `yaml:"always_travel"`
	ForceTravel        bool   `yaml:"force_travel"`
	RWDefenderSide     bool   `yaml:"rw_defender_side"`
	Maverick           bool   `yaml:"maverick"`
	SortBattlesByTime  bool   `yaml:"sort_battles_by_time"`
	BattleFilter       string `yaml:"battle_filter"`

	Work            bool `yaml:"work"`
	Train           bool `yaml:"train"`
	WAM             bool `yaml:"wam"`
	WAMHour         int  `yaml:"wam_hour"`
	Overtime        bool `yaml:"overtime"`
	Employ          bool `yaml:"employ"`
	Eat             bool `yaml:"eat"`
	EpicHunt        bool `yaml:"epic_hunt"`
	GoldBuy         bool `yaml:"gold_buy"`
	Congress        bool `yaml:"congress"`
	PartyPresidency bool `yaml:"party_presidency"`
	ContributeCC    bool `yaml:"contribute_cc"`
	RenewHouses     bool `yaml:"renew_houses"`

	ContributeCCAmount  int    `yaml:"contribute_cc_amount"`
	CongressCron        string `yaml:"congress_cron"`
	PartyPresidencyCron string `yaml:"party_presidency_cron"`
	WeeklyResetCron     string `yaml:"weekly_reset_cron"`
	GameTimezone        string `yaml:"game_timezone"`

	MaxJitter              time.Duration `yaml:"max_jitter"`
	UpdateGateTimeout      time.Duration `yaml:"update_gate_timeout"`
	ConcurrencyGateTimeout time.Duration `yaml:"concurrency_gate_timeout"`
	BroadcastEvery         time.Duration `yaml:"broadcast_every"`
}

type BotConfig struct {
	GatewayURL        string
	Email             string
	Password          string
	DatabaseURL       string
	StatusAddr        string
	LogLevel          string
	LogFormat         string
	RequestsPerSecond float64
	Options           Options
}

type CLIConfig struct {
	GatewayURL  string
	StatusURL   string
	DatabaseURL string
}

func DefaultOptions() Options {
	return Options{
		Fight:                  true,
		Ground:                 true,
		TravelToFight:          true,
		SortBattlesByTime:      true,
		Work:                   true,
		Train:                  true,
		WAMHour:                14,
		Eat:                    true,
		ContributeCCAmount:     0,
		CongressCron:           "0 1 20 * *",
		PartyPresidencyCron:    "0 1 10 * *",
		WeeklyResetCron:        "0 0 * * 2",
		GameTimezone:           "America/Los_Angeles",
		UpdateGateTimeout:      10 * time.Second,
		ConcurrencyGateTimeout: 600 * time.Second,
		BroadcastEvery:         time.Minute,
	}
}

func LoadBotFromEnv() (BotConfig, error) {
	cfg := BotConfig{
		GatewayURL:        strings.TrimRight(strings.TrimSpace(os.Getenv("ERB_GATEWAY_URL")), "/"),
		Email:             strings.TrimSpace(os.Getenv("ERB_EMAIL")),
		Password:          os.Getenv("ERB_PASSWORD"),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		StatusAddr:        envDefault("ERB_STATUS_ADDR", ":8090"),
		LogLevel:          envDefault("ERB_LOG_LEVEL", "info"),
		LogFormat:         envDefault("ERB_LOG_FORMAT", "json"),
		RequestsPerSecond: envFloatDefault("ERB_REQUESTS_PER_SECOND", 2),
	}

	opts := DefaultOptions()
	if path := strings.TrimSpace(os.Getenv("ERB_CONFIG_FILE")); path != "" {
		loaded, err := LoadOptionsFile(path, opts)
		if err != nil {
			return cfg, err
		}
		opts = loaded
	}
	cfg.Options = applyEnvOptions(opts)

	if cfg.GatewayURL == "" {
		return cfg, fmt.Errorf("ERB_GATEWAY_URL is required")
	}
	if err := cfg.Options.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		GatewayURL:  strings.TrimRight(envDefault("ERB_GATEWAY_URL", "http://localhost:8080"), "/"),
		StatusURL:   strings.TrimRight(envDefault("ERB_STATUS_URL", "http://localhost:8090"), "/"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
	}
}

// LoadOptionsFile overlays a YAML options file on base. Keys missing from the
// file keep their base value.
func LoadOptionsFile(path string, base Options) (Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read options file: %w", err)
	}
	out := base
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return base, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func (o Options) Validate() error {
	if o.WAMHour < 0 || o.WAMHour > 23 {
		return fmt.Errorf("wam_hour must be within 0-23")
	}
	if o.ContributeCCAmount < 0 {
		return fmt.Errorf("contribute_cc_amount must be >= 0")
	}
	if o.MaxJitter < 0 {
		return fmt.Errorf("max_jitter must be >= 0")
	}
	if o.UpdateGateTimeout <= 0 || o.ConcurrencyGateTimeout <= 0 {
		return fmt.Errorf("gate timeouts must be > 0")
	}
	if _, err := time.LoadLocation(o.GameTimezone); err != nil {
		return fmt.Errorf("game_timezone: %w", err)
	}
	return nil
}

func (o Options) Location() *time.Location {
	loc, err := time.LoadLocation(o.GameTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func applyEnvOptions(o Options) Options {
	o.Fight = envBoolDefault("ERB_FIGHT", o.Fight)
	o.Air = envBoolDefault("ERB_AIR", o.Air)
	o.Ground = envBoolDefault("ERB_GROUND", o.Ground)
	o.AllIn = envBoolDefault("ERB_ALL_IN", o.AllIn)
	o.NextEnergy = envBoolDefault("ERB_NEXT_ENERGY", o.NextEnergy)
	o.ContinuousFighting = envBoolDefault("ERB_CONTINUOUS_FIGHTING", o.ContinuousFighting)
	o.TravelToFight = envBoolDefault("ERB_TRAVEL_TO_FIGHT", o.TravelToFight)
	o.AlwaysTravel = envBoolDefault("ERB_ALWAYS_TRAVEL", o.AlwaysTravel)
	o.ForceTravel = envBoolDefault("ERB_FORCE_TRAVEL", o.ForceTravel)
	o.RWDefenderSide = envBoolDefault("ERB_RW_DEFENDER_SIDE", o.RWDefenderSide)
	o.Maverick = envBoolDefault("ERB_MAVERICK", o.Maverick)
	o.SortBattlesByTime = envBoolDefault("ERB_SORT_BATTLES_BY_TIME", o.SortBattlesByTime)
	o.BattleFilter = envDefault("ERB_BATTLE_FILTER", o.BattleFilter)

	o.Work = envBoolDefault("ERB_WORK", o.Work)
	o.Train = envBoolDefault("ERB_TRAIN", o.Train)
	o.WAM = envBoolDefault("ERB_WAM", o.WAM)
	o.WAMHour = envIntDefault("ERB_WAM_HOUR", o.WAMHour)
	o.Overtime = envBoolDefault("ERB_OVERTIME", o.Overtime)
	o.Employ = envBoolDefault("ERB_EMPLOY", o.Employ)
	o.Eat = envBoolDefault("ERB_EAT", o.Eat)
	o.EpicHunt = envBoolDefault("ERB_EPIC_HUNT", o.EpicHunt)
	o.GoldBuy = envBoolDefault("ERB_GOLD_BUY", o.GoldBuy)
	o.Congress = envBoolDefault("ERB_CONGRESS", o.Congress)
	o.PartyPresidency = envBoolDefault("ERB_PARTY_PRESIDENCY", o.PartyPresidency)
	o.ContributeCC = envBoolDefault("ERB_CONTRIBUTE_CC", o.ContributeCC)
	o.RenewHouses = envBoolDefault("ERB_RENEW_HOUSES", o.RenewHouses)
	o.ContributeCCAmount = envIntDefault("ERB_CONTRIBUTE_CC_AMOUNT", o.ContributeCCAmount)
	o.GameTimezone = envDefault("ERB_GAME_TIMEZONE", o.GameTimezone)

	o.MaxJitter = envDurationDefault("ERB_MAX_JITTER", o.MaxJitter)
	o.UpdateGateTimeout = envDurationDefault("ERB_UPDATE_GATE_TIMEOUT", o.UpdateGateTimeout)
	o.ConcurrencyGateTimeout = envDurationDefault("ERB_CONCURRENCY_GATE_TIMEOUT", o.ConcurrencyGateTimeout)
	o.BroadcastEvery = envDurationDefault("ERB_BROADCAST_EVERY", o.BroadcastEvery)
	return o
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
