package game

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// EnergyPerHit is what a single hit costs. Fixed by the game.
	EnergyPerHit = 10

	// RecoveryTick is the game-time unit over which Energy.Interval is regenerated.
	RecoveryTick = 6 * time.Minute

	AirDivision = 11

	ObligatoryPP = 75

	DefaultEnergyLimit    = 500
	DefaultEnergyInterval = 10
)

var (
	ErrTransient       = errors.New("transient transport fault")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrGateTimeout     = errors.New("gate acquire timed out")
	ErrSchedulingFault = errors.New("scheduling fault")

	ErrNotEnoughWeapons = errors.New("not enough weapons")
	ErrShootLockout     = errors.New("shoot lockout")
	ErrZoneInactive     = errors.New("zone inactive")
	ErrWrongDivision    = errors.New("cannot activate a zone with a non-native division")
	ErrNonBelligerent   = errors.New("dictatorship/liberation wars are not supported")
	ErrFightDisabled    = errors.New("fight disabled")
	ErrUnknownSide      = errors.New("unknown side")
	ErrChangeLocation   = errors.New("change location")
	ErrNoFood           = errors.New("no food to eat")
	ErrTaskUnavailable  = errors.New("task unavailable")
	ErrBattleNotFound   = errors.New("battle not found")
)

var domainErrors = []error{
	ErrNotEnoughWeapons,
	ErrShootLockout,
	ErrZoneInactive,
	ErrWrongDivision,
	ErrNonBelligerent,
	ErrFightDisabled,
	ErrUnknownSide,
	ErrChangeLocation,
	ErrNoFood,
	ErrTaskUnavailable,
	ErrBattleNotFound,
}

// gatewayCodes maps error codes reported by the game gateway onto domain errors.
var gatewayCodes = map[string]error{
	"NOT_ENOUGH_WEAPONS": ErrNotEnoughWeapons,
	"SHOOT_LOCKOUT":      ErrShootLockout,
	"ZONE_INACTIVE":      ErrZoneInactive,
	"WRONG_DIVISION":     ErrWrongDivision,
	"NON_BELLIGERENT":    ErrNonBelligerent,
	"FIGHT_DISABLED":     ErrFightDisabled,
	"DEPLOYMENT_MODE":    ErrFightDisabled,
	"UNKNOWN_SIDE":       ErrUnknownSide,
	"CHANGE_LOCATION":    ErrChangeLocation,
	"NO_FOOD":            ErrNoFood,
	"UNAVAILABLE":        ErrTaskUnavailable,
	"BATTLE_NOT_FOUND":   ErrBattleNotFound,
}

// ErrorForCode returns the domain error for a gateway error code, or nil when
// the code is unknown.
func ErrorForCode(code string) error {
	return gatewayCodes[strings.ToUpper(strings.TrimSpace(code))]
}

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTransient
	KindGateTimeout
	KindDomain
	KindScheduling
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransient:
		return "transient"
	case KindGateTimeout:
		return "gate_timeout"
	case KindDomain:
		return "domain"
	case KindScheduling:
		return "scheduling"
	default:
		return "unknown"
	}
}

// Classify sorts an error into the fault taxonomy the scheduler acts on.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrSchedulingFault):
		return KindScheduling
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrGateTimeout):
		return KindGateTimeout
	case IsDomain(err):
		return KindDomain
	default:
		return KindUnknown
	}
}

func IsDomain(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func Transient(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransient, fmt.Sprintf(format, args...))
}
