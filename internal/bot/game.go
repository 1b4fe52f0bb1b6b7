package bot

import (
	"context"
	"log/slog"
	"time"

	"erepbot/internal/game"
)

// StateSource reads state from the game.
type StateSource interface {
	Status(ctx context.Context) (game.Status, error)
	Battles(ctx context.Context) ([]game.Battle, error)
	Contributions(ctx context.Context) ([]game.Contribution, error)
	RefreshInventory(ctx context.Context) (game.Inventory, error)
	RefreshCompanies(ctx context.Context) (game.Companies, error)
	RefreshMoney(ctx context.Context) (game.Money, error)
	RefreshJobInfo(ctx context.Context) (game.JobInfo, error)
}

// Combat is the set of energy-consuming military actions.
type Combat interface {
	Eat(ctx context.Context, color string) (game.EatResult, error)
	FightOnce(ctx context.Context, battleID int64, division game.Division, side int) (game.ShotResult, error)
	TravelTo(ctx context.Context, country, region int) error
	SetDefaultWeapon(ctx context.Context, battleID int64, division game.Division) error
	ChooseSide(ctx context.Context, battleID int64, side int) error
}

// Economy covers daily work and civic actions.
type Economy interface {
	Work(ctx context.Context) error
	Train(ctx context.Context) error
	WorkOvertime(ctx context.Context) error
	WorkAsManager(ctx context.Context, holdingID int64) (game.WorkResult, error)
	Employ(ctx context.Context) error
	BuyGold(ctx context.Context) error
	CandidateCongress(ctx context.Context) error
	CandidatePartyPresidency(ctx context.Context) error
	ContributeCC(ctx context.Context, amount int) error
	RenewHouses(ctx context.Context) (time.Time, error)
}

type Game interface {
	StateSource
	Combat
	Economy
}

// Reporter receives human-readable status and fault events.
type Reporter interface {
	Report(ctx context.Context, kind, message string, fields map[string]any)
}

type logReporter struct {
	log *slog.Logger
}

func (r logReporter) Report(_ context.Context, kind, message string, fields map[string]any) {
	args := make([]any, 0, 2+2*len(fields))
	args = append(args, "kind", kind)
	for k, v := range fields {
		args = append(args, k, v)
	}
	r.log.Info(message, args...)
}
