package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	_ "time/tzdata"

	"erepbot/internal/config"
	"erepbot/internal/game"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testOptions enables only the tasks a test names.
func testOptions(tasks ...TaskName) config.Options {
	o := config.DefaultOptions()
	o.Fight, o.Work, o.Train, o.Eat = false, false, false, false
	o.UpdateGateTimeout = 50 * time.Millisecond
	o.ConcurrencyGateTimeout = 50 * time.Millisecond
	for _, name := range tasks {
		switch name {
		case TaskWork:
			o.Work = true
		case TaskTrain:
			o.Train = true
		case TaskFight:
			o.Fight = true
		case TaskEat:
			o.Eat = true
		case TaskWAM:
			o.WAM = true
		case TaskOvertime:
			o.Overtime = true
		case TaskRenewHouses:
			o.RenewHouses = true
		case TaskEpicHunt:
			o.EpicHunt = true
		}
	}
	return o
}

type shotStep struct {
	res game.ShotResult
	err error
}

type fakeGame struct {
	mu sync.Mutex

	status        game.Status
	statusErr     error
	battles       []game.Battle
	contributions []game.Contribution
	jobInfo       game.JobInfo
	companies     game.Companies
	wamResult     game.WorkResult
	wamErr        error
	eatResult     *game.EatResult
	eatErr        error
	houseExpiry   time.Time
	inventory     game.Inventory
	ateColors     []string

	// shots are consumed in order; once empty every shot is one hit.
	shots     []shotStep
	recovered int

	calls   map[string]int
	travels [][2]int
}

func newFakeGame() *fakeGame {
	return &fakeGame{calls: make(map[string]int)}
}

func (f *fakeGame) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeGame) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeGame) Status(context.Context) (game.Status, error) {
	f.hit("status")
	return f.status, f.statusErr
}

func (f *fakeGame) Battles(context.Context) ([]game.Battle, error) {
	f.hit("battles")
	return f.battles, nil
}

func (f *fakeGame) Contributions(context.Context) ([]game.Contribution, error) {
	f.hit("contributions")
	return f.contributions, nil
}

func (f *fakeGame) RefreshInventory(context.Context) (game.Inventory, error) {
	f.hit("inventory")
	return f.inventory, nil
}

func (f *fakeGame) RefreshCompanies(context.Context) (game.Companies, error) {
	f.hit("companies")
	return f.companies, nil
}

func (f *fakeGame) RefreshMoney(context.Context) (game.Money, error) {
	f.hit("money")
	return game.Money{CC: 100}, nil
}

func (f *fakeGame) RefreshJobInfo(context.Context) (game.JobInfo, error) {
	f.hit("job-info")
	return f.jobInfo, nil
}

func (f *fakeGame) Eat(_ context.Context, color string) (game.EatResult, error) {
	f.hit("eat")
	f.mu.Lock()
	f.ateColors = append(f.ateColors, color)
	f.mu.Unlock()
	if f.eatErr != nil {
		return game.EatResult{}, f.eatErr
	}
	if f.eatResult != nil {
		f.recovered = f.eatResult.Recovered
		return *f.eatResult, nil
	}
	return game.EatResult{}, game.ErrNoFood
}

func (f *fakeGame) FightOnce(context.Context, int64, game.Division, int) (game.ShotResult, error) {
	f.hit("fight")
	if len(f.shots) > 0 {
		step := f.shots[0]
		f.shots = f.shots[1:]
		if step.err == nil {
			f.recovered = step.res.Recovered
		}
		return step.res, step.err
	}
	f.recovered -= game.EnergyPerHit
	return game.ShotResult{Hits: 1, Damage: 1000, Recovered: f.recovered}, nil
}

func (f *fakeGame) TravelTo(_ context.Context, country, region int) error {
	f.hit("travel")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.travels = append(f.travels, [2]int{country, region})
	return nil
}

func (f *fakeGame) SetDefaultWeapon(context.Context, int64, game.Division) error {
	f.hit("weapon")
	return nil
}

func (f *fakeGame) ChooseSide(context.Context, int64, int) error {
	f.hit("side")
	return nil
}

func (f *fakeGame) Work(context.Context) error {
	f.hit("work")
	return nil
}

func (f *fakeGame) Train(context.Context) error {
	f.hit("train")
	return nil
}

func (f *fakeGame) WorkOvertime(context.Context) error {
	f.hit("overtime")
	return nil
}

func (f *fakeGame) WorkAsManager(context.Context, int64) (game.WorkResult, error) {
	f.hit("wam")
	return f.wamResult, f.wamErr
}

func (f *fakeGame) Employ(context.Context) error {
	f.hit("employ")
	return nil
}

func (f *fakeGame) BuyGold(context.Context) error {
	f.hit("gold")
	return nil
}

func (f *fakeGame) CandidateCongress(context.Context) error {
	f.hit("congress")
	return nil
}

func (f *fakeGame) CandidatePartyPresidency(context.Context) error {
	f.hit("party")
	return nil
}

func (f *fakeGame) ContributeCC(context.Context, int) error {
	f.hit("contribute")
	return nil
}

func (f *fakeGame) RenewHouses(context.Context) (time.Time, error) {
	f.hit("houses")
	return f.houseExpiry, nil
}

type recordedEvent struct {
	kind, message string
}

type recordingReporter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingReporter) Report(_ context.Context, kind, message string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind: kind, message: message})
}

func (r *recordingReporter) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.kind)
	}
	return out
}

// newTestScheduler wires a scheduler with a fixed clock and a recording sleep.
func newTestScheduler(t interface{ Fatalf(string, ...any) }, opts config.Options, g *fakeGame, rep Reporter) *Scheduler {
	s, err := NewScheduler(opts, g, rep, quietLogger())
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.now = func() time.Time { return testNow }
	s.fighter.now = s.now
	return s
}

func setEnergy(s *State, recovered, recoverable, interval, limit int) {
	s.UpdateEnergy(func(e *game.Energy) { e.Set(recovered, recoverable, interval, limit) })
}
