package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type TaskName string

const (
	TaskWork            TaskName = "work"
	TaskTrain           TaskName = "train"
	TaskFight           TaskName = "fight"
	TaskWAM             TaskName = "wam"
	TaskOvertime        TaskName = "overtime"
	TaskEmploy          TaskName = "employ"
	TaskEat             TaskName = "eat"
	TaskEpicHunt        TaskName = "epic-hunt"
	TaskGoldBuy         TaskName = "gold-buy"
	TaskCongress        TaskName = "congress-candidacy"
	TaskPartyPresidency TaskName = "party-presidency-candidacy"
	TaskContributeCC    TaskName = "contribute-cc"
	TaskRenewHouses     TaskName = "renew-houses"
)

// TaskClock maps tasks to the time they are next due. Registration order is
// the order due tasks are run in.
type TaskClock struct {
	order []TaskName
	due   map[TaskName]time.Time
}

func NewTaskClock() *TaskClock {
	return &TaskClock{due: make(map[TaskName]time.Time)}
}

func (c *TaskClock) Register(name TaskName, at time.Time) {
	if _, ok := c.due[name]; !ok {
		c.order = append(c.order, name)
	}
	c.due[name] = at
}

func (c *TaskClock) Reschedule(name TaskName, at time.Time) error {
	if _, ok := c.due[name]; !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	c.due[name] = at
	return nil
}

// Due lists tasks whose due time is at or before now.
func (c *TaskClock) Due(now time.Time) []TaskName {
	var out []TaskName
	for _, name := range c.order {
		if !c.due[name].After(now) {
			out = append(out, name)
		}
	}
	return out
}

// Next returns the earliest due task. ok is false when nothing is registered.
func (c *TaskClock) Next() (name TaskName, at time.Time, ok bool) {
	for _, n := range c.order {
		t := c.due[n]
		if !ok || t.Before(at) {
			name, at, ok = n, t, true
		}
	}
	return name, at, ok
}

func (c *TaskClock) Len() int { return len(c.order) }

// Snapshot copies the clock for readers outside the scheduler.
func (c *TaskClock) Snapshot() map[TaskName]time.Time {
	out := make(map[TaskName]time.Time, len(c.due))
	for k, v := range c.due {
		out[k] = v
	}
	return out
}

func (c *TaskClock) String() string {
	names := make([]string, 0, len(c.due))
	for name, at := range c.due {
		names = append(names, fmt.Sprintf("%s at %s", name, at.Format("2006-01-02 15:04:05")))
	}
	sort.Strings(names)
	return strings.Join(names, "; ")
}
