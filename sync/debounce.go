package sync

import (
	stdsync "sync"
	"time"

	"zeta-sync/internal/scheduler"
)

// debouncer collapses bursts of Trigger calls into a single scheduled
// task: the trailing edge fires delay after the last Trigger, but
// never later than maxWait after the first Trigger in the burst. Firing
// means handing a Task to the scheduler, not running the work directly —
// the scheduler's own goroutine is the serialization point.
type debouncer struct {
	sched   *scheduler.Scheduler
	name    string
	delay   time.Duration
	maxWait time.Duration
	fn      func() error

	mu          stdsync.Mutex
	timer       *time.Timer
	scheduledAt time.Time
}

func newDebouncer(sched *scheduler.Scheduler, name string, delay, maxWait time.Duration, fn func() error) *debouncer {
	return &debouncer{sched: sched, name: name, delay: delay, maxWait: maxWait, fn: fn}
}

// Trigger schedules (or reschedules) the trailing-edge fire.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if d.scheduledAt.IsZero() {
		d.scheduledAt = now
	}
	wait := d.delay
	if elapsed := now.Sub(d.scheduledAt); elapsed+d.delay > d.maxWait {
		wait = d.maxWait - elapsed
		if wait < 0 {
			wait = 0
		}
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(wait, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	d.scheduledAt = time.Time{}
	d.mu.Unlock()
	d.sched.ScheduleHighPriorityTask(scheduler.Task{Name: d.name, Execute: d.fn})
}

// Stop cancels any pending fire without running it.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
