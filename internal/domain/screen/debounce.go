package screen

import (
	"time"

	"github.com/yanqian/weather-screen/pkg/util"
)

// debouncer delays an action until the input has been quiet for delay.
// It is owned by the actor goroutine; only the timer callback runs elsewhere,
// and it merely forwards the generation it was armed with. A callback whose
// generation is no longer current lost a race with arm or cancel and must be
// ignored.
type debouncer struct {
	clock util.Clock
	delay time.Duration
	timer util.Timer
	gen   uint64
}

func newDebouncer(clock util.Clock, delay time.Duration) *debouncer {
	return &debouncer{clock: clock, delay: delay}
}

// arm cancels any pending timer and schedules fire.
func (d *debouncer) arm(fire func(gen uint64)) {
	d.cancel()
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { fire(gen) })
}

func (d *debouncer) cancel() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// claim reports whether gen is the live timer and consumes it.
func (d *debouncer) claim(gen uint64) bool {
	if d.timer == nil || gen != d.gen {
		return false
	}
	d.timer = nil
	return true
}

func (d *debouncer) pending() bool {
	return d.timer != nil
}
