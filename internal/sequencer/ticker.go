package sequencer

import "time"

// TickSource abstracts the cadence that drives a build run, so the same
// sequencer logic runs off a real clock in production and synchronously
// in tests.
type TickSource interface {
	// Ticks returns the channel the run loop waits on.
	Ticks() <-chan time.Time
	// Stop releases the source; no further ticks are delivered.
	Stop()
}

// IntervalTicker is the production tick source backed by time.Ticker.
type IntervalTicker struct {
	t *time.Ticker
}

// NewIntervalTicker returns a tick source firing every d.
func NewIntervalTicker(d time.Duration) *IntervalTicker {
	return &IntervalTicker{t: time.NewTicker(d)}
}

// Ticks returns the underlying ticker channel.
func (it *IntervalTicker) Ticks() <-chan time.Time {
	return it.t.C
}

// Stop stops the underlying ticker.
func (it *IntervalTicker) Stop() {
	it.t.Stop()
}

// ManualTicker drives the sequencer by hand. Each Tick blocks until the run
// loop has picked the tick up, which keeps test assertions deterministic.
type ManualTicker struct {
	ch chan time.Time
}

// NewManualTicker returns a tick source with no cadence of its own.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// Ticks returns the manual channel.
func (mt *ManualTicker) Ticks() <-chan time.Time {
	return mt.ch
}

// Tick delivers one tick. It blocks until the run loop receives it, so a
// completed run will not accept further ticks and TryTick should be used
// once completion is possible.
func (mt *ManualTicker) Tick() {
	mt.ch <- time.Now()
}

// TryTick delivers one tick unless nothing is listening.
// It reports whether the tick was accepted.
func (mt *ManualTicker) TryTick() bool {
	select {
	case mt.ch <- time.Now():
		return true
	default:
		return false
	}
}

// Stop is a no-op; the manual channel stays open for reuse in tests.
func (mt *ManualTicker) Stop() {}
