package schedule

import "time"

// Clock abstracts ticker creation so tests can drive task cadence with a
// fake clock instead of wall time.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker is the minimal surface of time.Ticker the scheduler needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// WallClock is the production Clock backed by time.NewTicker.
type WallClock struct{}

func (WallClock) NewTicker(d time.Duration) Ticker {
	return &wallTicker{t: time.NewTicker(d)}
}

type wallTicker struct {
	t *time.Ticker
}

func (w *wallTicker) C() <-chan time.Time { return w.t.C }
func (w *wallTicker) Stop()               { w.t.Stop() }

// ManualClock is a test Clock whose tickers fire only when told to.
type ManualClock struct {
	tickers []*ManualTicker
}

// NewManualClock creates a ManualClock.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

func (m *ManualClock) NewTicker(d time.Duration) Ticker {
	t := &ManualTicker{ch: make(chan time.Time, 1), interval: d}
	m.tickers = append(m.tickers, t)
	return t
}

// Tick fires every ticker created so far once.
func (m *ManualClock) Tick() {
	for _, t := range m.tickers {
		t.Tick()
	}
}

// Tickers returns the tickers handed out, in creation order.
func (m *ManualClock) Tickers() []*ManualTicker { return m.tickers }

// ManualTicker fires on demand.
type ManualTicker struct {
	ch       chan time.Time
	interval time.Duration
	stopped  bool
}

func (t *ManualTicker) C() <-chan time.Time { return t.ch }
func (t *ManualTicker) Stop()               { t.stopped = true }

// Interval reports the cadence the ticker was created with.
func (t *ManualTicker) Interval() time.Duration { return t.interval }

// Stopped reports whether Stop was called.
func (t *ManualTicker) Stopped() bool { return t.stopped }

// Tick fires the ticker once. Sends are non-blocking like time.Ticker.
func (t *ManualTicker) Tick() {
	if t.stopped {
		return
	}
	select {
	case t.ch <- time.Now():
	default:
	}
}
