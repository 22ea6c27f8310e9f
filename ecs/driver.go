package ecs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PhaseStats accumulates wall-clock timings for one lifecycle phase.
type PhaseStats struct {
	Calls uint64
	Min   time.Duration
	Max   time.Duration
	Total time.Duration
}

func (s *PhaseStats) record(d time.Duration) {
	if s.Calls == 0 || d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
	s.Calls++
	s.Total += d
}

// Avg returns the mean duration per call, or 0 before the first call.
func (s PhaseStats) Avg() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Calls)
}

// DriverStats is a snapshot of the driver's per-phase timings.
type DriverStats struct {
	Frames      uint64
	FixedSteps  uint64
	PrePhysics  PhaseStats
	Update      PhaseStats
	PostPhysics PhaseStats
}

// maxFrameDelta bounds how much simulation time one frame may owe the fixed
// step, so a long stall does not trigger a catch-up spiral.
const maxFrameDelta = 0.25

// Driver steps the registry's lifecycle phases on a fixed-step clock: the
// physics phases run at FixedUpdateHz with an accumulator, the update phase
// runs once per frame with the frame's real delta, and deferred destructions
// drain at the end of every frame.
type Driver struct {
	reg *Registry
	cfg Config
	log zerolog.Logger

	accumulator float64
	stats       DriverStats
}

// NewDriver returns a driver over the registry using the given settings.
func NewDriver(reg *Registry, cfg Config) *Driver {
	return &Driver{
		reg: reg,
		cfg: cfg,
		log: zerolog.Nop(),
	}
}

// SetLogger installs a logger used for frame loop diagnostics.
func (d *Driver) SetLogger(log zerolog.Logger) {
	d.log = log
}

// Stats returns the timings collected so far.
func (d *Driver) Stats() DriverStats {
	return d.stats
}

// Step advances the simulation by dt seconds of real time.
func (d *Driver) Step(dt float64) {
	if dt > maxFrameDelta {
		dt = maxFrameDelta
	}
	fixedDt := d.cfg.FixedStep().Seconds()
	d.accumulator += dt
	for d.accumulator >= fixedDt {
		d.timed(&d.stats.PrePhysics, fixedDt, d.reg.InvokePrePhysics)
		d.timed(&d.stats.PostPhysics, fixedDt, d.reg.InvokePostPhysics)
		d.accumulator -= fixedDt
		d.stats.FixedSteps++
	}
	d.timed(&d.stats.Update, dt, d.reg.InvokeUpdate)
	d.reg.ProcessDeferredDestructions()
	d.stats.Frames++
}

func (d *Driver) timed(s *PhaseStats, dt float64, phase func(float64)) {
	start := time.Now()
	phase(dt)
	s.record(time.Since(start))
}

// Run steps frames until the context is cancelled. TargetFPS > 0 paces the
// loop with a ticker; 0 runs frames back to back.
func (d *Driver) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if d.cfg.TargetFPS > 0 {
		t := time.NewTicker(time.Second / time.Duration(d.cfg.TargetFPS))
		defer t.Stop()
		tick = t.C
	}
	last := time.Now()
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		now := time.Now()
		d.Step(now.Sub(last).Seconds())
		last = now
	}
}
