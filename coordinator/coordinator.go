// Package coordinator runs the planning and control schedules of the path tracker over the
// latest pose, velocity, stop request and enable flag.
package coordinator

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/pathtracker/config"
	"go.viam.com/pathtracker/control"
	"go.viam.com/pathtracker/crosstrack"
	"go.viam.com/pathtracker/localizer"
	"go.viam.com/pathtracker/logging"
	"go.viam.com/pathtracker/lookahead"
	"go.viam.com/pathtracker/spatialmath"
	"go.viam.com/pathtracker/speedprofile"
	"go.viam.com/pathtracker/utils"
	"go.viam.com/pathtracker/waypoint"
)

// ErrNotReady is returned by a tick whose inputs have not all arrived yet.
var ErrNotReady = errors.New("inputs not ready")

// standstill is the speed at or below which both the vehicle and its target count as stopped.
const standstill = 1e-5

// Controller is the downstream control law.
type Controller interface {
	Control(in control.Input) control.Actuation
	Reset()
}

// WindowPublisher receives every planned window. A window is never modified after it is handed
// over.
type WindowPublisher interface {
	PublishWindow(ctx context.Context, w *lookahead.Window) error
}

// ActuationPublisher receives the commands produced while drive-by-wire is enabled.
type ActuationPublisher interface {
	PublishActuation(ctx context.Context, in control.Input, out control.Actuation) error
}

// Twist is a target linear and angular velocity.
type Twist struct {
	Linear  float64
	Angular float64
}

// Options configure a Coordinator.
type Options struct {
	WindowSize          int
	PlanningPeriod      time.Duration
	ControlPeriod       time.Duration
	SearchThreshold     float64
	PathChangeThreshold float64
	Injector            speedprofile.Injector
	// Clock drives the schedules. Defaults to the wall clock.
	Clock clock.Clock
}

// OptionsFromConfig maps a validated config onto coordinator options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WindowSize:          cfg.WindowSize,
		PlanningPeriod:      utils.PeriodFromHz(cfg.PlanningRateHz),
		ControlPeriod:       utils.PeriodFromHz(cfg.ControlRateHz),
		SearchThreshold:     cfg.LocalSearchThreshold,
		PathChangeThreshold: cfg.ContinuityThreshold(),
		Injector:            cfg.Injector(),
	}
}

// Stats counts what the schedules have done so far.
type Stats struct {
	PlanningTicks      uint64
	OutOfBandTicks     uint64
	ControlTicks       uint64
	SkippedTicks       uint64
	ExhaustiveSearches uint64
	FitFailures        uint64
	Discontinuities    uint64
}

// Coordinator owns the tracker state. Handlers may be called from any goroutine.
type Coordinator struct {
	opts       Options
	clk        clock.Clock
	logger     logging.Logger
	controller Controller
	windowPub  WindowPublisher
	actPub     ActuationPublisher

	store *waypoint.Store
	loc   *localizer.Localizer

	pose     slot[spatialmath.Pose]
	velocity slot[float64]
	twist    slot[Twist]
	stop     slot[waypoint.OptionalIndex]
	window   slot[*lookahead.Window]
	enabled  atomic.Bool
	seq      atomic.Uint64

	// planMu serializes planning ticks with each other and with path replacement.
	planMu sync.Mutex

	controlMu   sync.Mutex
	lastControl time.Time

	planningTicks      atomic.Uint64
	outOfBandTicks     atomic.Uint64
	controlTicks       atomic.Uint64
	skippedTicks       atomic.Uint64
	exhaustiveSearches atomic.Uint64
	fitFailures        atomic.Uint64
	discontinuities    atomic.Uint64

	workersMu sync.Mutex
	workers   *utils.Workers
}

// New returns a coordinator with no path, pose or velocity. windowPub and actPub may be nil.
func New(
	opts Options,
	controller Controller,
	windowPub WindowPublisher,
	actPub ActuationPublisher,
	logger logging.Logger,
) (*Coordinator, error) {
	if opts.WindowSize <= 0 {
		return nil, errors.Errorf("window size must be positive, got %d", opts.WindowSize)
	}
	if opts.PlanningPeriod <= 0 || opts.ControlPeriod <= 0 {
		return nil, errors.New("planning and control periods must be positive")
	}
	if controller == nil {
		return nil, errors.New("a controller is required")
	}
	if opts.SearchThreshold <= 0 {
		opts.SearchThreshold = localizer.DefaultSearchThreshold
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Coordinator{
		opts:        opts,
		clk:         clk,
		logger:      logger,
		controller:  controller,
		windowPub:   windowPub,
		actPub:      actPub,
		store:       waypoint.NewStore(opts.PathChangeThreshold),
		loc:         localizer.New(opts.SearchThreshold),
		lastControl: clk.Now(),
	}, nil
}

// SetPath installs a new or redelivered path. If it disagrees with the previous path at the
// tracked index the localization is discarded so the next search is exhaustive.
func (c *Coordinator) SetPath(path *waypoint.Path) error {
	c.planMu.Lock()
	defer c.planMu.Unlock()

	err := c.store.Replace(path, c.loc.Previous())
	var disc *waypoint.DiscontinuityError
	switch {
	case errors.As(err, &disc):
		c.discontinuities.Inc()
		c.loc.Reset()
		c.logger.Warnw("path changed under the vehicle, relocalizing", "error", disc, "waypoints", path.Len())
		return nil
	case err != nil:
		return err
	}
	c.logger.Debugw("path set", "waypoints", path.Len())
	return nil
}

// SetPose records the latest vehicle pose.
func (c *Coordinator) SetPose(p spatialmath.Pose) {
	c.pose.Set(p)
}

// SetVelocity records the latest longitudinal speed.
func (c *Coordinator) SetVelocity(v float64) {
	c.velocity.Set(v)
}

// SetTargetTwist records the latest target twist.
func (c *Coordinator) SetTargetTwist(t Twist) {
	c.twist.Set(t)
}

// SetStopRequest records the stop line index. When the value changes a planning tick runs
// immediately, before this call returns.
func (c *Coordinator) SetStopRequest(ctx context.Context, stop waypoint.OptionalIndex) error {
	old, had := c.stop.Swap(stop)
	if (had && old == stop) || (!had && !stop.Valid()) {
		return nil
	}
	c.logger.Debugw("stop request changed", "from", old, "to", stop)

	c.planMu.Lock()
	defer c.planMu.Unlock()
	err := c.plan(ctx)
	if err == nil {
		c.outOfBandTicks.Inc()
	}
	return err
}

// SetEnabled arms or disarms drive-by-wire.
func (c *Coordinator) SetEnabled(enabled bool) {
	if c.enabled.Swap(enabled) != enabled {
		c.logger.Infow("drive-by-wire", "enabled", enabled)
	}
}

// Enabled reports whether drive-by-wire is armed.
func (c *Coordinator) Enabled() bool {
	return c.enabled.Load()
}

// Window returns the most recently published window, nil before the first one.
func (c *Coordinator) Window() *lookahead.Window {
	w, _ := c.window.Get()
	return w
}

// PlanningTick localizes the vehicle, builds and profiles a window, and publishes it. It returns
// ErrNotReady when there is no path or pose yet.
func (c *Coordinator) PlanningTick(ctx context.Context) error {
	c.planMu.Lock()
	defer c.planMu.Unlock()
	return c.plan(ctx)
}

func (c *Coordinator) plan(ctx context.Context) error {
	path := c.store.Path()
	pose, havePose := c.pose.Get()
	if path.Len() == 0 || !havePose {
		c.skippedTicks.Inc()
		return ErrNotReady
	}

	res, err := c.loc.Locate(path, pose.Position)
	if err != nil {
		c.skippedTicks.Inc()
		return errors.Wrap(ErrNotReady, err.Error())
	}
	if res.Exhaustive {
		c.exhaustiveSearches.Inc()
		c.logger.Debugw("exhaustive localization", "index", res.Index, "distance", res.Distance)
	}

	w, err := lookahead.Build(path, res.Index, c.opts.WindowSize)
	if err != nil {
		c.skippedTicks.Inc()
		return err
	}
	stop, _ := c.stop.Get()
	rep := c.opts.Injector.Apply(w, stop, path)
	if rep.UpstreamStop || rep.EndStop {
		c.logger.Debugw("stop profiled",
			"upstream", rep.UpstreamStop, "upstream_offset", rep.UpstreamOffset,
			"end", rep.EndStop, "end_offset", rep.EndOffset)
	}

	w.Seq = c.seq.Inc()
	w.Stamp = c.clk.Now()
	c.window.Set(w)
	c.planningTicks.Inc()

	if c.windowPub != nil {
		if err := c.windowPub.PublishWindow(ctx, w); err != nil {
			c.logger.Warnw("publishing window", "seq", w.Seq, "error", err)
		}
	}
	return nil
}

// ControlTick estimates cross-track error against the latest window and runs the controller.
// Commands are published only while enabled. The controller is reset while disabled and at a
// standstill. It returns ErrNotReady until velocity, twist, window and pose have all arrived,
// and an error wrapping crosstrack.ErrIllConditionedFit when no reliable error can be computed.
func (c *Coordinator) ControlTick(ctx context.Context) error {
	c.controlMu.Lock()
	defer c.controlMu.Unlock()

	vel, haveVel := c.velocity.Get()
	twist, haveTwist := c.twist.Get()
	w, haveWindow := c.window.Get()
	pose, havePose := c.pose.Get()
	enabled := c.enabled.Load()
	if !haveVel || !haveTwist || !haveWindow || !havePose {
		if !enabled {
			c.controller.Reset()
		}
		c.skippedTicks.Inc()
		return ErrNotReady
	}

	now := c.clk.Now()
	elapsed := now.Sub(c.lastControl)
	c.lastControl = now

	holding := !enabled || atStandstill(vel, twist)
	cte, err := crosstrack.EstimateWindow(w, pose.Position)
	if err != nil {
		c.fitFailures.Inc()
		if holding {
			c.controller.Reset()
		}
		return errors.Wrapf(err, "window %d", w.Seq)
	}

	in := control.Input{
		TargetLinear:    twist.Linear,
		TargetAngular:   twist.Angular,
		CurrentLinear:   vel,
		CrossTrackError: cte,
		Elapsed:         elapsed,
	}
	out := c.controller.Control(in)
	c.controlTicks.Inc()

	if holding {
		c.controller.Reset()
	}
	if !enabled {
		return nil
	}
	if c.actPub != nil {
		if err := c.actPub.PublishActuation(ctx, in, out); err != nil {
			c.logger.Warnw("publishing actuation", "error", err)
		}
	}
	return nil
}

func atStandstill(vel float64, twist Twist) bool {
	return math.Abs(vel) < standstill && math.Abs(twist.Linear) < standstill
}

// Start runs the planning and control ticks at their configured periods until Close.
func (c *Coordinator) Start() {
	c.workersMu.Lock()
	defer c.workersMu.Unlock()
	if c.workers != nil {
		return
	}
	c.workers = utils.NewWorkers(context.Background(), func(name string, recovered interface{}) {
		c.logger.Errorw("worker panicked", "worker", name, "panic", recovered)
	})
	c.workers.Go("planning", utils.Every(c.clk, c.opts.PlanningPeriod, func(ctx context.Context) {
		c.logTickError("planning", c.PlanningTick(ctx))
	}))
	c.workers.Go("control", utils.Every(c.clk, c.opts.ControlPeriod, func(ctx context.Context) {
		c.logTickError("control", c.ControlTick(ctx))
	}))
}

// AddWorker runs fn under name alongside the schedules and stops it on Close. It reports false
// before Start and after Close.
func (c *Coordinator) AddWorker(name string, fn func(context.Context)) bool {
	c.workersMu.Lock()
	defer c.workersMu.Unlock()
	if c.workers == nil {
		return false
	}
	return c.workers.Go(name, fn)
}

func (c *Coordinator) logTickError(tick string, err error) {
	if err == nil || errors.Is(err, ErrNotReady) {
		return
	}
	c.logger.Warnw("tick failed", "tick", tick, "error", err)
}

// Close stops the schedules and flushes the logger.
func (c *Coordinator) Close() error {
	c.workersMu.Lock()
	if c.workers != nil {
		c.logger.Debugw("stopping workers", "running", c.workers.Running())
		c.workers.Stop()
		c.workers = nil
	}
	c.workersMu.Unlock()
	return c.logger.Sync()
}

// Stats returns a snapshot of the tick counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		PlanningTicks:      c.planningTicks.Load(),
		OutOfBandTicks:     c.outOfBandTicks.Load(),
		ControlTicks:       c.controlTicks.Load(),
		SkippedTicks:       c.skippedTicks.Load(),
		ExhaustiveSearches: c.exhaustiveSearches.Load(),
		FitFailures:        c.fitFailures.Load(),
		Discontinuities:    c.discontinuities.Load(),
	}
}
