package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/pathtracker/config"
	"go.viam.com/pathtracker/control"
	"go.viam.com/pathtracker/coordinator"
	"go.viam.com/pathtracker/datacapture"
	"go.viam.com/pathtracker/localizer"
	"go.viam.com/pathtracker/logging"
	"go.viam.com/pathtracker/lookahead"
	"go.viam.com/pathtracker/sim"
	"go.viam.com/pathtracker/spatialmath"
	"go.viam.com/pathtracker/utils"
	"go.viam.com/pathtracker/waypoint"
)

// loadConfig reads the global --config file or returns the defaults, then applies the path
// flags of the current command.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if file := c.String(flagConfig); file != "" {
		var err error
		if cfg, err = config.Read(file); err != nil {
			return nil, err
		}
	} else {
		defaults := config.Config{}.WithDefaults()
		cfg = &defaults
	}
	if c.IsSet(flagPath) {
		cfg.PathFile = c.String(flagPath)
	}
	if c.IsSet(flagDefaultVelocity) {
		cfg.DefaultVelocity = c.Float64(flagDefaultVelocity)
	}
	if cfg.PathFile == "" {
		return nil, errors.New("no path file: pass --path or set path_file in the config")
	}
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(c *cli.Context, cfg *config.Config) logging.Logger {
	logger := logging.NewLogger("pathtracker")
	level, err := logging.LevelFromString(cfg.LogLevel)
	if err == nil {
		logger.SetLevel(level)
	}
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	}
	logging.ReplaceGlobal(logger)
	return logger
}

// WindowAction prints the window planned for a single position.
func WindowAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet(flagSize) {
		cfg.WindowSize = c.Int(flagSize)
	}
	path, err := waypoint.LoadFile(cfg.PathFile, cfg.DefaultVelocity)
	if err != nil {
		return err
	}

	pos := r3.Vector{X: c.Float64(flagX), Y: c.Float64(flagY)}
	res, err := localizer.Search(path, pos, waypoint.NoIndex, cfg.LocalSearchThreshold)
	if err != nil {
		return err
	}
	w, err := lookahead.Build(path, res.Index, cfg.WindowSize)
	if err != nil {
		return err
	}
	stop := waypoint.StopIndexFromWire(int32(c.Int(flagStop)))
	rep := cfg.Injector().Apply(w, stop, path)

	fmt.Fprintf(c.App.Writer, "nearest waypoint %d at %.3f, stop %s, upstream=%t end=%t\n",
		res.Index, res.Distance, stop, rep.UpstreamStop, rep.EndStop)
	for k, e := range w.Entries {
		fmt.Fprintf(c.App.Writer, "%3d %5d %10.3f %10.3f %7.3f %7.3f\n",
			k, e.Index, e.Position.X, e.Position.Y, e.Velocity, e.BaselineVelocity)
	}
	return nil
}

// RunAction tracks the configured path with the simulated vehicle until interrupted or until
// --duration elapses.
func RunAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c, cfg)

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if d := c.Duration(flagDuration); d > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, d)
		defer cancelTimeout()
	}
	return run(ctx, cfg, c.String(flagCapture), waypoint.StopIndexFromWire(int32(c.Int(flagStop))), logger)
}

func run(
	ctx context.Context,
	cfg *config.Config,
	capture string,
	stop waypoint.OptionalIndex,
	logger logging.Logger,
) (err error) {
	path, err := waypoint.LoadFile(cfg.PathFile, cfg.DefaultVelocity)
	if err != nil {
		return err
	}
	ctrlCfg, err := cfg.ControllerConfig()
	if err != nil {
		return err
	}
	controller, err := control.NewTwistController(ctrlCfg)
	if err != nil {
		return err
	}

	start := path.At(0)
	vehicle := sim.NewVehicle(spatialmath.Pose{Position: start.Position, Heading: start.Heading}, ctrlCfg)
	windowPubs := coordinator.WindowPublishers{}
	actPubs := coordinator.ActuationPublishers{vehicle}
	if capture != "" {
		rec, openErr := datacapture.Open(ctx, capture, cfg.PathFile, nil)
		if openErr != nil {
			return openErr
		}
		defer func() {
			err = multierr.Combine(err, rec.Close())
		}()
		logger.Infow("capturing", "file", capture, "session", rec.Session())
		windowPubs = append(windowPubs, rec)
		actPubs = append(actPubs, rec)
	}

	co, err := coordinator.New(coordinator.OptionsFromConfig(cfg), controller, windowPubs, actPubs, logger.Sublogger("coordinator"))
	if err != nil {
		return err
	}
	if err := co.SetPath(path); err != nil {
		return err
	}
	co.SetEnabled(true)
	co.Start()
	defer func() {
		err = multierr.Combine(err, co.Close())
	}()

	step := utils.PeriodFromHz(cfg.ControlRateHz)
	co.AddWorker("sim", func(ctx context.Context) {
		ticker := time.NewTicker(step)
		defer ticker.Stop()
		for goutils.SelectContextOrWaitChan(ctx, ticker.C) {
			pose, speed := vehicle.Step(step)
			co.SetPose(pose)
			co.SetVelocity(speed)
			if twist, ok := sim.TargetTwist(co.Window(), pose); ok {
				co.SetTargetTwist(twist)
			}
		}
	})
	if cfg.WatchPathFile {
		co.AddWorker("watch", func(ctx context.Context) {
			err := waypoint.Watch(ctx, cfg.PathFile, cfg.DefaultVelocity, logger.Sublogger("watch"), func(p *waypoint.Path) {
				if err := co.SetPath(p); err != nil {
					logger.Warnw("rejected reloaded path", "error", err)
				}
			})
			if err != nil {
				logger.Errorw("path watcher stopped", "error", err)
			}
		})
	}

	if stop.Valid() {
		// give the vehicle a first window before the stop line appears
		if goutils.SelectContextOrWait(ctx, utils.PeriodFromHz(cfg.PlanningRateHz)*2) {
			if err := co.SetStopRequest(ctx, stop); err != nil && !errors.Is(err, coordinator.ErrNotReady) {
				logger.Warnw("stop request", "error", err)
			}
		}
	}

	<-ctx.Done()
	pose, speed := vehicle.State()
	stats := co.Stats()
	logger.Infow("stopped",
		"pose", pose.String(),
		"speed", speed,
		"planning_ticks", stats.PlanningTicks,
		"out_of_band_ticks", stats.OutOfBandTicks,
		"control_ticks", stats.ControlTicks,
		"exhaustive_searches", stats.ExhaustiveSearches,
		"fit_failures", stats.FitFailures,
	)
	return nil
}
