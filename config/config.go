// Package config defines the tracker configuration file.
package config

import (
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/pathtracker/control"
	"go.viam.com/pathtracker/localizer"
	"go.viam.com/pathtracker/logging"
	"go.viam.com/pathtracker/lookahead"
	"go.viam.com/pathtracker/speedprofile"
)

// Defaults for options left out of a config file.
const (
	DefaultPlanningRateHz      = 20.0
	DefaultControlRateHz       = 50.0
	DefaultTargetBrakeAccel    = -1.0
	DefaultPathChangeThreshold = 0.5
	DefaultLogLevel            = "info"
)

// AttributeMap is a free-form set of attributes decoded later into a typed config.
type AttributeMap map[string]interface{}

// Config is the tracker configuration.
type Config struct {
	ConfigFilePath string `json:"-"`

	WindowSize           int      `json:"window_size,omitempty"`
	PlanningRateHz       float64  `json:"planning_rate_hz,omitempty"`
	ControlRateHz        float64  `json:"control_rate_hz,omitempty"`
	LocalSearchThreshold float64  `json:"local_search_threshold,omitempty"`
	ForceStopAtPathEnd   *bool    `json:"force_stop_at_path_end,omitempty"`
	StopDistance         *float64 `json:"stop_distance,omitempty"`
	TargetBrakeAccel     *float64 `json:"target_brake_accel,omitempty"`
	StopOnRed            *bool    `json:"stop_on_red,omitempty"`
	PathChangeThreshold  *float64 `json:"path_change_threshold,omitempty"`
	LogLevel             string   `json:"log_level,omitempty"`

	PathFile        string  `json:"path_file,omitempty"`
	DefaultVelocity float64 `json:"default_velocity,omitempty"`
	WatchPathFile   bool    `json:"watch_path_file,omitempty"`

	// Controller overrides the vehicle parameters and gains of the reference control law.
	Controller AttributeMap `json:"controller,omitempty"`
}

// WithDefaults returns a copy of cfg with every unset option filled in.
func (cfg Config) WithDefaults() Config {
	if cfg.WindowSize == 0 {
		cfg.WindowSize = lookahead.DefaultSize
	}
	if cfg.PlanningRateHz == 0 {
		cfg.PlanningRateHz = DefaultPlanningRateHz
	}
	if cfg.ControlRateHz == 0 {
		cfg.ControlRateHz = DefaultControlRateHz
	}
	if cfg.LocalSearchThreshold == 0 {
		cfg.LocalSearchThreshold = localizer.DefaultSearchThreshold
	}
	if cfg.ForceStopAtPathEnd == nil {
		cfg.ForceStopAtPathEnd = boolPtr(true)
	}
	if cfg.StopDistance == nil {
		cfg.StopDistance = floatPtr(speedprofile.DefaultStandoff)
	}
	if cfg.TargetBrakeAccel == nil {
		cfg.TargetBrakeAccel = floatPtr(DefaultTargetBrakeAccel)
	}
	if cfg.StopOnRed == nil {
		cfg.StopOnRed = boolPtr(true)
	}
	if cfg.PathChangeThreshold == nil {
		cfg.PathChangeThreshold = floatPtr(DefaultPathChangeThreshold)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	return cfg
}

// Validate returns an error naming the first invalid field under path.
func (cfg *Config) Validate(path string) error {
	if cfg.WindowSize <= 0 {
		return newFieldError(path, "window_size", "must be positive")
	}
	if cfg.PlanningRateHz <= 0 {
		return newFieldError(path, "planning_rate_hz", "must be positive")
	}
	if cfg.ControlRateHz <= 0 {
		return newFieldError(path, "control_rate_hz", "must be positive")
	}
	if cfg.LocalSearchThreshold <= 0 {
		return newFieldError(path, "local_search_threshold", "must be positive")
	}
	if cfg.Standoff() < 0 {
		return newFieldError(path, "stop_distance", "must not be negative")
	}
	if cfg.ContinuityThreshold() < 0 {
		return newFieldError(path, "path_change_threshold", "must not be negative")
	}
	if cfg.DefaultVelocity < 0 {
		return newFieldError(path, "default_velocity", "must not be negative")
	}
	if cfg.WatchPathFile && cfg.PathFile == "" {
		return newFieldError(path, "path_file", "is required when watch_path_file is set")
	}
	if _, err := logging.LevelFromString(cfg.LogLevel); err != nil {
		return errors.Wrapf(err, "%s.log_level", path)
	}
	ctrl, err := cfg.ControllerConfig()
	if err != nil {
		return errors.Wrapf(err, "%s.controller", path)
	}
	return ctrl.Validate(path + ".controller")
}

// ControllerConfig decodes the controller attributes over the reference vehicle defaults.
func (cfg *Config) ControllerConfig() (control.TwistControllerConfig, error) {
	out := control.DefaultTwistControllerConfig()
	if len(cfg.Controller) == 0 {
		return out, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]interface{}(cfg.Controller)); err != nil {
		return out, err
	}
	return out, nil
}

// BrakeDecel is the deceleration magnitude used to profile stops. It is the gentler of the
// configured target and half the vehicle's decel limit.
func (cfg *Config) BrakeDecel() float64 {
	target := valueOr(cfg.TargetBrakeAccel, DefaultTargetBrakeAccel)
	ctrl, err := cfg.ControllerConfig()
	if err != nil || ctrl.DecelLimit == 0 {
		return math.Abs(target)
	}
	return math.Abs(math.Max(ctrl.DecelLimit/2, target))
}

// Standoff is how far short of a stop line the vehicle comes to rest.
func (cfg *Config) Standoff() float64 {
	return valueOr(cfg.StopDistance, speedprofile.DefaultStandoff)
}

// ContinuityThreshold is how far the tracked waypoint may move in a path update before the
// update counts as a discontinuity.
func (cfg *Config) ContinuityThreshold() float64 {
	return valueOr(cfg.PathChangeThreshold, DefaultPathChangeThreshold)
}

// Injector builds the speed profile settings described by cfg.
func (cfg *Config) Injector() speedprofile.Injector {
	return speedprofile.Injector{
		Decel:              cfg.BrakeDecel(),
		Standoff:           cfg.Standoff(),
		StopOnRed:          cfg.StopOnRed == nil || *cfg.StopOnRed,
		ForceStopAtPathEnd: cfg.ForceStopAtPathEnd == nil || *cfg.ForceStopAtPathEnd,
	}
}

func newFieldError(path, field, msg string) error {
	return errors.Errorf("%s.%s %s", path, field, msg)
}

func boolPtr(b bool) *bool {
	return &b
}

func floatPtr(f float64) *float64 {
	return &f
}

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
