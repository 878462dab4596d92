package control

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// PIDConfig holds the gains and output limits of a PID loop.
type PIDConfig struct {
	Kp  float64 `mapstructure:"kp"`
	Ki  float64 `mapstructure:"ki"`
	Kd  float64 `mapstructure:"kd"`
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// Validate ensures the loop can produce output.
func (cfg PIDConfig) Validate(path string) error {
	if cfg.Kp == 0 && cfg.Ki == 0 && cfg.Kd == 0 {
		return errors.Errorf("%s: pid should have at least one of kp, ki or kd", path)
	}
	if cfg.Min > cfg.Max {
		return errors.Errorf("%s: min %.3f greater than max %.3f", path, cfg.Min, cfg.Max)
	}
	return nil
}

// PID is a discrete PID controller with a clamped output. While the output is saturated the
// integral is not allowed to wind further in the saturating direction.
type PID struct {
	mu        sync.Mutex
	cfg       PIDConfig
	lastError float64
	int       float64
	sat       int
	primed    bool
}

// NewPID validates cfg and returns a reset controller.
func NewPID(cfg PIDConfig) (*PID, error) {
	if err := cfg.Validate("pid"); err != nil {
		return nil, err
	}
	return &PID{cfg: cfg}, nil
}

// Next advances the loop by dt with the given error and returns the clamped output.
func (p *PID) Next(err float64, dt time.Duration) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	dtS := dt.Seconds()
	var deriv float64
	if dtS > 0 {
		if !((p.sat > 0 && err > 0) || (p.sat < 0 && err < 0)) {
			p.int += err * dtS
		}
		if p.primed {
			deriv = (err - p.lastError) / dtS
		}
	}
	p.lastError = err
	p.primed = true

	raw := p.cfg.Kp*err + p.cfg.Ki*p.int + p.cfg.Kd*deriv
	switch {
	case raw > p.cfg.Max:
		p.sat = 1
	case raw < p.cfg.Min:
		p.sat = -1
	default:
		p.sat = 0
	}
	return lo.Clamp(raw, p.cfg.Min, p.cfg.Max)
}

// Reset clears the integral and derivative history.
func (p *PID) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.int = 0
	p.lastError = 0
	p.sat = 0
	p.primed = false
}
