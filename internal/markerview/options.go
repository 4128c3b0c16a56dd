package markerview

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/markerview/internal/anim"
	"github.com/OCAP2/markerview/internal/trace"
	"github.com/OCAP2/markerview/internal/view"
)

// Config holds the coordinator tunables.
type Config struct {
	// RateLimit is the minimum time between two throttled reconciliations.
	// Zero disables throttling.
	RateLimit         time.Duration `json:"rateLimit" mapstructure:"rateLimit"`
	AnimationDuration time.Duration `json:"animationDuration" mapstructure:"animationDuration"`
	// ExitAnimation fades released views out over ExitDuration before they
	// return to the pool. A fading view cannot be handed to another marker,
	// so a pass that releases and acquires views creates new ones instead of
	// reusing the released ones until the fade ends.
	ExitAnimation          bool          `json:"exitAnimation" mapstructure:"exitAnimation"`
	ExitDuration           time.Duration `json:"exitDuration" mapstructure:"exitDuration"`
	SelectScale            float64       `json:"selectScale" mapstructure:"selectScale"`
	AllowMultipleSelection bool          `json:"allowMultipleSelection" mapstructure:"allowMultipleSelection"`
}

// DefaultConfig returns the settings used when no Config is given.
func DefaultConfig() Config {
	return Config{
		RateLimit:         250 * time.Millisecond,
		AnimationDuration: 300 * time.Millisecond,
		ExitDuration:      150 * time.Millisecond,
		SelectScale:       1.2,
	}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithConfig(cfg Config) Option {
	return func(c *Coordinator) {
		c.cfg = cfg
	}
}

func WithLogger(l Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithAnimator replaces the default frame-stepped engine. Animators that
// also implement Step() are stepped on every Tick.
func WithAnimator(a anim.Animator) Option {
	return func(c *Coordinator) {
		c.animator = a
	}
}

// WithClock sets the time source for rate limiting, animations and traces.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMeter replaces the global OTel meter.
func WithMeter(m metric.Meter) Option {
	return func(c *Coordinator) {
		c.meter = m
	}
}

func WithTrace(s trace.Sink) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithContainer sets the parent handed to adapters.
func WithContainer(parent *view.Container) Option {
	return func(c *Coordinator) {
		if parent != nil {
			c.container = parent
		}
	}
}
