// Package config loads forcegraph settings from defaults, an optional TOML
// file, FORCEGRAPH_ environment variables and command-line flags.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/metrics"
	"github.com/TFMV/forcegraph/physics"
	"github.com/TFMV/forcegraph/render"
	"github.com/TFMV/forcegraph/view"
)

// DefaultFile is read from the working directory when present.
const DefaultFile = "forcegraph.toml"

// EnvPrefix prefixes environment overrides. A double underscore separates
// sections: FORCEGRAPH_PHYSICS__LINK_DISTANCE sets physics.link_distance.
const EnvPrefix = "FORCEGRAPH_"

// Config holds all configuration for the application
type Config struct {
	Log     LogConfig     `koanf:"log"`
	Server  ServerConfig  `koanf:"server"`
	Render  RenderConfig  `koanf:"render"`
	Physics PhysicsConfig `koanf:"physics"`
	Layout  LayoutConfig  `koanf:"layout"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

type RenderConfig struct {
	Backend    string  `koanf:"backend"`
	Width      float64 `koanf:"width"`
	Height     float64 `koanf:"height"`
	PixelRatio float64 `koanf:"pixel_ratio"`
	FontSize   float64 `koanf:"font_size"`
	Padding    float64 `koanf:"padding"`
	Curvature  float64 `koanf:"curvature"`
	NodeShape  string  `koanf:"node_shape"`
	NodeRadius float64 `koanf:"node_radius"`
	EdgeLabels bool    `koanf:"edge_labels"`
	Background string  `koanf:"background"`
}

type PhysicsConfig struct {
	LinkDistance     float64       `koanf:"link_distance"`
	Charge           float64       `koanf:"charge"`
	Theta            float64       `koanf:"theta"`
	ApproximateAbove int           `koanf:"approximate_above"`
	CenterStrength   float64       `koanf:"center_strength"`
	VelocityDecay    float64       `koanf:"velocity_decay"`
	AlphaMin         float64       `koanf:"alpha_min"`
	TickInterval     time.Duration `koanf:"tick_interval"`
	Seed             int64         `koanf:"seed"`
	MaxTicks         int           `koanf:"max_ticks"`
}

type LayoutConfig struct {
	Directed        bool          `koanf:"directed"`
	LabelAwareLinks bool          `koanf:"label_aware_links"`
	ResizeDelay     time.Duration `koanf:"resize_delay"`
}

// flagKeys maps command-line flag names to configuration keys. Flags not
// listed here are not configuration.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"addr":          "server.addr",
	"backend":       "render.backend",
	"width":         "render.width",
	"height":        "render.height",
	"dpr":           "render.pixel_ratio",
	"font-size":     "render.font_size",
	"node-shape":    "render.node_shape",
	"edge-labels":   "render.edge_labels",
	"link-distance": "physics.link_distance",
	"charge":        "physics.charge",
	"seed":          "physics.seed",
	"max-ticks":     "physics.max_ticks",
	"directed":      "layout.directed",
}

func defaults() map[string]interface{} {
	p := physics.DefaultConfig()
	r := render.NewDefaultOptions()
	return map[string]interface{}{
		"log": map[string]interface{}{
			"level": "info",
		},
		"server": map[string]interface{}{
			"addr":             ":8080",
			"read_timeout":     "15s",
			"write_timeout":    "30s",
			"shutdown_timeout": "10s",
			"max_body_bytes":   int64(10 << 20),
		},
		"render": map[string]interface{}{
			"backend":     string(render.KindRetained),
			"width":       960.0,
			"height":      600.0,
			"pixel_ratio": 1.0,
			"font_size":   r.FontSize,
			"padding":     r.Padding,
			"curvature":   r.Curvature,
			"node_shape":  string(r.NodeShape),
			"node_radius": r.NodeRadius,
			"edge_labels": r.EdgeLabels,
			"background":  r.Palette.Background,
		},
		"physics": map[string]interface{}{
			"link_distance":     p.LinkDistance,
			"charge":            p.Charge,
			"theta":             p.Theta,
			"approximate_above": p.ApproximateAbove,
			"center_strength":   p.CenterStrength,
			"velocity_decay":    p.VelocityDecay,
			"alpha_min":         p.AlphaMin,
			"tick_interval":     p.TickInterval.String(),
			"seed":              p.Seed,
			"max_ticks":         view.DefaultOptions().MaxTicks,
		},
		"layout": map[string]interface{}{
			"directed":          true,
			"label_aware_links": false,
			"resize_delay":      view.DefaultOptions().ResizeDelay.String(),
		},
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
//
// An empty path reads DefaultFile if it exists; an explicit path must exist.
func Load(f *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to load defaults")
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "failed to read config file %s", path)
		}
	} else if explicit {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "config file %s", path)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to load env vars")
	}

	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, flagKey(f)), nil); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func flagKey(fs *pflag.FlagSet) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	if _, err := render.ParseKind(c.Render.Backend); err != nil {
		return err
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "render size must be positive, got %gx%g", c.Render.Width, c.Render.Height)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid log level %q", c.Log.Level)
	}
	switch render.Shape(c.Render.NodeShape) {
	case render.ShapeRect, render.ShapeCircle:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown node shape %q", c.Render.NodeShape)
	}
	if c.Physics.AlphaMin <= 0 || c.Physics.AlphaMin >= 1 {
		return errors.New(errors.ErrCodeInvalidInput, "alpha_min must be in (0, 1), got %g", c.Physics.AlphaMin)
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// BackendKind returns the configured render backend.
func (c *Config) BackendKind() render.Kind {
	kind, _ := render.ParseKind(c.Render.Backend)
	return kind
}

// Viewport returns the configured output size.
func (c *Config) Viewport() render.Viewport {
	return render.Viewport{
		Width:      c.Render.Width,
		Height:     c.Render.Height,
		PixelRatio: c.Render.PixelRatio,
	}
}

// RenderOptions returns backend options with the configured overrides.
func (c *Config) RenderOptions(logger *log.Logger) render.Options {
	opts := render.NewDefaultOptions()
	opts.FontSize = c.Render.FontSize
	opts.Padding = c.Render.Padding
	opts.Curvature = c.Render.Curvature
	opts.NodeShape = render.Shape(c.Render.NodeShape)
	opts.NodeRadius = c.Render.NodeRadius
	opts.EdgeLabels = c.Render.EdgeLabels
	opts.Palette.Background = c.Render.Background
	opts.Logger = logger
	return opts
}

// PhysicsConfig returns the simulation constants.
func (c *Config) PhysicsConfig() physics.Config {
	p := physics.DefaultConfig()
	p.LinkDistance = c.Physics.LinkDistance
	p.Charge = c.Physics.Charge
	p.Theta = c.Physics.Theta
	p.ApproximateAbove = c.Physics.ApproximateAbove
	p.CenterStrength = c.Physics.CenterStrength
	p.VelocityDecay = c.Physics.VelocityDecay
	p.AlphaMin = c.Physics.AlphaMin
	p.AlphaDecay = physics.AlphaDecayFor(c.Physics.AlphaMin)
	p.TickInterval = c.Physics.TickInterval
	p.Seed = c.Physics.Seed
	return p
}

// ViewOptions returns the options for a view.
func (c *Config) ViewOptions(logger *log.Logger, reg *metrics.Registry) view.Options {
	return view.Options{
		Physics:         c.PhysicsConfig(),
		Directed:        c.Layout.Directed,
		LabelAwareLinks: c.Layout.LabelAwareLinks,
		ResizeDelay:     c.Layout.ResizeDelay,
		MaxTicks:        c.Physics.MaxTicks,
		Logger:          logger,
		Metrics:         reg,
	}
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New(errors.ErrCodeUnsupported, "not implemented")
}
