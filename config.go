package subapp

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mitchellsimoens/SubAppDemo/feeders"
)

// Feeder populates a configuration structure from one source.
type Feeder interface {
	Feed(structure any) error
}

// Dependencies is the dependency manifest of a sub-application: the style
// and executable resources it needs, in injection order.
type Dependencies struct {
	Style      []string `yaml:"css" toml:"css" json:"css"`
	Executable []string `yaml:"js" toml:"js" json:"js"`
}

// Resources lists the manifest as resources, styles first.
func (d Dependencies) Resources() []Resource {
	out := make([]Resource, 0, len(d.Style)+len(d.Executable))
	for _, src := range d.Style {
		out = append(out, Resource{Kind: ResourceStyle, Source: src})
	}
	for _, src := range d.Executable {
		out = append(out, Resource{Kind: ResourceExecutable, Source: src})
	}
	return out
}

func (d Dependencies) clone() Dependencies {
	return Dependencies{
		Style:      slices.Clone(d.Style),
		Executable: slices.Clone(d.Executable),
	}
}

// Config describes one sub-application.
type Config struct {
	// ID identifies the sub-application. A UUID is generated when empty.
	ID string `yaml:"id" toml:"id" json:"id" env:"ID"`

	// Controllers are the controller type names instantiated once every
	// executable has loaded, in order.
	Controllers []string `yaml:"controllers" toml:"controllers" json:"controllers" env:"CONTROLLERS"`

	// Dependencies is the resource manifest.
	Dependencies Dependencies `yaml:"dependencies" toml:"dependencies" json:"dependencies"`

	// LoadMask controls the load indicator. In files it may be a plain
	// boolean or an object.
	LoadMask LoadMaskConfig `yaml:"loadMask" toml:"loadMask" json:"loadMask"`

	// Flat aliases for the load mask options.
	LoadingText   *string `yaml:"loadingText,omitempty" toml:"loadingText,omitempty" json:"loadingText,omitempty"`
	LoadingCls    *string `yaml:"loadingCls,omitempty" toml:"loadingCls,omitempty" json:"loadingCls,omitempty"`
	LoadingUseMsg *bool   `yaml:"loadingUseMsg,omitempty" toml:"loadingUseMsg,omitempty" json:"loadingUseMsg,omitempty"`

	// RemoveScriptDelay is the minimum time between the last executable
	// finishing its load and the executables being removed from the host.
	RemoveScriptDelay time.Duration `yaml:"removeJSFileDelay" toml:"removeJSFileDelay" json:"removeJSFileDelay" env:"REMOVE_JS_FILE_DELAY" default:"100ms"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	// The defaults on Config are all well-formed.
	_ = ProcessConfigDefaults(&cfg)
	return cfg
}

// LoadConfig reads a sub-application config file, choosing the feeder by
// extension (.yaml, .yml, .toml), then applies extra feeders in order on
// top of it, for example a feeders.EnvFeeder.
func LoadConfig(path string, extra ...Feeder) (Config, error) {
	cfg := DefaultConfig()

	var file Feeder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		file = feeders.NewYamlFeeder(path)
	case ".toml":
		file = feeders.NewTomlFeeder(path)
	default:
		return cfg, fmt.Errorf("%w: %s", ErrUnsupportedConfigFormat, path)
	}

	for _, f := range append([]Feeder{file}, extra...) {
		if err := f.Feed(&cfg); err != nil {
			return cfg, fmt.Errorf("%w: %w", ErrConfigFeederError, err)
		}
	}

	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolve folds the flat load mask aliases into LoadMask.
func (c *Config) resolve() {
	if c.LoadingText != nil {
		c.LoadMask.Text = *c.LoadingText
	}
	if c.LoadingCls != nil {
		c.LoadMask.Cls = *c.LoadingCls
	}
	if c.LoadingUseMsg != nil {
		c.LoadMask.UseMsg = *c.LoadingUseMsg
	}
	c.LoadingText, c.LoadingCls, c.LoadingUseMsg = nil, nil, nil
}

// Validate checks the config for entries that can never work.
func (c *Config) Validate() error {
	for i, name := range c.Controllers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: controllers[%d]", ErrControllerIDEmpty, i)
		}
	}
	for i, src := range c.Dependencies.Style {
		if src == "" {
			return fmt.Errorf("%w: dependencies.css[%d]", ErrResourceSourceEmpty, i)
		}
	}
	for i, src := range c.Dependencies.Executable {
		if src == "" {
			return fmt.Errorf("%w: dependencies.js[%d]", ErrResourceSourceEmpty, i)
		}
	}
	if c.RemoveScriptDelay < 0 {
		c.RemoveScriptDelay = 0
	}
	return nil
}
