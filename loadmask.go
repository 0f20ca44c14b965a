package subapp

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LoadMaskConfig configures the load indicator shown while a sub-application
// loads. In config files it is either a boolean (enable or disable with the
// default options) or an object of options, which implies enabled.
type LoadMaskConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"LOAD_MASK" default:"true"`
	Text    string `yaml:"text" toml:"text" json:"text" env:"LOADING_TEXT" default:"Loading..."`
	Cls     string `yaml:"cls" toml:"cls" json:"cls,omitempty" env:"LOADING_CLS"`
	UseMsg  bool   `yaml:"useMsg" toml:"useMsg" json:"useMsg" env:"LOADING_USE_MSG" default:"true"`
}

// loadMaskFields has the same layout as LoadMaskConfig without its
// unmarshal methods.
type loadMaskFields LoadMaskConfig

// UnmarshalYAML accepts a boolean or a mapping.
func (m *LoadMaskConfig) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return fmt.Errorf("loadMask: %w", err)
		}
		m.Enabled = enabled
		return nil
	case yaml.MappingNode:
		m.Enabled = true
		return node.Decode((*loadMaskFields)(m))
	default:
		return fmt.Errorf("loadMask: expected a boolean or a mapping at line %d", node.Line)
	}
}

// UnmarshalTOML accepts a boolean or a table.
func (m *LoadMaskConfig) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case bool:
		m.Enabled = v
		return nil
	case map[string]any:
		m.Enabled = true
		for key, raw := range v {
			if err := m.setTOMLField(key, raw); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("loadMask: expected a boolean or a table, got %T", data)
	}
}

func (m *LoadMaskConfig) setTOMLField(key string, raw any) error {
	switch key {
	case "enabled", "useMsg":
		b, ok := raw.(bool)
		if !ok {
			return fmt.Errorf("loadMask.%s: expected a boolean, got %T", key, raw)
		}
		if key == "enabled" {
			m.Enabled = b
		} else {
			m.UseMsg = b
		}
	case "text", "cls":
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("loadMask.%s: expected a string, got %T", key, raw)
		}
		if key == "text" {
			m.Text = s
		} else {
			m.Cls = s
		}
	}
	return nil
}
