package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by defaults in main.
type Config struct {
	Addr       string  `json:"addr" yaml:"addr" toml:"addr"`
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate" toml:"sample_rate"`
	BlockSize  int     `json:"block_size" yaml:"block_size" toml:"block_size"`
	ModelsDir  string  `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	IRsDir     string  `json:"irs_dir" yaml:"irs_dir" toml:"irs_dir"`
	PresetsDir string  `json:"presets_dir" yaml:"presets_dir" toml:"presets_dir"`
	LogLevel   string  `json:"log_level" yaml:"log_level" toml:"log_level"`
	// Initial control values, 0..1.
	Blend float64 `json:"blend" yaml:"blend" toml:"blend"`
	Mix   float64 `json:"mix" yaml:"mix" toml:"mix"`
	// Scheduling hints passed to the convolvers. Zero means "use defaults".
	RTPriority int `json:"rt_priority" yaml:"rt_priority" toml:"rt_priority"`
	RTPolicy   int `json:"rt_policy" yaml:"rt_policy" toml:"rt_policy"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
