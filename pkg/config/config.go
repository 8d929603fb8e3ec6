package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type MergeConfig struct {
	// LocationDistanceWarn is the metres two stop-precise locations for
	// the same stop may disagree by before a diagnostic is emitted
	LocationDistanceWarn float64 `yaml:"locationDistanceWarn" validate:"gte=0"`
}

type OutputConfig struct {
	Format   string `yaml:"format" validate:"omitempty,oneof=gtfs"`
	Timezone string `yaml:"timezone" validate:"omitempty,timezone"`
}

type Config struct {
	Merge  MergeConfig  `yaml:"merge"`
	Output OutputConfig `yaml:"output"`
}

func Default() *Config {
	return &Config{
		Merge: MergeConfig{
			LocationDistanceWarn: 1000,
		},
		Output: OutputConfig{
			Format:   "gtfs",
			Timezone: "Europe/Prague",
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	loaded := Default()

	if path != "" {
		contents, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(contents, loaded); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := validator.New().Struct(loaded); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return loaded, nil
}
