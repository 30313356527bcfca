// Package config holds the optimizer's single immutable configuration. It is
// loaded once at startup, validated, and passed by value afterwards.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"brandevo/internal/model"
)

// ErrInvalidConfiguration is fatal at initialization.
var ErrInvalidConfiguration = errors.New("invalid configuration")

type Config struct {
	Evolution Evolution `yaml:"evolution"`
	Fitness   Fitness   `yaml:"fitness"`
	Trend     Trend     `yaml:"trend"`
	Store     Store     `yaml:"store"`
	HTTP      HTTP      `yaml:"http"`
	Log       Log       `yaml:"log"`
}

type Evolution struct {
	PopulationSize int `yaml:"population_size" validate:"gt=0"`
	EliteCount     int `yaml:"elite_count" validate:"gt=0,ltfield=PopulationSize"`
	// Blend is the exploration weight β of the mutated candidate.
	Blend float64 `yaml:"blend" validate:"gte=0,lte=1"`
	// MutationStrength is η, expressed as a fraction of each dimension's span.
	MutationStrength float64 `yaml:"mutation_strength" validate:"gte=0"`
	// InitialSpread is the generation-0 noise, also a fraction of span.
	InitialSpread       float64          `yaml:"initial_spread" validate:"gte=0"`
	Seed                int64            `yaml:"seed"`
	Interval            time.Duration    `yaml:"interval" validate:"gte=0"`
	MinImprovementRatio float64          `yaml:"min_improvement_ratio" validate:"gte=0"`
	Dimensions          model.Dimensions `yaml:"dimensions" validate:"required,min=1,dive"`
}

type Fitness struct {
	LikesWeight  float64 `yaml:"likes_weight" validate:"gte=0"`
	SharesWeight float64 `yaml:"shares_weight" validate:"gte=0"`
	WatchWeight  float64 `yaml:"watch_weight" validate:"gte=0"`
	CostWeight   float64 `yaml:"cost_weight" validate:"gte=0"`
	CostCeiling  float64 `yaml:"cost_ceiling" validate:"gt=0"`
}

type Trend struct {
	Enabled bool `yaml:"enabled"`
	// Endpoint serves the latest trend embedding as JSON.
	Endpoint        string        `yaml:"endpoint" validate:"required_if=Enabled true,omitempty,url"`
	Influence       float64       `yaml:"influence" validate:"gte=0,lte=1"`
	EmbeddingDim    int           `yaml:"embedding_dim" validate:"gt=0"`
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gte=0"`
}

type Store struct {
	Kind string `yaml:"kind" validate:"oneof=memory sqlite badger"`
	Path string `yaml:"path"`
}

type HTTP struct {
	Addr              string `yaml:"addr"`
	RequestsPerMinute int    `yaml:"requests_per_minute" validate:"gte=0"`
	Burst             int    `yaml:"burst" validate:"gte=0"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=auto text json"`
}

func Default() Config {
	return Config{
		Evolution: Evolution{
			PopulationSize:   10,
			EliteCount:       3,
			Blend:            0.3,
			MutationStrength: 0.1,
			InitialSpread:    0.1,
			Seed:             1,
			Interval:         time.Hour,
			Dimensions:       model.DefaultDimensions(),
		},
		Fitness: Fitness{
			LikesWeight:  0.4,
			SharesWeight: 0.3,
			WatchWeight:  0.3,
			CostWeight:   0.1,
			CostCeiling:  1.0,
		},
		Trend: Trend{
			Influence:       0.05,
			EmbeddingDim:    512,
			RefreshInterval: 15 * time.Minute,
		},
		Store: Store{
			Kind: "memory",
			Path: "brandevo.db",
		},
		HTTP: HTTP{
			Addr:              ":8080",
			RequestsPerMinute: 60,
			Burst:             10,
		},
		Log: Log{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load overlays the YAML file at path onto Default and validates the result.
// An empty path yields the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, Validate(cfg)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfiguration, path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	seen := make(map[string]struct{}, len(cfg.Evolution.Dimensions))
	for i, d := range cfg.Evolution.Dimensions {
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("%w: duplicate dimension %q", ErrInvalidConfiguration, d.Name)
		}
		seen[d.Name] = struct{}{}
		if !isFinite(d.Min) || !isFinite(d.Max) || !isFinite(d.Default) {
			return fmt.Errorf("%w: dimension %d (%s) has non-finite bounds", ErrInvalidConfiguration, i, d.Name)
		}
		if d.Min >= d.Max {
			return fmt.Errorf("%w: dimension %s requires min < max, got [%v, %v]", ErrInvalidConfiguration, d.Name, d.Min, d.Max)
		}
		if d.Default < d.Min || d.Default > d.Max {
			return fmt.Errorf("%w: dimension %s default %v outside [%v, %v]", ErrInvalidConfiguration, d.Name, d.Default, d.Min, d.Max)
		}
	}

	f := cfg.Fitness
	if f.LikesWeight+f.SharesWeight+f.WatchWeight <= 0 {
		return fmt.Errorf("%w: at least one engagement weight must be > 0", ErrInvalidConfiguration)
	}
	if cfg.Trend.Enabled && cfg.Trend.EmbeddingDim < len(cfg.Evolution.Dimensions) {
		return fmt.Errorf("%w: trend embedding dim %d smaller than parameter dims %d", ErrInvalidConfiguration, cfg.Trend.EmbeddingDim, len(cfg.Evolution.Dimensions))
	}
	if cfg.Store.Kind != "memory" && cfg.Store.Path == "" {
		return fmt.Errorf("%w: store path is required for %s backend", ErrInvalidConfiguration, cfg.Store.Kind)
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
