// Package config loads process configuration by layering defaults, an
// optional YAML file, and environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"emcal/domain/core"
	"emcal/domain/run"
	"emcal/domain/series"
	"emcal/domain/validation"
	apperrors "emcal/internal/errors"
)

// Config contains process configuration: where to listen, where to
// persist, and the per-run validation defaults.
type Config struct {
	// LogLevel controls verbosity: DEBUG, INFO, WARN, ERROR.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL is the optional Postgres DSN for persisting results.
	DatabaseURL string `koanf:"database_url"`

	// Influx settings for loading measured series from InfluxDB.
	Influx InfluxConfig `koanf:"influx"`

	// Run holds the validation run defaults.
	Run RunSettings `koanf:"run"`
}

// InfluxConfig holds the measured-data InfluxDB connection settings.
type InfluxConfig struct {
	URL    string `koanf:"url"`
	Token  string `koanf:"token"`
	Org    string `koanf:"org"`
	Bucket string `koanf:"bucket"`
}

// RunSettings is the file/env representation of a run configuration,
// kept to flat scalar types so it unmarshals cleanly.
type RunSettings struct {
	TargetFrequency     string             `koanf:"target_frequency"`
	YearAgnosticMatch   bool               `koanf:"year_agnostic_matching"`
	YearTieBreak        string             `koanf:"year_tie_break"`
	LeapDayPolicy       string             `koanf:"leap_day_policy"`
	VariablesToValidate []string           `koanf:"variables_to_validate"`
	Thresholds          map[string]float64 `koanf:"thresholds"`
	MinAlignedPoints    int                `koanf:"min_aligned_points"`
	ConfidenceThreshold float64            `koanf:"confidence_threshold"`
	Workers             int                `koanf:"workers"`
	PairTimeoutSeconds  int                `koanf:"pair_timeout_seconds"`
}

// Load builds a Config by layering defaults, an optional YAML file named
// by EMCAL_CONFIG, and EMCAL_-prefixed environment variables. A local
// .env file is read first if present.
func Load() (*Config, error) {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := defaults()
	k := koanf.New(".")

	if path := os.Getenv("EMCAL_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, apperrors.WithCode(apperrors.CodeConfig, err)
		}
	}

	// EMCAL_DATABASE_URL -> database_url, EMCAL_RUN_WORKERS -> run.workers
	envProvider := env.Provider("EMCAL_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "EMCAL_"))
		if rest, ok := strings.CutPrefix(s, "run_"); ok {
			return "run." + rest
		}
		if rest, ok := strings.CutPrefix(s, "influx_"); ok {
			return "influx." + rest
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, apperrors.WithCode(apperrors.CodeConfig, err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, apperrors.WithCode(apperrors.CodeConfig, err)
	}
	return &cfg, nil
}

func defaults() Config {
	rc := run.DefaultConfig()
	thresholds := make(map[string]float64, len(rc.Thresholds))
	for kind, v := range rc.Thresholds {
		thresholds[string(kind)] = v
	}
	return Config{
		LogLevel: "INFO",
		Addr:     ":8080",
		Run: RunSettings{
			TargetFrequency:     string(rc.TargetFrequency),
			YearTieBreak:        string(rc.YearTieBreak),
			LeapDayPolicy:       string(rc.LeapDay),
			Thresholds:          thresholds,
			MinAlignedPoints:    rc.MinAlignedPoints,
			ConfidenceThreshold: rc.ConfidenceThreshold,
			Workers:             rc.Workers,
			PairTimeoutSeconds:  int(rc.PairTimeout / time.Second),
		},
	}
}

// ToRunConfig converts the flat settings into the immutable run
// configuration. Validation happens in run.Config.Validate, once, at
// run start.
func (s RunSettings) ToRunConfig() run.Config {
	cfg := run.DefaultConfig()
	if s.TargetFrequency != "" {
		cfg.TargetFrequency = series.Frequency(s.TargetFrequency)
	}
	cfg.YearAgnosticMatch = s.YearAgnosticMatch
	if s.YearTieBreak != "" {
		cfg.YearTieBreak = run.YearTieBreak(s.YearTieBreak)
	}
	if s.LeapDayPolicy != "" {
		cfg.LeapDay = run.LeapDayPolicy(s.LeapDayPolicy)
	}
	if len(s.VariablesToValidate) > 0 {
		ids := make([]core.VariableID, 0, len(s.VariablesToValidate))
		for _, v := range s.VariablesToValidate {
			ids = append(ids, core.VariableID(v))
		}
		cfg.VariablesToValidate = ids
	}
	if len(s.Thresholds) > 0 {
		thresholds := make(map[validation.MetricKind]float64, len(s.Thresholds))
		for kind, v := range s.Thresholds {
			thresholds[validation.MetricKind(kind)] = v
		}
		cfg.Thresholds = thresholds
	}
	if s.MinAlignedPoints > 0 {
		cfg.MinAlignedPoints = s.MinAlignedPoints
	}
	if s.ConfidenceThreshold > 0 {
		cfg.ConfidenceThreshold = s.ConfidenceThreshold
	}
	if s.Workers > 0 {
		cfg.Workers = s.Workers
	}
	if s.PairTimeoutSeconds > 0 {
		cfg.PairTimeout = time.Duration(s.PairTimeoutSeconds) * time.Second
	}
	return cfg
}
