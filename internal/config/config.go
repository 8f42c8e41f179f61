// Package config holds the tunable constants of the measurement pipeline.
//
// Every physical or geometric constant the algorithms need (colour bounds,
// structuring-element sizes, the reference object's real height, the column band
// used during reference detection, the hull simplification tolerance) lives here
// and reaches the algorithms as explicit parameters.
//
// Values are resolved in three layers:
//
//  1. Default() returns the constants of the deployed camera setup.
//  2. Load() overlays a YAML file on top of the defaults.
//  3. Environment variables override individual fields (see applyEnv).
//
// The result is checked with Validate before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stemhealth/stem-measure/internal/detection"
	"github.com/stemhealth/stem-measure/internal/imaging"
)

// Environment variables recognised by Load.
const (
	EnvConfigPath        = "STEM_MEASURE_CONFIG"
	EnvLogLevel          = "STEM_MEASURE_LOG_LEVEL"
	EnvWorkers           = "STEM_MEASURE_WORKERS"
	EnvReferenceHeightCM = "STEM_MEASURE_REFERENCE_HEIGHT_CM"
)

// Morphology operation names accepted in ObjectConfig.Morphology.
const (
	MorphOpen  = "open"
	MorphClose = "close"
)

// Quadrilateral policies accepted in SimplifyConfig.Policy.
const (
	PolicyTruncate = "truncate"
	PolicyWiden    = "widen"
)

// HSV is a colour bound in the 8-bit HSV convention:
// H in 0-180, S and V in 0-255.
type HSV struct {
	H int `yaml:"h" json:"h"`
	S int `yaml:"s" json:"s"`
	V int `yaml:"v" json:"v"`
}

// ColorRange is an inclusive HSV box.
type ColorRange struct {
	Lower HSV `yaml:"lower" json:"lower"`
	Upper HSV `yaml:"upper" json:"upper"`
}

// ColumnRange keeps columns in [Min, Max) and discards the rest of the frame.
type ColumnRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// ObjectConfig describes how one physical object is segmented.
type ObjectConfig struct {
	Color      ColorRange   `yaml:"color"`
	Morphology string       `yaml:"morphology"`
	KernelSize int          `yaml:"kernel_size"`
	Columns    *ColumnRange `yaml:"columns,omitempty"`
}

// SimplifyConfig controls hull-to-quadrilateral approximation.
type SimplifyConfig struct {
	// Tolerance is the Douglas-Peucker epsilon as a fraction of hull perimeter.
	Tolerance float64 `yaml:"tolerance"`
	// Policy decides what happens when simplification leaves more than 4 points.
	Policy string `yaml:"policy"`
	// MaxWidenSteps bounds the epsilon doublings of the "widen" policy.
	MaxWidenSteps int `yaml:"max_widen_steps"`
}

// HeightConfig holds the calibration constants.
type HeightConfig struct {
	ReferenceCM   float64 `yaml:"reference_cm"`
	MinSpanPixels int     `yaml:"min_span_pixels"`
	// TargetCM is the transplanting height used to pick a batch's optimum entry.
	TargetCM float64 `yaml:"target_cm"`
}

// PreprocessConfig enables the unsharp-mask step applied to batch images.
type PreprocessConfig struct {
	Sharpen bool    `yaml:"sharpen"`
	Radius  float64 `yaml:"radius"`
	Amount  float64 `yaml:"amount"`
}

// AnnotateConfig controls the optional annotated copy of each measured image.
type AnnotateConfig struct {
	BoxColor   string `yaml:"box_color"`
	ShowLabels bool   `yaml:"show_labels"`
}

// Config is the full configuration of the binary.
type Config struct {
	LogLevel     string           `yaml:"log_level"`
	Workers      int              `yaml:"workers"`
	EntryTimeout time.Duration    `yaml:"entry_timeout"`
	Reference    ObjectConfig     `yaml:"reference"`
	Medium       ObjectConfig     `yaml:"medium"`
	Simplify     SimplifyConfig   `yaml:"simplify"`
	Height       HeightConfig     `yaml:"height"`
	Preprocess   PreprocessConfig `yaml:"preprocess"`
	Annotate     AnnotateConfig   `yaml:"annotate"`
}

// Default returns the constants of the deployed setup: a red reference block
// 5 cm tall standing in columns 420-564 and a green sponge medium.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		Workers:      runtime.NumCPU(),
		EntryTimeout: 30 * time.Second,
		Reference: ObjectConfig{
			Color: ColorRange{
				Lower: HSV{H: 0, S: 100, V: 100},
				Upper: HSV{H: 10, S: 255, V: 255},
			},
			Morphology: MorphClose,
			KernelSize: 3,
			Columns:    &ColumnRange{Min: 420, Max: 565},
		},
		Medium: ObjectConfig{
			Color: ColorRange{
				Lower: HSV{H: 35, S: 40, V: 40},
				Upper: HSV{H: 85, S: 255, V: 255},
			},
			Morphology: MorphOpen,
			KernelSize: 2,
		},
		Simplify: SimplifyConfig{
			Tolerance:     0.01,
			Policy:        PolicyTruncate,
			MaxWidenSteps: 8,
		},
		Height: HeightConfig{
			ReferenceCM:   5,
			MinSpanPixels: 1,
			TargetCM:      2,
		},
		Preprocess: PreprocessConfig{
			Sharpen: false,
			Radius:  1.0,
			Amount:  2.5,
		},
		Annotate: AnnotateConfig{
			BoxColor:   "#0804F8",
			ShowLabels: true,
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWorkers, v, err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv(EnvReferenceHeightCM); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvReferenceHeightCM, v, err)
		}
		cfg.Height.ReferenceCM = f
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q: want debug, info, warn or error", c.LogLevel))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	if c.EntryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("entry_timeout must be positive, got %s", c.EntryTimeout))
	}

	errs = append(errs, c.Reference.validate("reference")...)
	errs = append(errs, c.Medium.validate("medium")...)

	if c.Simplify.Tolerance <= 0 || c.Simplify.Tolerance >= 1 {
		errs = append(errs, fmt.Errorf("simplify.tolerance must be in (0,1), got %g", c.Simplify.Tolerance))
	}
	switch c.Simplify.Policy {
	case PolicyTruncate, PolicyWiden:
	default:
		errs = append(errs, fmt.Errorf("simplify.policy %q: want %s or %s", c.Simplify.Policy, PolicyTruncate, PolicyWiden))
	}
	if c.Simplify.MaxWidenSteps < 0 {
		errs = append(errs, fmt.Errorf("simplify.max_widen_steps must be >= 0, got %d", c.Simplify.MaxWidenSteps))
	}

	if c.Height.ReferenceCM <= 0 {
		errs = append(errs, fmt.Errorf("height.reference_cm must be positive, got %g", c.Height.ReferenceCM))
	}
	if c.Height.TargetCM <= 0 {
		errs = append(errs, fmt.Errorf("height.target_cm must be positive, got %g", c.Height.TargetCM))
	}
	if c.Height.MinSpanPixels < 1 {
		errs = append(errs, fmt.Errorf("height.min_span_pixels must be >= 1, got %d", c.Height.MinSpanPixels))
	}

	if c.Preprocess.Sharpen && (c.Preprocess.Radius <= 0 || c.Preprocess.Amount <= 0) {
		errs = append(errs, fmt.Errorf("preprocess radius and amount must be positive when sharpen is enabled"))
	}

	return errors.Join(errs...)
}

// Bounds converts the range to the thresholder's form.
func (r ColorRange) Bounds() detection.HSVBounds {
	return detection.HSVBounds{
		Lower: imaging.HSVColor{H: r.Lower.H, S: r.Lower.S, V: r.Lower.V},
		Upper: imaging.HSVColor{H: r.Upper.H, S: r.Upper.S, V: r.Upper.V},
	}
}

func (o ObjectConfig) validate(name string) []error {
	var errs []error

	check := func(field string, v, max int) {
		if v < 0 || v > max {
			errs = append(errs, fmt.Errorf("%s.color.%s = %d outside 0-%d", name, field, v, max))
		}
	}
	check("lower.h", o.Color.Lower.H, 180)
	check("upper.h", o.Color.Upper.H, 180)
	check("lower.s", o.Color.Lower.S, 255)
	check("upper.s", o.Color.Upper.S, 255)
	check("lower.v", o.Color.Lower.V, 255)
	check("upper.v", o.Color.Upper.V, 255)
	if len(errs) == 0 {
		if err := o.Color.Bounds().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s.color: %w", name, err))
		}
	}

	switch o.Morphology {
	case MorphOpen, MorphClose:
	default:
		errs = append(errs, fmt.Errorf("%s.morphology %q: want %s or %s", name, o.Morphology, MorphOpen, MorphClose))
	}
	if o.KernelSize < 1 {
		errs = append(errs, fmt.Errorf("%s.kernel_size must be >= 1, got %d", name, o.KernelSize))
	}
	if o.Columns != nil && (o.Columns.Min < 0 || o.Columns.Max <= o.Columns.Min) {
		errs = append(errs, fmt.Errorf("%s.columns [%d,%d) is empty or negative", name, o.Columns.Min, o.Columns.Max))
	}
	return errs
}
