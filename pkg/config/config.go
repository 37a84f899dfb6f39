// Package config provides configuration loading and management for binmorph.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"binmorph/pkg/structuring"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// Morphology operation names accepted in the operations list.
const (
	OpDilate = "dilate"
	OpErode  = "erode"
	OpOpen   = "open"
	OpClose  = "close"
)

// AnchorConfig is the kernel origin relative to its top-left corner.
type AnchorConfig struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// KernelConfig describes a structuring element.
type KernelConfig struct {
	// Shape is one of square, rectangle, brick or cross
	Shape string `yaml:"shape"`

	// Width and Height of the kernel in pixels; a zero Height means square
	Width  int `yaml:"width"`
	Height int `yaml:"height,omitempty"`

	// Anchor overrides the centered origin of rectangle kernels
	Anchor *AnchorConfig `yaml:"anchor,omitempty"`
}

// Element builds the structuring element described by k.
func (k KernelConfig) Element() (structuring.Element, error) {
	height := k.Height
	if height == 0 {
		height = k.Width
	}
	var anchor *image.Point
	if k.Anchor != nil {
		anchor = &image.Point{X: k.Anchor.X, Y: k.Anchor.Y}
	}
	return structuring.Parse(k.Shape, k.Width, height, anchor)
}

// OperationConfig is one step of the morphology sequence.
type OperationConfig struct {
	// Op is one of dilate, erode, open or close
	Op string `yaml:"op"`

	// Kernel is the structuring element the step uses
	Kernel KernelConfig `yaml:"kernel"`

	// Iterations is how many times the step repeats; zero skips it
	Iterations int `yaml:"iterations"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input parameters
	Input struct {
		// Threshold is the luminance (0-255) below which a pixel is foreground
		Threshold int `yaml:"threshold"`

		// Invert treats light pixels as foreground
		Invert bool `yaml:"invert"`
	} `yaml:"input"`

	// Despeckle parameters
	Despeckle struct {
		// Enabled runs the speckle removal passes before any other operation
		Enabled bool `yaml:"enabled"`
	} `yaml:"despeckle"`

	// Operations is the ordered list of morphology steps
	Operations []OperationConfig `yaml:"operations"`

	// Flood fill parameters
	FloodFill struct {
		// MaskFile is the raster the processed image is grown into.
		// Empty disables the fill.
		MaskFile string `yaml:"maskFile"`
	} `yaml:"floodFill"`

	// Connected component parameters
	Components struct {
		// MinPower drops components with fewer pixels
		MinPower int `yaml:"minPower"`

		// MaxPower drops components with more pixels; zero means no limit
		MaxPower int `yaml:"maxPower"`

		// ExtractDir is where individual component crops are written
		ExtractDir string `yaml:"extractDir"`
	} `yaml:"components"`

	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many goroutines apply a kernel offset
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults determines whether to save each processing stage
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir is the directory for stage images
		IntermediaryDir string `yaml:"intermediaryDir"`

		// ReportFile is the YAML run report; empty disables it
		ReportFile string `yaml:"reportFile"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default input parameters
	cfg.Input.Threshold = 128
	cfg.Input.Invert = false

	cfg.Despeckle.Enabled = true

	// A single opening removes thin noise left after despeckling
	cfg.Operations = []OperationConfig{
		{Op: OpOpen, Kernel: KernelConfig{Shape: "square", Width: 3}, Iterations: 1},
	}

	cfg.Components.MinPower = 1
	cfg.Components.MaxPower = 0
	cfg.Components.ExtractDir = "components"

	cfg.Processing.NumWorkers = runtime.NumCPU() // Use all available cores by default

	// Set default output parameters
	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary_results"
	cfg.Output.ReportFile = "report.yaml"
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks value ranges and builds every kernel once so that a bad
// configuration fails before any image is read.
func (c *Config) Validate() error {
	if c.Input.Threshold < 0 || c.Input.Threshold > 255 {
		return fmt.Errorf("%w: threshold %d outside 0-255", ErrInvalidConfig, c.Input.Threshold)
	}
	if c.Processing.NumWorkers < 0 {
		return fmt.Errorf("%w: negative worker count %d", ErrInvalidConfig, c.Processing.NumWorkers)
	}
	if c.Components.MinPower < 0 || c.Components.MaxPower < 0 {
		return fmt.Errorf("%w: negative power limit", ErrInvalidConfig)
	}
	if c.Components.MaxPower > 0 && c.Components.MaxPower < c.Components.MinPower {
		return fmt.Errorf("%w: maxPower %d below minPower %d", ErrInvalidConfig, c.Components.MaxPower, c.Components.MinPower)
	}

	for i, op := range c.Operations {
		switch op.Op {
		case OpDilate, OpErode, OpOpen, OpClose:
		default:
			return fmt.Errorf("%w: operation %d: unknown op %q", ErrInvalidConfig, i, op.Op)
		}
		if op.Iterations < 0 {
			return fmt.Errorf("%w: operation %d: negative iterations", ErrInvalidConfig, i)
		}
		if _, err := op.Kernel.Element(); err != nil {
			return fmt.Errorf("%w: operation %d: %v", ErrInvalidConfig, i, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
