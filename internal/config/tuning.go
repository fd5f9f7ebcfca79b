package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for filter tuning.
// Every field is optional; the Get* methods supply defaults for fields
// omitted from the JSON.
type TuningConfig struct {
	// Low-pass stage
	MinCutoff *float64 `json:"min_cutoff,omitempty"`
	Beta      *float64 `json:"beta,omitempty"`

	// Dead-zone stage
	DeadZoneThreshold *float64 `json:"dead_zone_threshold,omitempty"`

	// Visibility gate and calibration threshold
	VisibilityThreshold *float64 `json:"visibility_threshold,omitempty"`

	// Time advance policy: "tick" or "elapsed"
	TimeMode *string `json:"time_mode,omitempty"`

	// Pose list feeding the body set: "image" or "world"
	PoseSource *string `json:"pose_source,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// with its built-in default.
func DefaultTuningConfig() *TuningConfig {
	c := EmptyTuningConfig()
	return &TuningConfig{
		MinCutoff:           ptrFloat64(c.GetMinCutoff()),
		Beta:                ptrFloat64(c.GetBeta()),
		DeadZoneThreshold:   ptrFloat64(c.GetDeadZoneThreshold()),
		VisibilityThreshold: ptrFloat64(c.GetVisibilityThreshold()),
		TimeMode:            ptrString(c.GetTimeMode()),
		PoseSource:          ptrString(c.GetPoseSource()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MinCutoff != nil {
		if v := *c.MinCutoff; !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("min_cutoff must be finite and > 0, got %v", v)
		}
	}

	if c.Beta != nil {
		if v := *c.Beta; !(v >= 0) || math.IsInf(v, 0) {
			return fmt.Errorf("beta must be finite and >= 0, got %v", v)
		}
	}

	if c.DeadZoneThreshold != nil {
		if v := *c.DeadZoneThreshold; !(v >= 0) || math.IsInf(v, 0) {
			return fmt.Errorf("dead_zone_threshold must be finite and >= 0, got %v", v)
		}
	}

	if c.VisibilityThreshold != nil {
		if v := *c.VisibilityThreshold; !(v >= 0 && v <= 1) {
			return fmt.Errorf("visibility_threshold must be between 0 and 1, got %v", v)
		}
	}

	if c.TimeMode != nil {
		switch *c.TimeMode {
		case "", "tick", "elapsed":
		default:
			return fmt.Errorf("time_mode must be \"tick\" or \"elapsed\", got %q", *c.TimeMode)
		}
	}

	if c.PoseSource != nil {
		switch *c.PoseSource {
		case "", "image", "world":
		default:
			return fmt.Errorf("pose_source must be \"image\" or \"world\", got %q", *c.PoseSource)
		}
	}

	return nil
}

// GetMinCutoff returns the min_cutoff value or the default.
func (c *TuningConfig) GetMinCutoff() float64 {
	if c.MinCutoff == nil {
		return 0.05
	}
	return *c.MinCutoff
}

// GetBeta returns the beta value or the default.
func (c *TuningConfig) GetBeta() float64 {
	if c.Beta == nil {
		return 10
	}
	return *c.Beta
}

// GetDeadZoneThreshold returns the dead_zone_threshold value or the default.
func (c *TuningConfig) GetDeadZoneThreshold() float64 {
	if c.DeadZoneThreshold == nil {
		return 0.003
	}
	return *c.DeadZoneThreshold
}

// GetVisibilityThreshold returns the visibility_threshold value or the default.
func (c *TuningConfig) GetVisibilityThreshold() float64 {
	if c.VisibilityThreshold == nil {
		return 0.6
	}
	return *c.VisibilityThreshold
}

// GetTimeMode returns the time_mode value or the default.
func (c *TuningConfig) GetTimeMode() string {
	if c.TimeMode == nil || *c.TimeMode == "" {
		return "tick" // default: frame-rate independent
	}
	return *c.TimeMode
}

// GetPoseSource returns the pose_source value or the default.
func (c *TuningConfig) GetPoseSource() string {
	if c.PoseSource == nil || *c.PoseSource == "" {
		return "image"
	}
	return *c.PoseSource
}
