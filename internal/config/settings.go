// Package config defines the run settings for a simulation. Settings are
// loaded once from a validated JSON file and passed by value through the
// pipeline; there is no shared global configuration state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lkeegan/simpa/internal/units"
)

// Model selects the optical forward-model backend.
type Model string

// The closed set of optical model backends.
const (
	ModelMCX   Model = "mcx"   // GPU Monte-Carlo engine
	ModelMCXYZ Model = "mcxyz" // CPU reference engine
	ModelStub  Model = "stub"  // deterministic test stub
)

// ValidModels contains all recognised model selectors.
var ValidModels = []Model{ModelMCX, ModelMCXYZ, ModelStub}

// IsValid checks whether the model selector is recognised.
func (m Model) IsValid() bool {
	for _, valid := range ValidModels {
		if m == valid {
			return true
		}
	}
	return false
}

// GetValidModelsString returns a comma-separated string of valid model
// selectors for error messages.
func GetValidModelsString() string {
	return "mcx, mcxyz, stub"
}

// IlluminationType selects the illumination geometry variant.
type IlluminationType string

// The closed set of illumination geometries.
const (
	IlluminationPencil      IlluminationType = "pencil"
	IlluminationDisk        IlluminationType = "disk"
	IlluminationSlit        IlluminationType = "slit"
	IlluminationPencilArray IlluminationType = "pencilarray"
)

// Illumination describes the simulated light source. Which parameters are
// meaningful depends on the type.
type Illumination struct {
	Type IlluminationType `json:"type"`
	// RadiusMM is the beam radius for disk sources.
	RadiusMM float64 `json:"radius_mm,omitempty"`
	// SlitMM is the slit length for slit sources.
	SlitMM float64 `json:"slit_mm,omitempty"`
	// PitchMM and Count describe the element layout of pencil arrays.
	PitchMM float64 `json:"pitch_mm,omitempty"`
	Count   int     `json:"count,omitempty"`
}

// Noise configures the optional Gaussian noise processing stage.
type Noise struct {
	Enabled bool    `json:"enabled"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	// Relative scales the noise with the per-sample signal magnitude
	// instead of adding it in absolute units.
	Relative bool   `json:"relative"`
	Seed     *int64 `json:"seed,omitempty"`
}

// Settings is the immutable configuration for one simulation run.
type Settings struct {
	VolumeName string `json:"volume_name"`
	// RunID identifies this run in the store. Assigned by the driver when
	// empty.
	RunID string `json:"run_id,omitempty"`

	SpacingMM       float64    `json:"spacing_mm"`
	Wavelengths     []int      `json:"wavelengths"`
	ProbePositionMM [3]float64 `json:"probe_position_mm"`

	Model            Model        `json:"model"`
	EngineBinaryPath string       `json:"engine_binary_path,omitempty"`
	Illumination     Illumination `json:"illumination"`

	PhotonCount int64 `json:"photon_count"`
	// TimeStepNS and TotalTimeNS must be set together; both absent selects
	// the engine default of a single 5 ns frame.
	TimeStepNS  *float64 `json:"time_step_ns,omitempty"`
	TotalTimeNS *float64 `json:"total_time_ns,omitempty"`

	// EngineSeed overrides RandomSeed for the engine invocation only.
	EngineSeed *int64 `json:"engine_seed,omitempty"`
	RandomSeed *int64 `json:"random_seed,omitempty"`

	// PulseEnergyMJ, when present, selects the energy-calibrated physical
	// pressure branch of the post-processor.
	PulseEnergyMJ *float64 `json:"pulse_energy_mj,omitempty"`
	// PerformUpsampling indicates downstream spatial upsampling; it forces
	// arbitrary units regardless of pulse energy.
	PerformUpsampling bool `json:"perform_upsampling"`

	// IgnoreQAChecks suppresses the post-hoc non-finite field checks.
	// Diagnostic use only.
	IgnoreQAChecks bool `json:"ignore_qa_checks,omitempty"`

	Noise Noise `json:"noise"`

	DatabasePath string `json:"database_path"`
	// ScratchDir holds the transient files exchanged with the external
	// engine binary. Defaults to the system temp dir.
	ScratchDir string `json:"scratch_dir,omitempty"`
}

// Load reads and validates a Settings file. Partial files are rejected by
// Validate rather than silently defaulted, since a misconfigured simulation
// wastes hours of engine time.
func Load(path string) (*Settings, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("settings file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat settings file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("settings file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings JSON: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &s, nil
}

// Validate reports the first configuration error in the settings. All
// configuration errors are detected here, before any engine call.
func (s *Settings) Validate() error {
	if s.VolumeName == "" {
		return fmt.Errorf("volume_name must be set")
	}
	if s.SpacingMM <= 0 {
		return fmt.Errorf("spacing_mm must be positive, got %g", s.SpacingMM)
	}
	if len(s.Wavelengths) == 0 {
		return fmt.Errorf("at least one wavelength must be set")
	}
	for _, wl := range s.Wavelengths {
		if wl <= 0 {
			return fmt.Errorf("wavelengths must be positive, got %d", wl)
		}
	}
	if !s.Model.IsValid() {
		return fmt.Errorf("unknown model %q (valid: %s)", s.Model, GetValidModelsString())
	}
	if s.Model != ModelStub && s.EngineBinaryPath == "" {
		return fmt.Errorf("engine_binary_path must be set for model %q", s.Model)
	}
	if s.PhotonCount <= 0 {
		return fmt.Errorf("photon_count must be positive, got %d", s.PhotonCount)
	}
	if (s.TimeStepNS == nil) != (s.TotalTimeNS == nil) {
		return fmt.Errorf("time_step_ns and total_time_ns must be set together")
	}
	if s.TimeStepNS != nil {
		if *s.TimeStepNS <= 0 || *s.TotalTimeNS <= 0 {
			return fmt.Errorf("time_step_ns and total_time_ns must be positive")
		}
		if *s.TotalTimeNS < *s.TimeStepNS {
			return fmt.Errorf("total_time_ns (%g) must be at least time_step_ns (%g)", *s.TotalTimeNS, *s.TimeStepNS)
		}
	}
	if s.PulseEnergyMJ != nil && *s.PulseEnergyMJ <= 0 {
		return fmt.Errorf("pulse_energy_mj must be positive, got %g", *s.PulseEnergyMJ)
	}
	switch s.Illumination.Type {
	case IlluminationPencil:
	case IlluminationDisk:
		if s.Illumination.RadiusMM <= 0 {
			return fmt.Errorf("disk illumination requires a positive radius_mm")
		}
	case IlluminationSlit:
		if s.Illumination.SlitMM <= 0 {
			return fmt.Errorf("slit illumination requires a positive slit_mm")
		}
	case IlluminationPencilArray:
		if s.Illumination.PitchMM <= 0 || s.Illumination.Count < 2 {
			return fmt.Errorf("pencil array illumination requires a positive pitch_mm and count >= 2")
		}
	default:
		return fmt.Errorf("unknown illumination type %q", s.Illumination.Type)
	}
	if s.Noise.Enabled && s.Noise.StdDev <= 0 {
		return fmt.Errorf("noise std_dev must be positive when noise is enabled")
	}
	if s.DatabasePath == "" {
		return fmt.Errorf("database_path must be set")
	}
	return nil
}

// UnitMode returns the unit-mode tag the post-processor will select for
// these settings. Upsampling takes precedence over energy calibration.
func (s *Settings) UnitMode() string {
	if !s.PerformUpsampling && s.PulseEnergyMJ != nil {
		return units.PressurePa
	}
	return units.Arbitrary
}
