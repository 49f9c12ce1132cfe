package optics

import (
	"fmt"

	"github.com/lkeegan/simpa/internal/config"
	"github.com/lkeegan/simpa/internal/units"
	"github.com/lkeegan/simpa/internal/volume"
)

// Default engine time window: one 5 ns frame.
const defaultTimeNS = 5.0

// Properties holds the four co-registered optical property fields in the
// per-centimetre units they are stored in.
type Properties struct {
	AbsorptionPerCM *volume.Volume
	ScatteringPerCM *volume.Volume
	Anisotropy      *volume.Volume
	RefractiveIndex *volume.Volume
}

// Validate checks the shared-shape invariant and the physical value ranges
// of the property fields.
func (p Properties) Validate() error {
	return volume.ValidateOpticalProperties(p.AbsorptionPerCM, p.ScatteringPerCM, p.Anisotropy, p.RefractiveIndex)
}

// EngineConfig is the composed record consumed by one engine invocation.
// It is built fresh per call, owned by the adapter for the duration of that
// call, and never persisted.
type EngineConfig struct {
	PhotonCount int64
	// Volume is the stacked 4-channel property volume in per-millimetre
	// units, channel index varying fastest.
	Volume *volume.Volume4
	// Timing window in nanoseconds, starting at zero.
	TotalTimeNS float64
	TimeStepNS  float64
	// Frames is TotalTimeNS/TimeStepNS; the engine's flux output carries
	// this many temporal frames.
	Frames int
	// UnitInMM is the voxel spacing handed to the engine as its length
	// unit.
	UnitInMM float64
	Source   Illuminator
	// Seed is the engine RNG seed; nil selects the engine default.
	Seed *int64
}

// BuildEngineConfig assembles the engine configuration from the property
// fields, the illuminator, and the run settings. It is pure and
// deterministic given identical inputs: no I/O happens here, and every
// configuration error (shape mismatch, invalid ranges, bad timing) is
// reported before the engine is ever invoked.
//
// Absorption and scattering are rescaled from per-cm to per-mm while being
// interleaved into the 4-channel volume, so no intermediate per-mm copies of
// the property arrays are formed.
func BuildEngineConfig(props Properties, ill Illuminator, s *config.Settings) (*EngineConfig, error) {
	if err := props.Validate(); err != nil {
		return nil, err
	}
	if s.SpacingMM <= 0 {
		return nil, fmt.Errorf("voxel spacing must be positive, got %g mm", s.SpacingMM)
	}
	if s.PhotonCount <= 0 {
		return nil, fmt.Errorf("photon count must be positive, got %d", s.PhotonCount)
	}

	a := props.AbsorptionPerCM
	vol, err := volume.New4(a.Nx, a.Ny, a.Nz, 4)
	if err != nil {
		return nil, err
	}
	for i := 0; i < a.Len(); i++ {
		vol.Data[4*i+0] = units.PerCMToPerMM(props.AbsorptionPerCM.Data[i])
		vol.Data[4*i+1] = units.PerCMToPerMM(props.ScatteringPerCM.Data[i])
		vol.Data[4*i+2] = props.Anisotropy.Data[i]
		vol.Data[4*i+3] = props.RefractiveIndex.Data[i]
	}

	totalTime, timeStep := defaultTimeNS, defaultTimeNS
	if s.TimeStepNS != nil && s.TotalTimeNS != nil {
		timeStep = *s.TimeStepNS
		totalTime = *s.TotalTimeNS
	}
	if timeStep <= 0 || totalTime < timeStep {
		return nil, fmt.Errorf("invalid timing window: step %g ns, total %g ns", timeStep, totalTime)
	}

	cfg := &EngineConfig{
		PhotonCount: s.PhotonCount,
		Volume:      vol,
		TotalTimeNS: totalTime,
		TimeStepNS:  timeStep,
		Frames:      int(totalTime / timeStep),
		UnitInMM:    s.SpacingMM,
		Source:      ill,
	}

	// Engine seed precedence: explicit engine seed, else the global run
	// seed, else the engine default.
	if s.EngineSeed != nil {
		seed := *s.EngineSeed
		cfg.Seed = &seed
	} else if s.RandomSeed != nil {
		seed := *s.RandomSeed
		cfg.Seed = &seed
	}

	return cfg, nil
}
