package optics

import (
	"fmt"

	"github.com/lkeegan/simpa/internal/config"
	"github.com/lkeegan/simpa/internal/volume"
)

// Result carries the raw output of one engine invocation. Flux is 4-D:
// three spatial axes plus the temporal axis.
type Result struct {
	Flux *volume.Volume4
}

// Engine is the narrow interface to the external photon-transport engine.
// Run blocks until the engine returns or fails; there is no cancellation and
// no retry, and transient engine failures propagate unchanged to the caller.
type Engine interface {
	Run(cfg *EngineConfig) (Result, error)
}

// NewEngine selects the engine backend for the configured model. The model
// enumeration is closed; an unknown selector is a configuration error and is
// rejected here, before any computation starts.
func NewEngine(s *config.Settings) (Engine, error) {
	switch s.Model {
	case config.ModelMCX:
		return &binaryEngine{binaryPath: s.EngineBinaryPath, scratchDir: s.ScratchDir}, nil
	case config.ModelMCXYZ:
		return &binaryEngine{binaryPath: s.EngineBinaryPath, scratchDir: s.ScratchDir}, nil
	case config.ModelStub:
		return &StubEngine{}, nil
	default:
		return nil, fmt.Errorf("unknown optical model %q (valid: %s)", s.Model, config.GetValidModelsString())
	}
}

// StubEngine is the deterministic test backend: it returns a unit flux field
// of the configured dimensions without invoking any external process.
type StubEngine struct{}

// Run implements Engine.
func (StubEngine) Run(cfg *EngineConfig) (Result, error) {
	flux, err := volume.New4(cfg.Volume.Nx, cfg.Volume.Ny, cfg.Volume.Nz, cfg.Frames)
	if err != nil {
		return Result{}, err
	}
	for i := range flux.Data {
		flux.Data[i] = 1.0
	}
	return Result{Flux: flux}, nil
}
