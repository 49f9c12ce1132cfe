package pipeline

import (
	"go.uber.org/zap"

	"github.com/lkeegan/simpa/internal/store"
)

// AcousticAdapter is the narrow interface to the external acoustic k-space
// solver that consumes the initial pressure field. Implementing the solver
// is out of scope for this layer; downstream deployments plug in their own
// adapter.
type AcousticAdapter interface {
	// Simulate runs the acoustic forward model on the initial pressure at
	// the given path and returns the path of the produced time series.
	Simulate(ctx *Context, initialPressurePath string) (string, error)
}

// AcousticStage bridges an AcousticAdapter into the pipeline. With a nil
// adapter the stage logs and skips, so the default pipeline stays runnable
// without a solver installation.
type AcousticStage struct {
	Adapter AcousticAdapter
}

// Name implements Stage.
func (AcousticStage) Name() string { return "acoustic_forward_model" }

// Run implements Stage.
func (s AcousticStage) Run(ctx *Context) error {
	if s.Adapter == nil {
		ctx.Logger.Info("no acoustic adapter configured, skipping",
			zap.String("stage", s.Name()))
		return nil
	}
	pressurePath := store.DataPath(store.KindOpticalOutput, ctx.WavelengthNM, false)
	_, err := s.Adapter.Simulate(ctx, pressurePath)
	return err
}
