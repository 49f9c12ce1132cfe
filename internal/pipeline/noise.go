package pipeline

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/lkeegan/simpa/internal/store"
	"github.com/lkeegan/simpa/internal/volume"
)

// GaussianNoiseStage perturbs the initial pressure field with additive
// Gaussian noise to mimic detector behaviour. In relative mode the noise
// scales with the per-sample signal magnitude. The stage is a no-op unless
// enabled in the settings; the unit-mode tag of the field is preserved.
type GaussianNoiseStage struct{}

// Name implements Stage.
func (GaussianNoiseStage) Name() string { return "gaussian_noise" }

// Run implements Stage.
func (GaussianNoiseStage) Run(ctx *Context) error {
	cfg := ctx.Settings.Noise
	if !cfg.Enabled {
		return nil
	}

	path := store.DataPath(store.KindOpticalOutput, ctx.WavelengthNM, false)
	field, err := ctx.Store.ReadField(path, store.FieldInitialPressure)
	if err != nil {
		return fmt.Errorf("noise stage has no pressure field to degrade: %w", err)
	}

	src := rand.NewSource(uint64(ctx.WavelengthNM))
	if cfg.Seed != nil {
		src = rand.NewSource(uint64(*cfg.Seed))
	}
	dist := distuv.Normal{Mu: cfg.Mean, Sigma: cfg.StdDev, Src: src}

	noisy := field.Volume
	for i, x := range noisy.Data {
		n := dist.Rand()
		if cfg.Relative {
			noisy.Data[i] = x * (1 + n)
		} else {
			noisy.Data[i] = x + n
		}
	}

	if !ctx.Settings.IgnoreQAChecks {
		if err := volume.AssertWellDefined(store.FieldInitialPressure, noisy); err != nil {
			return fmt.Errorf("noise stage produced invalid output: %w", err)
		}
	}

	return ctx.Store.WriteFields(path, map[string]store.Field{
		store.FieldInitialPressure: {Volume: noisy, Units: field.Units},
	})
}
