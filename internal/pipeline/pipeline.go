// Package pipeline sequences the simulation stages for each configured
// wavelength. The driver itself is deliberately dumb: stages run one after
// the other, the first error aborts the run, and nothing here parallelizes —
// every invocation builds an independent configuration.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lkeegan/simpa/internal/config"
	"github.com/lkeegan/simpa/internal/optics"
	"github.com/lkeegan/simpa/internal/store"
)

// Context carries everything a stage needs for one wavelength invocation.
type Context struct {
	Settings     *config.Settings
	Store        store.Store
	WavelengthNM int
	Logger       *zap.Logger
}

// Stage is one step of the simulation pipeline.
type Stage interface {
	Name() string
	Run(ctx *Context) error
}

// OpticalStage runs the optical forward model adapter.
type OpticalStage struct{}

// Name implements Stage.
func (OpticalStage) Name() string { return "optical_forward_model" }

// Run implements Stage.
func (OpticalStage) Run(ctx *Context) error {
	_, err := optics.RunForwardModel(ctx.Settings, ctx.Store, ctx.WavelengthNM, ctx.Logger)
	return err
}

// Runner executes a fixed stage sequence for every configured wavelength.
type Runner struct {
	Stages []Stage
	Logger *zap.Logger
}

// NewRunner builds the default pipeline: optical forward model, then the
// optional Gaussian noise stage.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{
		Stages: []Stage{OpticalStage{}, GaussianNoiseStage{}},
		Logger: logger,
	}
}

// AssignRunID fills in a fresh run ID when the settings carry none, and
// returns the ID in use.
func AssignRunID(s *config.Settings) string {
	if s.RunID == "" {
		s.RunID = uuid.New().String()
	}
	return s.RunID
}

// Run executes all stages for all wavelengths. When a global random seed is
// configured and more than one wavelength is simulated, each wavelength gets
// a derived seed so repeated photon draws stay decorrelated across
// wavelengths.
func (r *Runner) Run(s *config.Settings, st store.Store) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	for i, wl := range s.Wavelengths {
		wlSettings := *s
		if s.RandomSeed != nil && len(s.Wavelengths) > 1 {
			derived := *s.RandomSeed + int64(i)
			wlSettings.RandomSeed = &derived
		}

		ctx := &Context{
			Settings:     &wlSettings,
			Store:        st,
			WavelengthNM: wl,
			Logger:       r.Logger.With(zap.String("run_id", s.RunID), zap.Int("wavelength_nm", wl)),
		}

		for _, stage := range r.Stages {
			start := time.Now()
			ctx.Logger.Info("stage starting", zap.String("stage", stage.Name()))
			if err := stage.Run(ctx); err != nil {
				return fmt.Errorf("stage %s failed for wavelength %d nm: %w", stage.Name(), wl, err)
			}
			ctx.Logger.Info("stage finished",
				zap.String("stage", stage.Name()),
				zap.Duration("elapsed", time.Since(start)))
		}
	}
	return nil
}
