package optics

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lkeegan/simpa/internal/config"
	"github.com/lkeegan/simpa/internal/store"
	"github.com/lkeegan/simpa/internal/units"
	"github.com/lkeegan/simpa/internal/volume"
)

// RunForwardModel executes the optical forward-model stage for one
// wavelength: it reads the property fields from the store, builds the engine
// configuration, runs the selected engine, post-processes the flux into
// fluence and initial pressure, and writes the outputs. It returns the
// output path.
//
// All configuration errors (unknown model or geometry, bad spacing, shape
// mismatches) surface before the engine call; a missing input field aborts
// the stage with a lookup error and nothing is written.
func RunForwardModel(s *config.Settings, st store.Store, wavelengthNM int, logger *zap.Logger) (string, error) {
	engine, err := NewEngine(s)
	if err != nil {
		return "", err
	}
	geometry, err := GeometryFromSettings(s.Illumination)
	if err != nil {
		return "", err
	}

	propsPath := store.DataPath(store.KindSimulationProperties, wavelengthNM, false)
	props, gruneisen, err := loadProperties(st, propsPath)
	if err != nil {
		return "", err
	}

	illuminator, err := geometry.Definition(s.ProbePositionMM, s.SpacingMM)
	if err != nil {
		return "", err
	}

	cfg, err := BuildEngineConfig(props, illuminator, s)
	if err != nil {
		return "", err
	}

	logger.Info("running optical forward model",
		zap.String("model", string(s.Model)),
		zap.Int("wavelength_nm", wavelengthNM),
		zap.Int64("photons", cfg.PhotonCount),
		zap.Int("frames", cfg.Frames))
	start := time.Now()

	result, err := engine.Run(cfg)
	if err != nil {
		return "", fmt.Errorf("optical forward model failed: %w", err)
	}

	logger.Info("optical forward model finished",
		zap.Int("wavelength_nm", wavelengthNM),
		zap.Duration("elapsed", time.Since(start)))

	fluence, err := PostProcessFlux(result.Flux)
	if err != nil {
		return "", err
	}

	pressure, unitMode, err := InitialPressure(props.AbsorptionPerCM, fluence, gruneisen, s)
	if err != nil {
		return "", err
	}

	if !s.IgnoreQAChecks {
		if err := volume.AssertWellDefined(store.FieldFluence, fluence); err != nil {
			return "", fmt.Errorf("optical stage produced invalid output: %w", err)
		}
		if err := volume.AssertWellDefined(store.FieldInitialPressure, pressure); err != nil {
			return "", fmt.Errorf("optical stage produced invalid output: %w", err)
		}
	}

	outPath := store.DataPath(store.KindOpticalOutput, wavelengthNM, false)
	err = st.WriteFields(outPath, map[string]store.Field{
		store.FieldFluence:         {Volume: fluence, Units: units.Arbitrary},
		store.FieldInitialPressure: {Volume: pressure, Units: unitMode},
	})
	if err != nil {
		return "", err
	}
	return outPath, nil
}

// loadProperties reads the four property fields and the Grueneisen parameter
// from the given path. A missing field is fatal to the stage.
func loadProperties(st store.Store, path string) (Properties, *volume.Volume, error) {
	read := func(name string) (*volume.Volume, error) {
		f, err := st.ReadField(path, name)
		if err != nil {
			return nil, err
		}
		return f.Volume, nil
	}

	var props Properties
	var err error
	if props.AbsorptionPerCM, err = read(store.FieldAbsorptionPerCM); err != nil {
		return Properties{}, nil, err
	}
	if props.ScatteringPerCM, err = read(store.FieldScatteringPerCM); err != nil {
		return Properties{}, nil, err
	}
	if props.Anisotropy, err = read(store.FieldAnisotropy); err != nil {
		return Properties{}, nil, err
	}
	if props.RefractiveIndex, err = read(store.FieldRefractiveIndex); err != nil {
		return Properties{}, nil, err
	}
	gruneisen, err := read(store.FieldGruneisen)
	if err != nil {
		return Properties{}, nil, err
	}
	return props, gruneisen, nil
}
