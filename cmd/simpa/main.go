// Command simpa runs the photoacoustic simulation pipeline for every
// configured wavelength: optical forward model, then optional processing
// stages. The heavy physics runs in the external engine binary configured in
// the settings file.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/lkeegan/simpa/internal/config"
	"github.com/lkeegan/simpa/internal/pipeline"
	"github.com/lkeegan/simpa/internal/store"
)

var (
	settingsPath = flag.String("settings", "settings.json", "Path to the run settings JSON file")
	dbPath       = flag.String("db", "", "Override the database path from the settings file")
	verbose      = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(logger *zap.Logger) error {
	settings, err := config.Load(*settingsPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		settings.DatabasePath = *dbPath
	}

	runID := pipeline.AssignRunID(settings)
	logger.Info("starting simulation run",
		zap.String("run_id", runID),
		zap.String("volume", settings.VolumeName),
		zap.String("model", string(settings.Model)),
		zap.Ints("wavelengths_nm", settings.Wavelengths))

	st, err := store.Open(settings.DatabasePath, runID)
	if err != nil {
		return err
	}
	defer st.Close()

	runner := pipeline.NewRunner(logger)
	if err := runner.Run(settings, st); err != nil {
		return err
	}

	logger.Info("simulation run finished", zap.String("run_id", runID))
	return nil
}
