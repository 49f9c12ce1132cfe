// Package store implements the keyed, path-addressed array store the
// pipeline stages read their inputs from and write their outputs to. Stages
// never manage file handles directly; everything goes through the Store
// interface.
package store

import (
	"errors"
	"fmt"

	"github.com/lkeegan/simpa/internal/volume"
)

// ErrFieldNotFound is returned when a required field is absent at the
// expected path. Callers treat this as fatal to the stage.
var ErrFieldNotFound = errors.New("field not found")

// Data kinds addressed by DataPath.
const (
	KindSimulationProperties = "simulation_properties"
	KindOpticalOutput        = "optical_forward_model_output"
	KindTimeSeries           = "time_series_data"
)

// Canonical field names within a path.
const (
	FieldAbsorptionPerCM = "mua"
	FieldScatteringPerCM = "mus"
	FieldAnisotropy      = "g"
	FieldRefractiveIndex = "n"
	FieldGruneisen       = "gamma"
	FieldFluence         = "fluence"
	FieldInitialPressure = "initial_pressure"
)

// Field couples an array with the unit-mode tag it was recorded under.
type Field struct {
	Volume *volume.Volume
	Units  string
}

// Store is the persistence adapter consumed by all pipeline stages.
type Store interface {
	// ReadField loads one named field at the given path. A missing field
	// is reported as an error wrapping ErrFieldNotFound.
	ReadField(path, name string) (Field, error)
	// WriteFields stores all given fields at the path atomically: either
	// every field is written or none is.
	WriteFields(path string, fields map[string]Field) error
	Close() error
}

// DataPath derives the structured path for a data kind at a wavelength.
// Original-resolution and upsampled data live under distinct prefixes so a
// downstream upsampling stage never overwrites its own input.
func DataPath(kind string, wavelengthNM int, upsampled bool) string {
	resolution := "original_data"
	if upsampled {
		resolution = "upsampled_data"
	}
	return fmt.Sprintf("simulations/%s/%s/%d", resolution, kind, wavelengthNM)
}
