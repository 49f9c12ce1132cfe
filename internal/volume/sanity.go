package volume

import (
	"fmt"
	"math"
)

// AssertWellDefined rejects any volume containing NaN or infinite samples.
// The error names the field and the first offending flat index so the
// failing stage can be diagnosed from the log alone.
func AssertWellDefined(name string, v *Volume) error {
	return assertFinite(name, v.Data)
}

// AssertWellDefined4 is AssertWellDefined for 4-D volumes.
func AssertWellDefined4(name string, v *Volume4) error {
	return assertFinite(name, v.Data)
}

func assertFinite(name string, data []float64) error {
	for i, x := range data {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("field %q contains a non-finite value (%g at index %d)", name, x, i)
		}
	}
	return nil
}

// ValidateOpticalProperties enforces the physical ranges of the four
// co-registered property fields: absorption and scattering non-negative,
// anisotropy in [-1,1], refractive index >= 1. Shapes must already match.
func ValidateOpticalProperties(absorption, scattering, anisotropy, refractiveIndex *Volume) error {
	if err := EqualShapes(absorption, scattering, anisotropy, refractiveIndex); err != nil {
		return err
	}
	for i, x := range absorption.Data {
		if x < 0 {
			return fmt.Errorf("absorption must be non-negative, got %g at index %d", x, i)
		}
	}
	for i, x := range scattering.Data {
		if x < 0 {
			return fmt.Errorf("scattering must be non-negative, got %g at index %d", x, i)
		}
	}
	for i, x := range anisotropy.Data {
		if x < -1 || x > 1 {
			return fmt.Errorf("anisotropy must be in [-1,1], got %g at index %d", x, i)
		}
	}
	for i, x := range refractiveIndex.Data {
		if x < 1 {
			return fmt.Errorf("refractive index must be >= 1, got %g at index %d", x, i)
		}
	}
	return nil
}
