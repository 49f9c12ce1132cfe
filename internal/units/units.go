// Package units provides shared constants and conversions between the
// physical units used by the pipeline (millimetres, per-centimetre optical
// coefficients, Pascals) and the voxel/millimetre conventions of the photon
// transport engine.
package units

import (
	"fmt"
)

// Unit-mode tags recorded alongside stored fields. Downstream consumers must
// branch on the tag before interpreting numeric magnitudes.
const (
	PressurePa = "Pa"
	Arbitrary  = "a.u."
)

// ValidUnitModes contains all valid unit-mode values.
var ValidUnitModes = []string{PressurePa, Arbitrary}

// IsValidUnitMode checks if the given unit mode is in the list of valid modes.
func IsValidUnitMode(mode string) bool {
	for _, valid := range ValidUnitModes {
		if mode == valid {
			return true
		}
	}
	return false
}

// GetValidUnitModesString returns a comma-separated string of valid unit
// modes for error messages.
func GetValidUnitModesString() string {
	return "Pa, a.u."
}

// FluenceScale converts the engine-native fluence output from J/mm^2 to
// J/cm^2.
const FluenceScale = 100.0

// JPerCM3ToPa converts an absorbed energy density in J/cm^3 to an initial
// pressure in Pascals (1 J/cm^3 = 10^6 N/m^2 = 10^6 Pa).
const JPerCM3ToPa = 1e6

// PerCMToPerMM converts an optical coefficient from per-centimetre to the
// per-millimetre units the engine operates in.
func PerCMToPerMM(x float64) float64 {
	return x / 10
}

// PerMMToPerCM is the inverse of PerCMToPerMM.
func PerMMToPerCM(x float64) float64 {
	return x * 10
}

// MMToVoxels converts a physical position in millimetres to a voxel-space
// coordinate. The +0.5 centres the source within its voxel. A non-positive
// spacing is a configuration error; it must never silently produce infinite
// or NaN coordinates.
func MMToVoxels(positionMM, spacingMM float64) (float64, error) {
	if spacingMM <= 0 {
		return 0, fmt.Errorf("voxel spacing must be positive, got %g mm", spacingMM)
	}
	return positionMM/spacingMM + 0.5, nil
}
