package optics

import (
	"fmt"

	"github.com/lkeegan/simpa/internal/config"
	"github.com/lkeegan/simpa/internal/units"
	"github.com/lkeegan/simpa/internal/volume"
)

// PostProcessFlux turns the engine's raw flux output into a fluence field in
// application units. The raw values are rescaled from J/mm^2 to J/cm^2; a
// singleton temporal axis is dropped, and a multi-frame output is summed
// over the time window so the result is always the total fluence over the
// simulated window.
func PostProcessFlux(flux *volume.Volume4) (*volume.Volume, error) {
	if flux == nil {
		return nil, fmt.Errorf("engine returned no flux output")
	}
	flux.Scale(units.FluenceScale)

	if squeezed, ok := flux.SqueezeTime(); ok {
		return squeezed, nil
	}

	fluence, err := volume.New(flux.Nx, flux.Ny, flux.Nz)
	if err != nil {
		return nil, err
	}
	for i := 0; i < fluence.Len(); i++ {
		sum := 0.0
		for w := 0; w < flux.Nw; w++ {
			sum += flux.Data[i*flux.Nw+w]
		}
		fluence.Data[i] = sum
	}
	return fluence, nil
}

// InitialPressure derives the initial pressure field from fluence,
// absorption, and the Grueneisen parameter, and returns it together with the
// selected unit-mode tag. Exactly one of the two unit modes is selected, as
// a pure function of the upsampling flag and pulse-energy presence:
//
//   - downstream upsampling pending: arbitrary units, p0 = mua * phi
//     (calibration would be invalidated by the resampling);
//   - pulse energy known: physical Pascals,
//     p0 = mua * phi * gamma * (E_mJ/1000) * 1e6;
//   - otherwise: arbitrary units, p0 = mua * phi.
func InitialPressure(absorptionPerCM, fluence, gruneisen *volume.Volume, s *config.Settings) (*volume.Volume, string, error) {
	if err := volume.EqualShapes(absorptionPerCM, fluence, gruneisen); err != nil {
		return nil, "", err
	}

	pressure := absorptionPerCM.Clone()
	if err := pressure.MulElem(fluence); err != nil {
		return nil, "", err
	}

	if s.PerformUpsampling || s.PulseEnergyMJ == nil {
		return pressure, units.Arbitrary, nil
	}

	if err := pressure.MulElem(gruneisen); err != nil {
		return nil, "", err
	}
	pressure.Scale((*s.PulseEnergyMJ / 1000) * units.JPerCM3ToPa)
	return pressure, units.PressurePa, nil
}
