// Package optics implements the optical forward-model adapter: illumination
// geometry translation, engine configuration construction, invocation of the
// external photon-transport engine, and post-processing of its flux output
// into fluence and initial pressure fields.
package optics

import (
	"fmt"

	"github.com/lkeegan/simpa/internal/config"
	"github.com/lkeegan/simpa/internal/units"
)

// Source type tags as consumed by the photon-transport engine.
const (
	SourcePencil      = "pencil"
	SourceDisk        = "disk"
	SourceSlit        = "slit"
	SourcePencilArray = "pencilarray"
)

// Illuminator is the engine-facing illumination descriptor: source type,
// position in voxel coordinates, a unit direction vector, and two
// source-type-dependent parameter vectors. Built once per device per run and
// immutable thereafter.
type Illuminator struct {
	Type   string
	Pos    [3]float64
	Dir    [3]float64
	Param1 [4]float64
	Param2 [4]float64
}

// Geometry translates a physical-space probe position into an engine
// illuminator definition. Implementations form a closed set of variants.
type Geometry interface {
	Definition(probePositionMM [3]float64, spacingMM float64) (Illuminator, error)
}

// PencilBeam is an infinitesimally narrow beam along the principal
// propagation axis.
type PencilBeam struct{}

// DiskBeam is a uniform circular beam of the given radius.
type DiskBeam struct {
	RadiusMM float64
}

// SlitBeam is a line source of the given length along x.
type SlitBeam struct {
	SlitMM float64
}

// PencilArray is a linear array of evenly pitched pencil beams along x.
type PencilArray struct {
	PitchMM float64
	Count   int
}

// positionVoxels applies the mm-to-voxel transform per axis. The +0.5
// centring comes from units.MMToVoxels.
func positionVoxels(probePositionMM [3]float64, spacingMM float64) ([3]float64, error) {
	var pos [3]float64
	for i, p := range probePositionMM {
		v, err := units.MMToVoxels(p, spacingMM)
		if err != nil {
			return pos, err
		}
		pos[i] = v
	}
	return pos, nil
}

// Definition implements Geometry. Direction and shape parameters of a pencil
// beam are fixed: propagation along +z, zero-valued parameter vectors.
func (PencilBeam) Definition(probePositionMM [3]float64, spacingMM float64) (Illuminator, error) {
	pos, err := positionVoxels(probePositionMM, spacingMM)
	if err != nil {
		return Illuminator{}, err
	}
	return Illuminator{
		Type: SourcePencil,
		Pos:  pos,
		Dir:  [3]float64{0, 0, 1},
	}, nil
}

// Definition implements Geometry. The first shape parameter carries the
// beam radius in voxels.
func (d DiskBeam) Definition(probePositionMM [3]float64, spacingMM float64) (Illuminator, error) {
	pos, err := positionVoxels(probePositionMM, spacingMM)
	if err != nil {
		return Illuminator{}, err
	}
	if d.RadiusMM <= 0 {
		return Illuminator{}, fmt.Errorf("disk beam radius must be positive, got %g mm", d.RadiusMM)
	}
	return Illuminator{
		Type:   SourceDisk,
		Pos:    pos,
		Dir:    [3]float64{0, 0, 1},
		Param1: [4]float64{d.RadiusMM / spacingMM, 0, 0, 0},
	}, nil
}

// Definition implements Geometry. The first shape parameter carries the slit
// extent in voxels along x.
func (s SlitBeam) Definition(probePositionMM [3]float64, spacingMM float64) (Illuminator, error) {
	pos, err := positionVoxels(probePositionMM, spacingMM)
	if err != nil {
		return Illuminator{}, err
	}
	if s.SlitMM <= 0 {
		return Illuminator{}, fmt.Errorf("slit length must be positive, got %g mm", s.SlitMM)
	}
	return Illuminator{
		Type:   SourceSlit,
		Pos:    pos,
		Dir:    [3]float64{0, 0, 1},
		Param1: [4]float64{s.SlitMM / spacingMM, 0, 0, 0},
	}, nil
}

// Definition implements Geometry. Param1 holds the voxel position of the
// last array element and the element count, as the engine expects.
func (p PencilArray) Definition(probePositionMM [3]float64, spacingMM float64) (Illuminator, error) {
	pos, err := positionVoxels(probePositionMM, spacingMM)
	if err != nil {
		return Illuminator{}, err
	}
	if p.PitchMM <= 0 || p.Count < 2 {
		return Illuminator{}, fmt.Errorf("pencil array requires positive pitch and at least 2 elements, got pitch=%g mm count=%d", p.PitchMM, p.Count)
	}
	endX := pos[0] + p.PitchMM*float64(p.Count-1)/spacingMM
	return Illuminator{
		Type:   SourcePencilArray,
		Pos:    pos,
		Dir:    [3]float64{0, 0, 1},
		Param1: [4]float64{endX, pos[1], pos[2], float64(p.Count)},
	}, nil
}

// GeometryFromSettings maps the illumination settings onto the closed set of
// geometry variants. An unknown type is a configuration error.
func GeometryFromSettings(ill config.Illumination) (Geometry, error) {
	switch ill.Type {
	case config.IlluminationPencil:
		return PencilBeam{}, nil
	case config.IlluminationDisk:
		return DiskBeam{RadiusMM: ill.RadiusMM}, nil
	case config.IlluminationSlit:
		return SlitBeam{SlitMM: ill.SlitMM}, nil
	case config.IlluminationPencilArray:
		return PencilArray{PitchMM: ill.PitchMM, Count: ill.Count}, nil
	default:
		return nil, fmt.Errorf("unknown illumination type %q", ill.Type)
	}
}
