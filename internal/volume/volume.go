// Package volume provides the dense 3-D and 4-D array types shared by the
// simulation stages, together with the shape and numerical sanity checks the
// stages run before and after handing data to the external engines.
package volume

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Volume is a dense row-major 3-D grid of float64 samples. The z index
// varies fastest, matching the layout the engines exchange on disk.
type Volume struct {
	Nx, Ny, Nz int
	Data       []float64
}

// New allocates a zero-filled volume of the given dimensions.
func New(nx, ny, nz int) (*Volume, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("volume dimensions must be positive, got (%d,%d,%d)", nx, ny, nz)
	}
	return &Volume{Nx: nx, Ny: ny, Nz: nz, Data: make([]float64, nx*ny*nz)}, nil
}

// NewFilled allocates a volume with every sample set to v.
func NewFilled(nx, ny, nz int, v float64) (*Volume, error) {
	vol, err := New(nx, ny, nz)
	if err != nil {
		return nil, err
	}
	for i := range vol.Data {
		vol.Data[i] = v
	}
	return vol, nil
}

// FromData wraps an existing flat slice as a volume. The slice is not copied;
// its length must match the dimensions.
func FromData(nx, ny, nz int, data []float64) (*Volume, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("volume dimensions must be positive, got (%d,%d,%d)", nx, ny, nz)
	}
	if len(data) != nx*ny*nz {
		return nil, fmt.Errorf("data length %d does not match dimensions (%d,%d,%d)", len(data), nx, ny, nz)
	}
	return &Volume{Nx: nx, Ny: ny, Nz: nz, Data: data}, nil
}

// Len returns the total number of samples.
func (v *Volume) Len() int { return v.Nx * v.Ny * v.Nz }

// Shape returns the dimensions as a triple.
func (v *Volume) Shape() [3]int { return [3]int{v.Nx, v.Ny, v.Nz} }

func (v *Volume) index(x, y, z int) int {
	return (x*v.Ny+y)*v.Nz + z
}

// At returns the sample at (x, y, z).
func (v *Volume) At(x, y, z int) float64 { return v.Data[v.index(x, y, z)] }

// Set stores a sample at (x, y, z).
func (v *Volume) Set(x, y, z int, val float64) { v.Data[v.index(x, y, z)] = val }

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	return &Volume{Nx: v.Nx, Ny: v.Ny, Nz: v.Nz, Data: data}
}

// Scale multiplies every sample by c in place.
func (v *Volume) Scale(c float64) {
	floats.Scale(c, v.Data)
}

// MulElem multiplies v element-wise by other in place. The shapes must
// match.
func (v *Volume) MulElem(other *Volume) error {
	if err := EqualShapes(v, other); err != nil {
		return err
	}
	floats.Mul(v.Data, other.Data)
	return nil
}

// Max returns the largest sample in the volume.
func (v *Volume) Max() float64 {
	return floats.Max(v.Data)
}

// Min returns the smallest sample in the volume.
func (v *Volume) Min() float64 {
	return floats.Min(v.Data)
}

// EqualShapes returns a configuration error if the given volumes do not all
// share one shape. The error names the first mismatching pair so shape bugs
// surface before the engine silently misinterprets channels.
func EqualShapes(vols ...*Volume) error {
	if len(vols) < 2 {
		return nil
	}
	ref := vols[0].Shape()
	for i, v := range vols[1:] {
		if s := v.Shape(); s != ref {
			return fmt.Errorf("volume shape mismatch: volume %d has shape (%d,%d,%d), expected (%d,%d,%d)",
				i+1, s[0], s[1], s[2], ref[0], ref[1], ref[2])
		}
	}
	return nil
}
