package volume

import (
	"fmt"
)

// Volume4 is a dense 4-D grid. The fourth axis is either the property
// channel (engine input: absorption, scattering, anisotropy, refractive
// index) or time (engine flux output). The fourth index varies fastest.
type Volume4 struct {
	Nx, Ny, Nz, Nw int
	Data           []float64
}

// New4 allocates a zero-filled 4-D volume.
func New4(nx, ny, nz, nw int) (*Volume4, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 || nw <= 0 {
		return nil, fmt.Errorf("volume dimensions must be positive, got (%d,%d,%d,%d)", nx, ny, nz, nw)
	}
	return &Volume4{Nx: nx, Ny: ny, Nz: nz, Nw: nw, Data: make([]float64, nx*ny*nz*nw)}, nil
}

// FromData4 wraps an existing flat slice as a 4-D volume without copying.
func FromData4(nx, ny, nz, nw int, data []float64) (*Volume4, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 || nw <= 0 {
		return nil, fmt.Errorf("volume dimensions must be positive, got (%d,%d,%d,%d)", nx, ny, nz, nw)
	}
	if len(data) != nx*ny*nz*nw {
		return nil, fmt.Errorf("data length %d does not match dimensions (%d,%d,%d,%d)", len(data), nx, ny, nz, nw)
	}
	return &Volume4{Nx: nx, Ny: ny, Nz: nz, Nw: nw, Data: data}, nil
}

// Len returns the total number of samples.
func (v *Volume4) Len() int { return v.Nx * v.Ny * v.Nz * v.Nw }

// Shape returns the dimensions as a quadruple.
func (v *Volume4) Shape() [4]int { return [4]int{v.Nx, v.Ny, v.Nz, v.Nw} }

func (v *Volume4) index(x, y, z, w int) int {
	return ((x*v.Ny+y)*v.Nz+z)*v.Nw + w
}

// At returns the sample at (x, y, z, w).
func (v *Volume4) At(x, y, z, w int) float64 { return v.Data[v.index(x, y, z, w)] }

// Set stores a sample at (x, y, z, w).
func (v *Volume4) Set(x, y, z, w int, val float64) { v.Data[v.index(x, y, z, w)] = val }

// StackChannels interleaves four co-shaped volumes into a single 4-channel
// volume in the layout the engine consumes (channel index varies fastest).
// A shape mismatch among the inputs is a configuration error.
func StackChannels(a, b, c, d *Volume) (*Volume4, error) {
	if err := EqualShapes(a, b, c, d); err != nil {
		return nil, err
	}
	out, err := New4(a.Nx, a.Ny, a.Nz, 4)
	if err != nil {
		return nil, err
	}
	for i := 0; i < a.Len(); i++ {
		out.Data[4*i+0] = a.Data[i]
		out.Data[4*i+1] = b.Data[i]
		out.Data[4*i+2] = c.Data[i]
		out.Data[4*i+3] = d.Data[i]
	}
	return out, nil
}

// SqueezeTime drops a singleton trailing axis, turning an (nx,ny,nz,1)
// volume into an (nx,ny,nz) one. Multi-frame volumes are left unmodified and
// (nil, false) is returned. The returned volume shares the underlying data.
func (v *Volume4) SqueezeTime() (*Volume, bool) {
	if v.Nw != 1 {
		return nil, false
	}
	return &Volume{Nx: v.Nx, Ny: v.Ny, Nz: v.Nz, Data: v.Data}, true
}

// Scale multiplies every sample by c in place.
func (v *Volume4) Scale(c float64) {
	for i := range v.Data {
		v.Data[i] *= c
	}
}

// Frame returns a copy of the w-th hyperslice as a 3-D volume.
func (v *Volume4) Frame(w int) (*Volume, error) {
	if w < 0 || w >= v.Nw {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", w, v.Nw)
	}
	out, err := New(v.Nx, v.Ny, v.Nz)
	if err != nil {
		return nil, err
	}
	for i := 0; i < out.Len(); i++ {
		out.Data[i] = v.Data[i*v.Nw+w]
	}
	return out, nil
}
