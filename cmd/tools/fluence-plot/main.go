// Command fluence-plot renders a z-slice of a stored fluence field as a PNG
// heatmap, for quick visual inspection of an optical simulation run.
package main

import (
	"flag"
	"fmt"
	"log"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/lkeegan/simpa/internal/store"
	"github.com/lkeegan/simpa/internal/volume"
)

var (
	dbPath     = flag.String("db", "simpa_output.db", "Path to the simulation database")
	runID      = flag.String("run", "", "Simulation run ID")
	wavelength = flag.Int("wavelength", 800, "Wavelength in nm")
	field      = flag.String("field", store.FieldFluence, "Field name to plot")
	zSlice     = flag.Int("z", -1, "z index of the slice to plot (-1 for the centre slice)")
	outPath    = flag.String("out", "fluence.png", "Output PNG path")
)

// slice adapts one z-plane of a volume to the plotter's grid interface.
type slice struct {
	vol *volume.Volume
	z   int
}

func (s slice) Dims() (c, r int)   { return s.vol.Nx, s.vol.Ny }
func (s slice) Z(c, r int) float64 { return s.vol.At(c, r, s.z) }
func (s slice) X(c int) float64    { return float64(c) }
func (s slice) Y(r int) float64    { return float64(r) }

func main() {
	flag.Parse()
	if *runID == "" {
		log.Fatal("missing required flag: -run")
	}

	st, err := store.Open(*dbPath, *runID)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	path := store.DataPath(store.KindOpticalOutput, *wavelength, false)
	f, err := st.ReadField(path, *field)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *field, err)
	}

	z := *zSlice
	if z < 0 {
		z = f.Volume.Nz / 2
	}
	if z >= f.Volume.Nz {
		log.Fatalf("z index %d out of range [0,%d)", z, f.Volume.Nz)
	}

	if err := renderSlice(slice{vol: f.Volume, z: z}, f.Units, *outPath); err != nil {
		log.Fatalf("failed to render plot: %v", err)
	}
	log.Printf("wrote %s (field=%s wavelength=%dnm z=%d)", *outPath, *field, *wavelength, z)
}

func renderSlice(grid slice, unitTag, out string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s at %d nm (z=%d, units=%s)", *field, *wavelength, grid.z, unitTag)
	p.X.Label.Text = "x (voxels)"
	p.Y.Label.Text = "y (voxels)"

	heatMap := plotter.NewHeatMap(grid, moreland.SmoothBlueRed().Palette(255))
	p.Add(heatMap)

	return p.Save(6*vg.Inch, 6*vg.Inch, out)
}
