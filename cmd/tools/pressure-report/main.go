// Command pressure-report renders an HTML heatmap of an initial-pressure
// slice using go-echarts, for sharing quick-look results without a plotting
// environment.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/lkeegan/simpa/internal/store"
)

var (
	dbPath     = flag.String("db", "simpa_output.db", "Path to the simulation database")
	runID      = flag.String("run", "", "Simulation run ID")
	wavelength = flag.Int("wavelength", 800, "Wavelength in nm")
	zSlice     = flag.Int("z", -1, "z index of the slice to plot (-1 for the centre slice)")
	outPath    = flag.String("out", "pressure.html", "Output HTML path")
)

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
	field, err := st.ReadField(path, store.FieldInitialPressure)
	if err != nil {
		log.Fatalf("failed to read initial pressure: %v", err)
	}

	vol := field.Volume
	z := *zSlice
	if z < 0 {
		z = vol.Nz / 2
	}
	if z >= vol.Nz {
		log.Fatalf("z index %d out of range [0,%d)", z, vol.Nz)
	}

	data := make([]opts.HeatMapData, 0, vol.Nx*vol.Ny)
	maxVal := 0.0
	for x := 0; x < vol.Nx; x++ {
		for y := 0; y < vol.Ny; y++ {
			v := vol.At(x, y, z)
			if v > maxVal {
				maxVal = v
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{x, y, v}})
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	xAxis := make([]int, vol.Nx)
	for i := range xAxis {
		xAxis[i] = i
	}
	yAxis := make([]int, vol.Ny)
	for i := range yAxis {
		yAxis[i] = i
	}

	heatmap := charts.NewHeatMap()
	heatmap.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Initial Pressure", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Initial Pressure",
			Subtitle: fmt.Sprintf("run=%s wavelength=%dnm z=%d units=%s", *runID, *wavelength, z, field.Units),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "x (voxels)"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "y (voxels)", Data: yAxis}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxVal),
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#b5de2b", "#fde725"}},
		}),
	)
	heatmap.SetXAxis(xAxis)
	heatmap.AddSeries("initial_pressure", data)

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("failed to create output file: %v", err)
	}
	defer f.Close()

	if err := heatmap.Render(f); err != nil {
		log.Fatalf("failed to render chart: %v", err)
	}
	log.Printf("wrote %s", *outPath)
}
