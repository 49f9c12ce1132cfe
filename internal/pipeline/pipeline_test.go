package pipeline

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/lkeegan/simpa/internal/config"
	"github.com/lkeegan/simpa/internal/store"
	"github.com/lkeegan/simpa/internal/volume"
)

func pipelineSettings() *config.Settings {
	return &config.Settings{
		VolumeName:      "pipeline_test",
		RunID:           "run-pipeline",
		SpacingMM:       0.5,
		Wavelengths:     []int{800},
		ProbePositionMM: [3]float64{1, 1, 0},
		Model:           config.ModelStub,
		Illumination:    config.Illumination{Type: config.IlluminationPencil},
		PhotonCount:     1000,
		DatabasePath:    "test.db",
	}
}

func openPipelineStore(t *testing.T, runID string) *store.SQLiteStore {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "sim.db"), runID)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedPipelineProperties(t *testing.T, st *store.SQLiteStore, wavelengths ...int) {
	t.Helper()
	for _, wl := range wavelengths {
		mua, _ := volume.NewFilled(4, 4, 4, 2.0)
		mus, _ := volume.NewFilled(4, 4, 4, 50.0)
		g, _ := volume.NewFilled(4, 4, 4, 0.9)
		n, _ := volume.NewFilled(4, 4, 4, 1.4)
		gamma, _ := volume.NewFilled(4, 4, 4, 0.005)

		path := store.DataPath(store.KindSimulationProperties, wl, false)
		err := st.WriteFields(path, map[string]store.Field{
			store.FieldAbsorptionPerCM: {Volume: mua},
			store.FieldScatteringPerCM: {Volume: mus},
			store.FieldAnisotropy:      {Volume: g},
			store.FieldRefractiveIndex: {Volume: n},
			store.FieldGruneisen:       {Volume: gamma},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunnerRunsAllWavelengths(t *testing.T) {
	s := pipelineSettings()
	s.Wavelengths = []int{700, 800}
	st := openPipelineStore(t, s.RunID)
	seedPipelineProperties(t, st, 700, 800)

	runner := NewRunner(zap.NewNop())
	if err := runner.Run(s, st); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, wl := range s.Wavelengths {
		path := store.DataPath(store.KindOpticalOutput, wl, false)
		if _, err := st.ReadField(path, store.FieldFluence); err != nil {
			t.Errorf("wavelength %d: fluence missing: %v", wl, err)
		}
		if _, err := st.ReadField(path, store.FieldInitialPressure); err != nil {
			t.Errorf("wavelength %d: pressure missing: %v", wl, err)
		}
	}
}

func TestRunnerAbortsOnMissingInput(t *testing.T) {
	s := pipelineSettings()
	st := openPipelineStore(t, s.RunID)
	// No properties seeded.

	runner := NewRunner(zap.NewNop())
	err := runner.Run(s, st)
	if err == nil {
		t.Fatal("expected failure for missing simulation properties")
	}
	if !errors.Is(err, store.ErrFieldNotFound) {
		t.Errorf("error %v does not wrap ErrFieldNotFound", err)
	}
}

func TestRunnerValidatesSettings(t *testing.T) {
	s := pipelineSettings()
	s.SpacingMM = 0
	st := openPipelineStore(t, s.RunID)

	if err := NewRunner(zap.NewNop()).Run(s, st); err == nil {
		t.Fatal("invalid settings accepted")
	}
}

func TestAssignRunID(t *testing.T) {
	s := pipelineSettings()
	s.RunID = ""
	id := AssignRunID(s)
	if id == "" || s.RunID != id {
		t.Fatalf("run ID not assigned: %q", id)
	}

	s2 := pipelineSettings()
	if got := AssignRunID(s2); got != "run-pipeline" {
		t.Errorf("existing run ID replaced: %q", got)
	}
}

func TestGaussianNoiseStage(t *testing.T) {
	s := pipelineSettings()
	seed := int64(123)
	s.Noise = config.Noise{Enabled: true, StdDev: 1.0, Seed: &seed}
	st := openPipelineStore(t, s.RunID)
	seedPipelineProperties(t, st, 800)

	runner := NewRunner(zap.NewNop())
	if err := runner.Run(s, st); err != nil {
		t.Fatalf("Run: %v", err)
	}

	path := store.DataPath(store.KindOpticalOutput, 800, false)
	field, err := st.ReadField(path, store.FieldInitialPressure)
	if err != nil {
		t.Fatal(err)
	}

	// Clean stub output is uniformly 2*100=200; noise must perturb it.
	perturbed := false
	for _, x := range field.Volume.Data {
		if math.Abs(x-200.0) > 1e-9 {
			perturbed = true
			break
		}
	}
	if !perturbed {
		t.Error("noise stage left the pressure field untouched")
	}
}

func TestGaussianNoiseStageDeterministicSeed(t *testing.T) {
	run := func() []float64 {
		s := pipelineSettings()
		seed := int64(99)
		s.Noise = config.Noise{Enabled: true, StdDev: 0.5, Seed: &seed}
		st := openPipelineStore(t, s.RunID)
		seedPipelineProperties(t, st, 800)

		if err := NewRunner(zap.NewNop()).Run(s, st); err != nil {
			t.Fatal(err)
		}
		field, err := st.ReadField(store.DataPath(store.KindOpticalOutput, 800, false), store.FieldInitialPressure)
		if err != nil {
			t.Fatal(err)
		}
		return field.Volume.Data
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seeded noise differs at index %d: %g vs %g", i, a[i], b[i])
		}
	}
}

func TestNoiseStageDisabledIsNoop(t *testing.T) {
	s := pipelineSettings()
	st := openPipelineStore(t, s.RunID)
	seedPipelineProperties(t, st, 800)

	if err := NewRunner(zap.NewNop()).Run(s, st); err != nil {
		t.Fatal(err)
	}

	field, err := st.ReadField(store.DataPath(store.KindOpticalOutput, 800, false), store.FieldInitialPressure)
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range field.Volume.Data {
		if x != 200.0 {
			t.Fatalf("disabled noise stage changed the field: got %g, want 200", x)
		}
	}
}

func TestAcousticStageSkipsWithoutAdapter(t *testing.T) {
	ctx := &Context{Logger: zap.NewNop()}
	if err := (AcousticStage{}).Run(ctx); err != nil {
		t.Errorf("nil adapter should skip cleanly, got %v", err)
	}
}

type recordingAdapter struct {
	path string
}

func (r *recordingAdapter) Simulate(ctx *Context, initialPressurePath string) (string, error) {
	r.path = initialPressurePath
	return "", nil
}

func TestAcousticStageHandsOverPressurePath(t *testing.T) {
	adapter := &recordingAdapter{}
	ctx := &Context{Logger: zap.NewNop(), WavelengthNM: 800}
	if err := (AcousticStage{Adapter: adapter}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if want := store.DataPath(store.KindOpticalOutput, 800, false); adapter.path != want {
		t.Errorf("adapter got path %q, want %q", adapter.path, want)
	}
}
