package optics

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/lkeegan/simpa/internal/config"
	"github.com/lkeegan/simpa/internal/store"
	"github.com/lkeegan/simpa/internal/units"
	"github.com/lkeegan/simpa/internal/volume"
)

func TestNewEngineRejectsUnknownModel(t *testing.T) {
	s := testSettings()
	s.Model = "mcml"
	if _, err := NewEngine(s); err == nil {
		t.Fatal("unknown model accepted")
	}
}

func TestNewEngineBackends(t *testing.T) {
	tests := []struct {
		model config.Model
	}{
		{config.ModelMCX},
		{config.ModelMCXYZ},
		{config.ModelStub},
	}
	for _, tt := range tests {
		t.Run(string(tt.model), func(t *testing.T) {
			s := testSettings()
			s.Model = tt.model
			s.EngineBinaryPath = "/opt/mcx/bin/mcx"
			if _, err := NewEngine(s); err != nil {
				t.Errorf("NewEngine(%s): %v", tt.model, err)
			}
		})
	}
}

func TestStubEngineDeterministic(t *testing.T) {
	s := testSettings()
	cfg, err := BuildEngineConfig(testProperties(t, 3, 3, 3), testIlluminator(t, s), s)
	if err != nil {
		t.Fatal(err)
	}

	res, err := StubEngine{}.Run(cfg)
	if err != nil {
		t.Fatalf("StubEngine.Run: %v", err)
	}
	if got := res.Flux.Shape(); got != [4]int{3, 3, 3, 1} {
		t.Fatalf("flux shape = %v, want (3,3,3,1)", got)
	}
	for _, x := range res.Flux.Data {
		if x != 1.0 {
			t.Fatalf("stub flux sample = %g, want 1", x)
		}
	}
}

func openForwardStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "sim.db"), "forward-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedProperties(t *testing.T, st *store.SQLiteStore, wavelengthNM int, gruneisenValue float64) {
	t.Helper()
	mua, _ := volume.NewFilled(4, 4, 4, 2.0)
	mus, _ := volume.NewFilled(4, 4, 4, 50.0)
	g, _ := volume.NewFilled(4, 4, 4, 0.9)
	n, _ := volume.NewFilled(4, 4, 4, 1.4)
	gamma, _ := volume.NewFilled(4, 4, 4, gruneisenValue)

	path := store.DataPath(store.KindSimulationProperties, wavelengthNM, false)
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

func TestRunForwardModel(t *testing.T) {
	st := openForwardStore(t)
	seedProperties(t, st, 800, 0.005)

	s := testSettings()
	energy := 10.0
	s.PulseEnergyMJ = &energy

	outPath, err := RunForwardModel(s, st, 800, zap.NewNop())
	if err != nil {
		t.Fatalf("RunForwardModel: %v", err)
	}
	if want := store.DataPath(store.KindOpticalOutput, 800, false); outPath != want {
		t.Errorf("output path = %q, want %q", outPath, want)
	}

	fluence, err := st.ReadField(outPath, store.FieldFluence)
	if err != nil {
		t.Fatalf("fluence not written: %v", err)
	}
	// Stub flux of 1 rescaled to 100 J/cm^2.
	if math.Abs(fluence.Volume.At(0, 0, 0)-100.0) > 1e-9 {
		t.Errorf("fluence = %g, want 100", fluence.Volume.At(0, 0, 0))
	}

	pressure, err := st.ReadField(outPath, store.FieldInitialPressure)
	if err != nil {
		t.Fatalf("initial pressure not written: %v", err)
	}
	if pressure.Units != units.PressurePa {
		t.Errorf("pressure units = %q, want %q", pressure.Units, units.PressurePa)
	}
	// 2.0 * 100 * 0.005 * (10/1000) * 1e6 = 10000 Pa.
	if math.Abs(pressure.Volume.At(1, 1, 1)-10000.0) > 1e-6 {
		t.Errorf("pressure = %g, want 10000", pressure.Volume.At(1, 1, 1))
	}
}

func TestRunForwardModelMissingFieldAbortsStage(t *testing.T) {
	st := openForwardStore(t)
	// No properties written at all.

	s := testSettings()
	_, err := RunForwardModel(s, st, 800, zap.NewNop())
	if err == nil {
		t.Fatal("expected lookup error")
	}
	if !errors.Is(err, store.ErrFieldNotFound) {
		t.Errorf("error %v does not wrap ErrFieldNotFound", err)
	}

	// No partial output may be written.
	outPath := store.DataPath(store.KindOpticalOutput, 800, false)
	if _, err := st.ReadField(outPath, store.FieldFluence); !errors.Is(err, store.ErrFieldNotFound) {
		t.Error("stage wrote partial output despite lookup failure")
	}
}

func TestRunForwardModelQACheck(t *testing.T) {
	st := openForwardStore(t)
	seedProperties(t, st, 800, math.NaN())

	s := testSettings()
	energy := 10.0
	s.PulseEnergyMJ = &energy

	_, err := RunForwardModel(s, st, 800, zap.NewNop())
	if err == nil {
		t.Fatal("NaN pressure field passed the sanity check")
	}
	if !strings.Contains(err.Error(), store.FieldInitialPressure) {
		t.Errorf("error %q does not identify the offending field", err)
	}

	// The diagnostic bypass suppresses the check.
	s.IgnoreQAChecks = true
	if _, err := RunForwardModel(s, st, 800, zap.NewNop()); err != nil {
		t.Errorf("bypass flag did not suppress the sanity check: %v", err)
	}
}

func TestRunForwardModelUnknownGeometry(t *testing.T) {
	st := openForwardStore(t)
	seedProperties(t, st, 800, 0.005)

	s := testSettings()
	s.Illumination = config.Illumination{Type: "cone"}
	if _, err := RunForwardModel(s, st, 800, zap.NewNop()); err == nil {
		t.Fatal("unknown illumination type accepted")
	}
}
