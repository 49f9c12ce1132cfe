package optics

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/lkeegan/simpa/internal/volume"
)

// binaryEngine invokes the external photon-transport binary. The exchange
// protocol is file based: a JSON session file plus a raw float32 volume file
// go in, a raw float32 flux file comes back. The call is blocking and
// synchronous; engine failures (including GPU allocation failures) propagate
// unchanged.
type binaryEngine struct {
	binaryPath string
	// scratchDir holds the transient exchange files; empty selects the
	// system temp dir. One subdirectory is created per invocation and
	// removed afterwards.
	scratchDir string
}

const sessionID = "simpa"

// sessionFile mirrors the engine's JSON input schema.
type sessionFile struct {
	Session struct {
		ID          string `json:"ID"`
		Photons     int64  `json:"Photons"`
		RNGSeed     *int64 `json:"RNGSeed,omitempty"`
		DoNormalize int    `json:"DoNormalize"`
	} `json:"Session"`
	Forward struct {
		T0 float64 `json:"T0"`
		T1 float64 `json:"T1"`
		Dt float64 `json:"Dt"`
	} `json:"Forward"`
	Domain struct {
		VolumeFile  string  `json:"VolumeFile"`
		MediaFormat string  `json:"MediaFormat"`
		LengthUnit  float64 `json:"LengthUnit"`
		Dim         [3]int  `json:"Dim"`
		OriginType  int     `json:"OriginType"`
	} `json:"Domain"`
	Optode struct {
		Source struct {
			Type   string     `json:"Type"`
			Pos    [3]float64 `json:"Pos"`
			Dir    [3]float64 `json:"Dir"`
			Param1 [4]float64 `json:"Param1"`
			Param2 [4]float64 `json:"Param2"`
		} `json:"Source"`
	} `json:"Optode"`
}

// Run implements Engine.
func (e *binaryEngine) Run(cfg *EngineConfig) (Result, error) {
	dir, err := os.MkdirTemp(e.scratchDir, "simpa-engine-")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create engine scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	volumeFile := filepath.Join(dir, "volume.bin")
	if err := writeVolumeFile(volumeFile, cfg.Volume); err != nil {
		return Result{}, err
	}

	sessionPath := filepath.Join(dir, "input.json")
	if err := writeSessionFile(sessionPath, volumeFile, cfg); err != nil {
		return Result{}, err
	}

	cmd := exec.Command(e.binaryPath, "-f", sessionPath, "--outputformat", "mc2")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return Result{}, fmt.Errorf("engine %s failed: %w (output: %s)", e.binaryPath, err, out)
	}

	flux, err := readFluxFile(filepath.Join(dir, sessionID+".mc2"),
		cfg.Volume.Nx, cfg.Volume.Ny, cfg.Volume.Nz, cfg.Frames)
	if err != nil {
		return Result{}, err
	}
	return Result{Flux: flux}, nil
}

func writeSessionFile(path, volumeFile string, cfg *EngineConfig) error {
	var s sessionFile
	s.Session.ID = sessionID
	s.Session.Photons = cfg.PhotonCount
	if cfg.Seed != nil {
		seed := *cfg.Seed
		s.Session.RNGSeed = &seed
	}
	s.Session.DoNormalize = 1
	s.Forward.T0 = 0
	s.Forward.T1 = cfg.TotalTimeNS * 1e-9
	s.Forward.Dt = cfg.TimeStepNS * 1e-9
	s.Domain.VolumeFile = volumeFile
	s.Domain.MediaFormat = "asgn_float"
	s.Domain.LengthUnit = cfg.UnitInMM
	s.Domain.Dim = [3]int{cfg.Volume.Nx, cfg.Volume.Ny, cfg.Volume.Nz}
	s.Domain.OriginType = 1
	s.Optode.Source.Type = cfg.Source.Type
	s.Optode.Source.Pos = cfg.Source.Pos
	s.Optode.Source.Dir = cfg.Source.Dir
	s.Optode.Source.Param1 = cfg.Source.Param1
	s.Optode.Source.Param2 = cfg.Source.Param2

	data, err := json.MarshalIndent(&s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode engine session: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write engine session file: %w", err)
	}
	return nil
}

// writeVolumeFile serialises the stacked property volume as little-endian
// float32 in the engine's 4-channel layout.
func writeVolumeFile(path string, vol *volume.Volume4) error {
	buf := make([]byte, 4*len(vol.Data))
	for i, x := range vol.Data {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(x)))
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to write engine volume file: %w", err)
	}
	return nil
}

// readFluxFile parses the engine's raw float32 flux output and checks that
// its size matches the configured volume and frame count.
func readFluxFile(path string, nx, ny, nz, frames int) (*volume.Volume4, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine flux output: %w", err)
	}
	want := 4 * nx * ny * nz * frames
	if len(blob) != want {
		return nil, fmt.Errorf("engine flux output has %d bytes, expected %d for (%d,%d,%d,%d)",
			len(blob), want, nx, ny, nz, frames)
	}
	data := make([]float64, nx*ny*nz*frames)
	for i := range data {
		data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:])))
	}
	return volume.FromData4(nx, ny, nz, frames, data)
}
