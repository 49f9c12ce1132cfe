package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/lkeegan/simpa/internal/volume"
)

// SQLiteStore persists fields in a single SQLite database. Each row holds
// one array keyed by (run, path, name) with its dimensions and unit tag.
type SQLiteStore struct {
	db    *sql.DB
	runID string
}

// Open opens (or creates) the store at path and applies any pending schema
// migrations. All reads and writes are scoped to the given run ID.
func Open(path, runID string) (*SQLiteStore, error) {
	if runID == "" {
		return nil, fmt.Errorf("run ID must not be empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, runID: runID}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RunID returns the run this store handle is scoped to.
func (s *SQLiteStore) RunID() string { return s.runID }

// ReadField loads one named field at the given path.
func (s *SQLiteStore) ReadField(path, name string) (Field, error) {
	row := s.db.QueryRow(
		`SELECT nx, ny, nz, units, data FROM fields WHERE run_id = ? AND path = ? AND name = ?`,
		s.runID, path, name)

	var nx, ny, nz int
	var units string
	var blob []byte
	if err := row.Scan(&nx, &ny, &nz, &units, &blob); err != nil {
		if err == sql.ErrNoRows {
			return Field{}, fmt.Errorf("%w: %s at %s", ErrFieldNotFound, name, path)
		}
		return Field{}, fmt.Errorf("failed to read field %s at %s: %w", name, path, err)
	}

	vol, err := decodeVolume(nx, ny, nz, blob)
	if err != nil {
		return Field{}, fmt.Errorf("failed to decode field %s at %s: %w", name, path, err)
	}
	return Field{Volume: vol, Units: units}, nil
}

// WriteFields stores all given fields at the path in one transaction, so a
// failed stage never leaves partial output behind.
func (s *SQLiteStore) WriteFields(path string, fields map[string]Field) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin write transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO fields (run_id, path, name, nx, ny, nz, units, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare field insert: %w", err)
	}
	defer stmt.Close()

	for name, f := range fields {
		if f.Volume == nil {
			return fmt.Errorf("field %s at %s has no volume", name, path)
		}
		if _, err := stmt.Exec(s.runID, path, name,
			f.Volume.Nx, f.Volume.Ny, f.Volume.Nz, f.Units, encodeVolume(f.Volume)); err != nil {
			return fmt.Errorf("failed to write field %s at %s: %w", name, path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fields at %s: %w", path, err)
	}
	return nil
}

// encodeVolume serialises samples as little-endian float64, the same layout
// the volume holds in memory.
func encodeVolume(v *volume.Volume) []byte {
	buf := make([]byte, 8*len(v.Data))
	for i, x := range v.Data {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
	}
	return buf
}

func decodeVolume(nx, ny, nz int, blob []byte) (*volume.Volume, error) {
	if len(blob) != 8*nx*ny*nz {
		return nil, fmt.Errorf("blob length %d does not match dimensions (%d,%d,%d)", len(blob), nx, ny, nz)
	}
	data := make([]float64, nx*ny*nz)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[8*i:]))
	}
	return volume.FromData(nx, ny, nz, data)
}
