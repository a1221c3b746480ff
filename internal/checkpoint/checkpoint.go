/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package checkpoint is an optional, outer-layer run spooler for the search
// CLI: it persists sequence-numbered trajectory chunks under a run id and
// reloads them. The search CLI spools its final, fully filtered result list
// as a single chunk, and --resume-run reloads that list instead of searching
// again; a search interrupted mid-run leaves nothing to resume from. The
// core (pkg/search, pkg/result) has no knowledge of this package and no
// persisted state of its own.
package checkpoint

/*****************************************************************************************************************/

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/observerly/kbmgo/pkg/result"
	"github.com/observerly/kbmgo/pkg/trajectory"
)

/*****************************************************************************************************************/

// RunID identifies one search invocation's spooled chunks.
type RunID string

/*****************************************************************************************************************/

// chunkRow is the gorm-mapped row persisted per spooled chunk.
type chunkRow struct {
	ID          string `gorm:"primaryKey"`
	RunID       string `gorm:"index"`
	SeqNo       int
	PayloadJSON string
	CreatedAt   time.Time
}

/*****************************************************************************************************************/

// Store wraps a SQLite-backed gorm.DB holding spooled search chunks.
type Store struct {
	db *gorm.DB
}

/*****************************************************************************************************************/

// Open opens (creating if necessary) a SQLite file at path and migrates its
// schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: failed to open %s: %w", path, err)
	}

	if err := db.AutoMigrate(&chunkRow{}); err != nil {
		return nil, fmt.Errorf("checkpoint: failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

/*****************************************************************************************************************/

// NewRun mints a fresh, time-ordered ULID run identifier. Each call uses its
// own entropy source, so two ids minted in the same millisecond are not
// ordered relative to each other.
func (s *Store) NewRun() RunID {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return RunID(id.String())
}

/*****************************************************************************************************************/

// SpoolChunk persists one batch of trajectories, of any size, tagged with
// its run and sequence number.
func (s *Store) SpoolChunk(run RunID, seq int, trajectories []trajectory.Trajectory) error {
	payload, err := json.Marshal(trajectories)
	if err != nil {
		return fmt.Errorf("checkpoint: failed to marshal chunk: %w", err)
	}

	entropy := ulid.Monotonic(rand.Reader, 0)
	row := chunkRow{
		ID:          ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String(),
		RunID:       string(run),
		SeqNo:       seq,
		PayloadJSON: string(payload),
		CreatedAt:   time.Now(),
	}

	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("checkpoint: failed to spool chunk %d for run %s: %w", seq, run, err)
	}

	return nil
}

/*****************************************************************************************************************/

// Resume reloads every spooled chunk for run, in sequence order, and returns
// the result.List they build along with the next unused sequence number.
func (s *Store) Resume(run RunID) (result.List, int, error) {
	var rows []chunkRow
	if err := s.db.Where("run_id = ?", string(run)).Order("seq_no asc").Find(&rows).Error; err != nil {
		return result.List{}, 0, fmt.Errorf("checkpoint: failed to load chunks for run %s: %w", run, err)
	}

	var all []trajectory.Trajectory
	nextSeq := 0

	for _, row := range rows {
		var chunk []trajectory.Trajectory
		if err := json.Unmarshal([]byte(row.PayloadJSON), &chunk); err != nil {
			return result.List{}, 0, fmt.Errorf("checkpoint: failed to unmarshal chunk %d: %w", row.SeqNo, err)
		}
		all = append(all, chunk...)
		if row.SeqNo >= nextSeq {
			nextSeq = row.SeqNo + 1
		}
	}

	return result.NewList(all), nextSeq, nil
}

/*****************************************************************************************************************/
