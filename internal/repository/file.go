package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/varoOP/electrorss/internal/domain"
)

// FileRepository implements domain.SnapshotRepository and
// domain.StateRepository on top of flat JSON files. Writes go through a
// temp file plus rename so a reader never sees a partial snapshot.
type FileRepository struct {
	log   zerolog.Logger
	paths *domain.Paths
}

// NewFileRepository creates a new file-based repository
func NewFileRepository(log zerolog.Logger, paths *domain.Paths) *FileRepository {
	return &FileRepository{
		log:   log.With().Str("module", "repository").Logger(),
		paths: paths,
	}
}

// Ensure FileRepository implements both interfaces
var _ domain.SnapshotRepository = (*FileRepository)(nil)
var _ domain.StateRepository = (*FileRepository)(nil)

// LoadSnapshot reads the persisted item list. A missing or corrupt file
// yields an empty snapshot, never an error.
func (r *FileRepository) LoadSnapshot(ctx context.Context) []domain.Item {
	items := []domain.Item{}
	if err := r.readJSON(r.paths.SnapshotPath, &items); err != nil {
		r.log.Debug().Err(err).Str("path", r.paths.SnapshotPath).Msg("no usable snapshot, starting empty")
		return []domain.Item{}
	}
	return items
}

// StoreSnapshot atomically replaces the persisted item list.
func (r *FileRepository) StoreSnapshot(ctx context.Context, items []domain.Item) error {
	if err := r.writeJSON(r.paths.SnapshotPath, items); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	r.log.Debug().Str("path", r.paths.SnapshotPath).Int("count", len(items)).Msg("stored snapshot")
	return nil
}

// LoadState reads per-feed conditional metadata. A missing or corrupt
// file yields an empty state.
func (r *FileRepository) LoadState(ctx context.Context) domain.FeedState {
	state := domain.FeedState{}
	if err := r.readJSON(r.paths.StatePath, &state); err != nil {
		r.log.Debug().Err(err).Str("path", r.paths.StatePath).Msg("no usable feed state, starting empty")
		return domain.FeedState{}
	}
	return state
}

// StoreState atomically replaces the persisted feed state.
func (r *FileRepository) StoreState(ctx context.Context, state domain.FeedState) error {
	if err := r.writeJSON(r.paths.StatePath, state); err != nil {
		return fmt.Errorf("failed to store feed state: %w", err)
	}
	r.log.Debug().Str("path", r.paths.StatePath).Int("feeds", len(state)).Msg("stored feed state")
	return nil
}

func (r *FileRepository) readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (r *FileRepository) writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
