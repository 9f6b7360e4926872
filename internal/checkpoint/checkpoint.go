// Package checkpoint persists progress snapshots of a run. Snapshots are
// written for operators and never read back automatically.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"

	"github.com/sells-group/pubenrich/internal/config"
	"github.com/sells-group/pubenrich/internal/dataset"
	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/resilience"
)

// DefaultPrefix names snapshot files when none is configured.
const DefaultPrefix = "publications_progress"

// Store writes snapshots and failure reports. Implementations return the
// location written.
type Store interface {
	Save(ctx context.Context, runID string, processed int, pubs []model.Publication) (string, error)
	SaveFailures(ctx context.Context, runID string, failures []resilience.Failure) (string, error)
}

// FileStore writes snapshots as <dir>/<prefix>_<run>_<processed>.json, so a
// resumed run never overwrites an earlier run's snapshots.
type FileStore struct {
	ds     *dataset.Store
	dir    string
	prefix string
}

// NewFileStore returns a FileStore rooted at dir. An empty dir means the
// working directory.
func NewFileStore(ds *dataset.Store, dir, prefix string) *FileStore {
	if ds == nil {
		ds = dataset.New(nil)
	}
	if dir == "" {
		dir = "."
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &FileStore{ds: ds, dir: dir, prefix: prefix}
}

// SnapshotName returns the file name for a run's snapshot at processed
// records. An empty runID gives <prefix>_<processed>.json.
func SnapshotName(prefix, runID string, processed int) string {
	if runID == "" {
		return fmt.Sprintf("%s_%d.json", prefix, processed)
	}
	return fmt.Sprintf("%s_%s_%d.json", prefix, runID, processed)
}

// FailuresName returns the file name of a run's failure report.
func FailuresName(runID string) string {
	return "failures_" + runID + ".json"
}

// Path returns where a run's snapshot for processed records is written.
func (s *FileStore) Path(runID string, processed int) string {
	return filepath.Join(s.dir, SnapshotName(s.prefix, runID, processed))
}

// Save writes the full working set atomically.
func (s *FileStore) Save(_ context.Context, runID string, processed int, pubs []model.Publication) (string, error) {
	path := s.Path(runID, processed)
	if err := s.ds.Save(path, pubs); err != nil {
		return "", eris.Wrapf(err, "checkpoint: save %s", path)
	}
	return path, nil
}

// SaveFailures writes the failure report next to the snapshots.
func (s *FileStore) SaveFailures(_ context.Context, runID string, failures []resilience.Failure) (string, error) {
	if failures == nil {
		failures = []resilience.Failure{}
	}
	path := filepath.Join(s.dir, FailuresName(runID))
	if err := s.ds.WriteJSON(path, failures); err != nil {
		return "", eris.Wrapf(err, "checkpoint: save failures %s", path)
	}
	return path, nil
}

// LoadFailures reads a failure report written by SaveFailures.
func LoadFailures(ds *dataset.Store, path string) ([]resilience.Failure, error) {
	if ds == nil {
		ds = dataset.New(nil)
	}
	data, err := afero.ReadFile(ds.Fs(), path)
	if err != nil {
		return nil, eris.Wrapf(err, "checkpoint: read failures %s", path)
	}
	var failures []resilience.Failure
	if err := json.Unmarshal(data, &failures); err != nil {
		return nil, eris.Wrapf(err, "checkpoint: parse failures %s", path)
	}
	return failures, nil
}

// FailureIndices returns the dataset positions of failures in report order.
func FailureIndices(failures []resilience.Failure) []int {
	out := make([]int, 0, len(failures))
	for _, f := range failures {
		out = append(out, f.Index)
	}
	return out
}

// FromConfig builds the configured store: files under checkpoint.dir,
// mirrored to S3 when checkpoint.s3_bucket is set.
func FromConfig(ctx context.Context, cfg config.CheckpointConfig, ds *dataset.Store) (Store, error) {
	local := NewFileStore(ds, cfg.Dir, cfg.Prefix)
	if strings.TrimSpace(cfg.S3Bucket) == "" {
		return local, nil
	}
	client, err := NewS3Client(ctx, cfg.S3Region)
	if err != nil {
		return nil, err
	}
	return NewMirror(local, ds, client, cfg.S3Bucket, cfg.S3Prefix), nil
}
