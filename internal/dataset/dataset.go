// Package dataset reads and writes the canonical publication dataset.
// Every write goes to a temp file in the target directory, is synced and
// then renamed over the target.
package dataset

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/pubenrich/internal/model"
)

// ErrEmptyPath is returned when no dataset path is configured.
var ErrEmptyPath = eris.New("dataset: path is empty")

// Store performs dataset IO on a filesystem.
type Store struct {
	fs afero.Fs
}

// New returns a Store backed by fs. A nil fs means the OS filesystem.
func New(fs afero.Fs) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs}
}

// Fs exposes the underlying filesystem.
func (s *Store) Fs() afero.Fs { return s.fs }

// Load reads a JSON array of publications. A missing or unparseable file is
// an error: there is nothing safe to process.
func (s *Store) Load(path string) ([]model.Publication, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	var pubs []model.Publication
	if err := json.Unmarshal(data, &pubs); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}
	zap.L().Debug("dataset: loaded", zap.String("path", path), zap.Int("records", len(pubs)))
	return pubs, nil
}

// Save writes pubs to path atomically.
func (s *Store) Save(path string, pubs []model.Publication) error {
	if pubs == nil {
		pubs = []model.Publication{}
	}
	return s.WriteJSON(path, pubs)
}

// WriteJSON encodes v with two-space indentation and no HTML escaping and
// writes it to path atomically. Missing parent directories are created.
func (s *Store) WriteJSON(path string, v any) error {
	if path == "" {
		return ErrEmptyPath
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrapf(err, "dataset: encode %s", path)
	}
	return s.WriteFile(path, buf.Bytes())
}

// WriteFile writes data to path via temp file, fsync and rename. The target
// is never left partially written.
func (s *Store) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create dir %s", dir)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "dataset: create temp for %s", path)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrapf(err, "dataset: write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrapf(err, "dataset: sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return eris.Wrapf(err, "dataset: close %s", tmpName)
	}
	if err := s.fs.Chmod(tmpName, 0o644); err != nil {
		zap.L().Debug("dataset: chmod temp file", zap.String("path", tmpName), zap.Error(err))
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		cleanup()
		return eris.Wrapf(err, "dataset: rename %s", path)
	}
	return nil
}

// Backup copies the bytes of src to dst unchanged. A missing src is not an
// error; there is nothing to back up and ok is false.
func (s *Store) Backup(src, dst string) (ok bool, err error) {
	if src == "" || dst == "" {
		return false, ErrEmptyPath
	}
	data, err := afero.ReadFile(s.fs, src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, eris.Wrapf(err, "dataset: read %s for backup", src)
	}
	if err := s.WriteFile(dst, data); err != nil {
		return false, eris.Wrap(err, "dataset: write backup")
	}
	return true, nil
}
