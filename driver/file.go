// Package driver is the concrete, optional implementation behind
// snapshot.Source: an on-disk file at dir/dbfilename, guarded by an
// advisory lock so two processes never read or write it at once.
package driver

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// FileSource is a snapshot.Source backed by the single file dir/name
// (the server passes dbfilename+public.SnapshotFileSuffix as name),
// with a sibling ".flock" lock file
// serializing access across processes.
type FileSource struct {
	path string
	lock *flock.Flock
}

func NewFileSource(dir, name string) *FileSource {
	path := filepath.Join(dir, name)
	return &FileSource{
		path: path,
		lock: flock.New(path + ".flock"),
	}
}

// Load returns the snapshot file's contents, or a nil, empty payload if it
// does not exist yet.
func (s *FileSource) Load() ([]byte, error) {
	locked, err := s.lock.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "driver: acquire snapshot lock")
	}
	if !locked {
		return nil, errors.New("driver: snapshot file is locked by another process")
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "driver: read snapshot %s", s.path)
	}
	return data, nil
}

// Save atomically overwrites the snapshot file with data, creating dir if
// needed.
func (s *FileSource) Save(data []byte) error {
	locked, err := s.lock.TryLock()
	if err != nil {
		return errors.Wrap(err, "driver: acquire snapshot lock")
	}
	if !locked {
		return errors.New("driver: snapshot file is locked by another process")
	}
	defer s.lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "driver: create snapshot dir for %s", s.path)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "driver: write snapshot %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(err, "driver: finalize snapshot %s", s.path)
	}
	return nil
}
