package tagtree

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/andreyvit/tagtree/mmap"
)

const (
	defaultFilePerm = 0o644
	defaultDirPerm  = 0o755
)

// FileStorage stores a tree in a single file. Replace writes a temporary file
// next to the target and renames it over the target, so readers never see a
// partially written file.
type FileStorage struct {
	Path string

	// Perm applies to newly created files. Defaults to 0644. Existing files
	// keep their permissions.
	Perm fs.FileMode

	// Mmap makes Read map the file into memory instead of reading it.
	Mmap bool
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{Path: path}
}

func (s *FileStorage) Read(fn func(data []byte) error) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !s.Mmap {
		data, err := io.ReadAll(f)
		if err != nil {
			return err
		}
		return fn(data)
	}

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.Size() == 0 {
		return fn(nil)
	}
	data, err := mmap.Map(f, int(st.Size()), mmap.SequentialAccess)
	if err != nil {
		return err
	}
	err = fn(data)
	return errors.Join(err, mmap.Unmap(data))
}

func (s *FileStorage) Replace(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), defaultDirPerm); err != nil {
		return err
	}
	_, statErr := os.Stat(s.Path)
	if !errors.Is(statErr, fs.ErrNotExist) {
		return atomic.WriteFile(s.Path, bytes.NewReader(data))
	}

	perm := s.Perm
	if perm == 0 {
		perm = defaultFilePerm
	}
	tmp, err := writeTemp(s.Path, data, perm)
	if err != nil {
		return err
	}
	if err := atomic.ReplaceFile(tmp, s.Path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// writeTemp writes data into a new file next to path, with perm applied
// before anything becomes visible under path.
func writeTemp(path string, data []byte, perm fs.FileMode) (string, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, base)
	if err != nil {
		return "", err
	}
	name := f.Name()
	err = f.Chmod(perm)
	if err == nil {
		_, err = f.Write(data)
	}
	if err == nil {
		err = f.Sync()
	}
	err = errors.Join(err, f.Close())
	if err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func (s *FileStorage) String() string {
	return s.Path
}
