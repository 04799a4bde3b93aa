package tagtree

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type Options struct {
	Compression Compression

	// MaxDepth defaults to DefaultMaxDepth.
	MaxDepth int

	// Extensions declares payload shapes of non-standard kinds, which are then
	// loaded as Raw values and saved back unchanged.
	Extensions map[Kind]Shape

	// DetachedSaveNoop makes Save on a File without storage succeed without
	// doing anything, instead of returning ErrNoStorage.
	DetachedSaveNoop bool

	// Logger defaults to slog.Default().
	Logger  *slog.Logger
	Verbose bool
}

// File is a tree persisted in a Storage.
//
// Changes made through Root are kept in memory until Save. Any number of
// goroutines may traverse the root concurrently while no Save or Reload is in
// flight; Read and Update coordinate with them explicitly. Locking is per
// File, so files backed by different storages never contend.
type File struct {
	storage Storage
	opt     Options
	logger  *slog.Logger

	lock     sync.RWMutex
	root     atomic.Pointer[Compound]
	rootName string
}

// Open loads the tree stored in s. If s holds nothing yet, Open starts with an
// empty root and saves it right away, so the storage exists once Open
// succeeds. Undecodable contents fail with ErrCorruptData; they are never
// replaced by an empty tree.
func Open(s Storage, opt Options) (*File, error) {
	f := newFile(s, opt)
	name, root, err := f.load()
	if errors.Is(err, fs.ErrNotExist) {
		f.logger.Debug("tagtree: creating", "storage", s.String())
		f.setRoot(NewCompound(), "")
		f.lock.Lock()
		defer f.lock.Unlock()
		if err := f.saveLocked(); err != nil {
			return nil, err
		}
		return f, nil
	} else if err != nil {
		return nil, err
	}
	f.setRoot(root, name)
	return f, nil
}

// OpenFile opens a tree stored in the file at path. See Open.
func OpenFile(path string, opt Options) (*File, error) {
	return Open(NewFileStorage(path), opt)
}

// New returns a File over an in-memory root with no storage. A nil root
// starts an empty tree. The root must not already belong to another tree or
// File.
func New(root *Compound, opt Options) (*File, error) {
	if root == nil {
		root = NewCompound()
	}
	if root.parent != nil {
		return nil, ErrAlreadyOwned
	}
	f := newFile(nil, opt)
	f.setRoot(root, "")
	return f, nil
}

func newFile(s Storage, opt Options) *File {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &File{
		storage: s,
		opt:     opt,
		logger:  logger,
	}
}

// Root returns the current root compound without taking any lock. After
// Reload, previously returned roots are detached and no longer saved.
func (f *File) Root() *Compound {
	return f.root.Load()
}

// RootName returns the name of the root compound as stored. It is empty for
// trees written by this package.
func (f *File) RootName() string {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.rootName
}

// Storage returns the backing storage, or nil for a detached File.
func (f *File) Storage() Storage {
	return f.storage
}

// Read calls fn with the root while holding the shared lock, so that no Save,
// Reload or Update runs concurrently. fn must not modify the tree.
func (f *File) Read(fn func(root *Compound) error) error {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return fn(f.root.Load())
}

// Update calls fn with the root while holding the exclusive lock. It does not
// save.
func (f *File) Update(fn func(root *Compound) error) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	return fn(f.root.Load())
}

// Save encodes the root and atomically replaces the stored contents. If Save
// fails, the previously stored contents are left intact.
func (f *File) Save() error {
	if f.storage == nil {
		if f.opt.DetachedSaveNoop {
			return nil
		}
		return ErrNoStorage
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.saveLocked()
}

// Reload replaces the in-memory root with the stored tree. Unsaved changes
// are discarded; this cannot be undone. On failure the current root is kept.
func (f *File) Reload() error {
	if f.storage == nil {
		return ErrNoStorage
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	name, root, err := f.load()
	if err != nil {
		return err
	}
	release(f.root.Load())
	f.setRootLocked(root, name)
	f.logger.Debug("tagtree: reloaded", "storage", f.storage.String())
	return nil
}

func (f *File) setRoot(root *Compound, name string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.setRootLocked(root, name)
}

func (f *File) setRootLocked(root *Compound, name string) {
	ensure(adopt(f, root))
	f.root.Store(root)
	f.rootName = name
}

func (f *File) encodeOptions() EncodeOptions {
	return EncodeOptions{
		RootName:   f.rootName,
		MaxDepth:   f.opt.MaxDepth,
		Extensions: f.opt.Extensions,
	}
}

func (f *File) decodeOptions() DecodeOptions {
	return DecodeOptions{
		Compression: f.opt.Compression,
		MaxDepth:    f.opt.MaxDepth,
		Extensions:  f.opt.Extensions,
	}
}

func (f *File) saveLocked() error {
	start := time.Now()
	buf := encodeBufPool.Get().([]byte)
	defer func() { releaseEncodeBuf(buf) }()

	var err error
	buf, err = AppendMarshal(buf, f.root.Load(), f.encodeOptions())
	if err != nil {
		return err
	}
	data := buf
	if f.opt.Compression != None {
		var out bytes.Buffer
		if err := f.opt.Compression.compress(&out, buf); err != nil {
			return err
		}
		data = out.Bytes()
	}

	if err := f.storage.Replace(data); err != nil {
		return ioErr("save", f.storage, err)
	}

	if f.opt.Verbose {
		f.logger.Info("tagtree: saved", "storage", f.storage.String(), "bytes", len(data), "dur", time.Since(start))
	} else {
		f.logger.Debug("tagtree: saved", "storage", f.storage.String(), "bytes", len(data), "dur", time.Since(start))
	}
	return nil
}

func (f *File) load() (string, *Compound, error) {
	start := time.Now()
	var (
		name      string
		root      *Compound
		decodeErr error
		size      int
	)
	err := f.storage.Read(func(data []byte) error {
		size = len(data)
		name, root, decodeErr = UnmarshalNamed(data, f.decodeOptions())
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCorruptData) {
			return "", nil, err
		}
		return "", nil, ioErr("load", f.storage, err)
	}
	if decodeErr != nil {
		return "", nil, decodeErr
	}
	f.logger.Debug("tagtree: loaded", "storage", f.storage.String(), "bytes", size, "entries", root.Len(), "dur", time.Since(start))
	return name, root, nil
}

// ReadFile decodes the tree stored at path. A missing file yields an empty
// compound.
func ReadFile(path string, opt Options) (*Compound, error) {
	var root *Compound
	err := NewFileStorage(path).Read(func(data []byte) error {
		var err error
		_, root, err = UnmarshalNamed(data, DecodeOptions{
			Compression: opt.Compression,
			MaxDepth:    opt.MaxDepth,
			Extensions:  opt.Extensions,
		})
		return err
	})
	if errors.Is(err, fs.ErrNotExist) {
		return NewCompound(), nil
	} else if errors.Is(err, ErrCorruptData) || errors.Is(err, ErrUnsupportedTag) {
		return nil, err
	} else if err != nil {
		return nil, ioErr("read", NewFileStorage(path), err)
	}
	return root, nil
}

// WriteFile atomically replaces the file at path with the encoding of root,
// creating parent directories as needed.
func WriteFile(path string, root *Compound, opt Options) error {
	var buf bytes.Buffer
	err := Encode(&buf, root, EncodeOptions{
		Compression: opt.Compression,
		MaxDepth:    opt.MaxDepth,
		Extensions:  opt.Extensions,
	})
	if err != nil {
		return err
	}
	s := NewFileStorage(path)
	if err := s.Replace(buf.Bytes()); err != nil {
		return ioErr("write", s, err)
	}
	return nil
}
