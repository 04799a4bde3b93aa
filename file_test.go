package tagtree

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"go.etcd.io/bbolt"
)

func openBolt(t testing.TB) *bbolt.DB {
	t.Helper()
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "trees.db"), 0o600, nil)
	if err != nil {
		t.Fatalf("bbolt.Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testStorages(t *testing.T) map[string]func() Storage {
	dir := t.TempDir()
	mem := NewMemStorage(nil)
	db := openBolt(t)
	return map[string]func() Storage{
		"mem":  func() Storage { return mem },
		"file": func() Storage { return NewFileStorage(filepath.Join(dir, "plain", "level.dat")) },
		"mmap": func() Storage {
			return &FileStorage{Path: filepath.Join(dir, "mapped", "level.dat"), Mmap: true}
		},
		"bolt": func() Storage { return NewBoltStorage(db, "worlds", "overworld") },
	}
}

func TestFile_Durability(t *testing.T) {
	for _, c := range []Compression{None, Gzip, Zlib} {
		for name, storage := range testStorages(t) {
			t.Run(fmt.Sprintf("%s/%v", name, c), func(t *testing.T) {
				opt := Options{Compression: c}
				f, err := Open(storage(), opt)
				if err != nil {
					t.Fatalf("** Open failed: %v", err)
				}
				if f.Root().Len() != 0 {
					t.Fatalf("** new file has root %v", f.Root())
				}
				want := sampleTree()
				f.Root().Merge(want)
				f.Root().SetString("compression", c.String())
				ensure(want.Set("compression", String(c.String())))
				if err := f.Save(); err != nil {
					t.Fatalf("** Save failed: %v", err)
				}

				g, err := Open(storage(), opt)
				if err != nil {
					t.Fatalf("** reopen failed: %v", err)
				}
				if !EqualOrdered(g.Root(), want) {
					t.Fatalf("** reopened root differs:\n%v\n%v", g.Root(), want)
				}
				if g.Root() == f.Root() {
					t.Fatalf("** reopened File shares the root")
				}
			})
		}
	}
}

func TestOpen_CreatesMissing(t *testing.T) {
	s := NewMemStorage(nil)
	f, err := Open(s, Options{})
	if err != nil {
		t.Fatalf("** Open failed: %v", err)
	}
	if a := s.Bytes(); !bytes.Equal(a, unhex("0a0000 00")) {
		t.Fatalf("** stored %x, wanted an empty root", a)
	}
	if f.Root() == nil || f.Root().Len() != 0 {
		t.Fatalf("** Root = %v", f.Root())
	}
	if f.Storage() != Storage(s) {
		t.Fatalf("** Storage = %v", f.Storage())
	}
}

func TestOpenFile_CreatesMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "level.dat")
	if _, err := OpenFile(path, Options{}); err != nil {
		t.Fatalf("** OpenFile failed: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("** file not created: %v", err)
	}
	if runtime.GOOS != "windows" && st.Mode().Perm() != 0o644 {
		t.Fatalf("** file mode = %v, wanted 0644", st.Mode().Perm())
	}
}

func TestOpen_CorruptDataIsNotReplaced(t *testing.T) {
	garbage := unhex("0a0000 03 0001 78 0000")
	s := NewMemStorage(garbage)
	f, err := Open(s, Options{})
	if !errors.Is(err, ErrCorruptData) || f != nil {
		t.Fatalf("** Open = %v, %v, wanted ErrCorruptData", f, err)
	}
	if !bytes.Equal(s.Bytes(), garbage) {
		t.Fatalf("** corrupt contents were overwritten")
	}

	path := filepath.Join(t.TempDir(), "level.dat")
	ensure(os.WriteFile(path, garbage, 0o644))
	for _, mapped := range []bool{false, true} {
		_, err := Open(&FileStorage{Path: path, Mmap: mapped}, Options{})
		if !errors.Is(err, ErrCorruptData) {
			t.Fatalf("** Open(mmap=%v) = %v, wanted ErrCorruptData", mapped, err)
		}
	}
	if a, _ := os.ReadFile(path); !bytes.Equal(a, garbage) {
		t.Fatalf("** corrupt file was overwritten")
	}
}

func TestOpen_EmptyFileIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.dat")
	ensure(os.WriteFile(path, nil, 0o644))
	for _, mapped := range []bool{false, true} {
		_, err := Open(&FileStorage{Path: path, Mmap: mapped}, Options{})
		if !errors.Is(err, ErrCorruptData) {
			t.Fatalf("** Open(mmap=%v) of empty file = %v, wanted ErrCorruptData", mapped, err)
		}
	}
}

func TestOpen_CompressionMismatch(t *testing.T) {
	s := NewMemStorage(nil)
	f := must(Open(s, Options{Compression: Gzip}))
	f.Root().SetInt("x", 1)
	ensure(f.Save())
	if _, err := Open(s, Options{}); !errors.Is(err, ErrCorruptData) {
		t.Fatalf("** Open without compression = %v, wanted ErrCorruptData", err)
	}
}

func TestFile_Reload(t *testing.T) {
	s := NewMemStorage(nil)
	f := must(Open(s, Options{}))
	f.Root().SetInt("saved", 1)
	ensure(f.Save())

	old := f.Root()
	old.SetInt("unsaved", 2)
	if err := f.Reload(); err != nil {
		t.Fatalf("** Reload failed: %v", err)
	}
	if f.Root().Has("unsaved") || !f.Root().Has("saved") {
		t.Fatalf("** Reload kept unsaved changes: %v", f.Root())
	}
	if err := NewCompound().Set("old", old); err != nil {
		t.Fatalf("** old root still owned after Reload: %v", err)
	}

	ensure(s.Replace([]byte{0xff}))
	current := f.Root()
	if err := f.Reload(); !errors.Is(err, ErrCorruptData) {
		t.Fatalf("** Reload of corrupt data = %v, wanted ErrCorruptData", err)
	}
	if f.Root() != current {
		t.Fatalf("** failed Reload replaced the root")
	}
}

func TestFile_OwnsRoot(t *testing.T) {
	f := must(New(nil, Options{}))
	if err := NewCompound().Set("root", f.Root()); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("** Set of a file root = %v, wanted ErrAlreadyOwned", err)
	}
	if err := f.Root().Set("self", f.Root()); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("** Set of a file root into itself = %v, wanted ErrAlreadyOwned", err)
	}
	if _, err := New(f.Root(), Options{}); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("** New over an owned root = %v, wanted ErrAlreadyOwned", err)
	}
}

type failingStorage struct {
	*MemStorage
	fail error
}

func (s *failingStorage) Replace(data []byte) error {
	if s.fail != nil {
		return s.fail
	}
	return s.MemStorage.Replace(data)
}

func TestFile_FailedSaveKeepsOldContents(t *testing.T) {
	s := &failingStorage{MemStorage: NewMemStorage(nil)}
	f := must(Open(s, Options{}))
	f.Root().SetInt("v", 1)
	ensure(f.Save())
	before := s.Bytes()

	s.fail = fs.ErrPermission
	f.Root().SetInt("v", 2)
	err := f.Save()
	if !errors.Is(err, ErrIOFailure) || !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("** Save = %v, wanted ErrIOFailure wrapping ErrPermission", err)
	}
	if !bytes.Equal(s.Bytes(), before) {
		t.Fatalf("** failed Save changed the stored contents")
	}
	if v, _ := f.Root().GetInt("v"); v != 2 {
		t.Fatalf("** failed Save lost the in-memory change")
	}

	s.fail = nil
	ensure(f.Root().Set("bad", &List{elem: KindInt, items: []Value{String("x")}}))
	if err := f.Save(); !errors.Is(err, ErrInvalidTree) {
		t.Fatalf("** Save of invalid tree = %v, wanted ErrInvalidTree", err)
	}
	if !bytes.Equal(s.Bytes(), before) {
		t.Fatalf("** Save of invalid tree changed the stored contents")
	}
}

func TestFile_Detached(t *testing.T) {
	root := compoundOf("x", Int(1))
	f, err := New(root, Options{})
	if err != nil {
		t.Fatalf("** New failed: %v", err)
	}
	if f.Root() != root || f.Storage() != nil {
		t.Fatalf("** New = root %v, storage %v", f.Root(), f.Storage())
	}
	if err := f.Save(); !errors.Is(err, ErrNoStorage) {
		t.Fatalf("** Save = %v, wanted ErrNoStorage", err)
	}
	if err := f.Reload(); !errors.Is(err, ErrNoStorage) {
		t.Fatalf("** Reload = %v, wanted ErrNoStorage", err)
	}

	g := must(New(nil, Options{DetachedSaveNoop: true}))
	if err := g.Save(); err != nil {
		t.Fatalf("** Save with DetachedSaveNoop = %v", err)
	}
}

func TestFile_RootNamePreserved(t *testing.T) {
	data := must(AppendMarshal(nil, compoundOf("x", Int(1)), EncodeOptions{RootName: "Data"}))
	s := NewMemStorage(data)
	f := must(Open(s, Options{}))
	if f.RootName() != "Data" {
		t.Fatalf("** RootName = %q, wanted Data", f.RootName())
	}
	f.Root().SetInt("y", 2)
	ensure(f.Save())
	if a := s.Bytes(); !bytes.HasPrefix(a, unhex("0a 0004 44617461")) {
		t.Fatalf("** saved %x, wanted root name Data", a)
	}
}

func TestFile_ExtensionsSurviveSave(t *testing.T) {
	ext := map[Kind]Shape{20: FixedShape(2)}
	data := unhex("0a0000 14 0001 61 abcd 00")
	s := NewMemStorage(data)
	if _, err := Open(s, Options{}); !errors.Is(err, ErrUnsupportedTag) {
		t.Fatalf("** Open without extensions = %v, wanted ErrUnsupportedTag", err)
	}
	f := must(Open(s, Options{Extensions: ext}))
	ensure(f.Save())
	if !bytes.Equal(s.Bytes(), data) {
		t.Fatalf("** saved %x, wanted %x", s.Bytes(), data)
	}
}

func TestFile_UndeclaredRawRejectedOnSave(t *testing.T) {
	s := NewMemStorage(nil)
	f := must(Open(s, Options{}))
	saved := bytes.Clone(s.Bytes())
	ensure(f.Root().Set("x", Raw{20, []byte{1, 2, 3}}))
	if err := f.Save(); !errors.Is(err, ErrInvalidTree) {
		t.Fatalf("** Save of undeclared raw = %v, wanted ErrInvalidTree", err)
	}
	if !bytes.Equal(s.Bytes(), saved) {
		t.Fatalf("** storage changed to %x after failed Save", s.Bytes())
	}
	if _, err := Open(s, Options{}); err != nil {
		t.Fatalf("** reopen failed: %v", err)
	}

	f = must(Open(s, Options{Extensions: map[Kind]Shape{20: FixedShape(3)}}))
	ensure(f.Root().Set("x", Raw{20, []byte{1, 2, 3}}))
	ensure(f.Save())
	if _, err := Open(s, Options{Extensions: map[Kind]Shape{20: FixedShape(3)}}); err != nil {
		t.Fatalf("** reopen with declared shape failed: %v", err)
	}
}

func TestFileStorage_CreatesWithPerm(t *testing.T) {
	dir := t.TempDir()
	s := &FileStorage{Path: filepath.Join(dir, "level.dat"), Perm: 0o600}
	ensure(s.Replace([]byte{1}))
	ensure(s.Replace([]byte{2}))
	st, err := os.Stat(s.Path)
	if err != nil {
		t.Fatalf("** file not created: %v", err)
	}
	if runtime.GOOS != "windows" && st.Mode().Perm() != 0o600 {
		t.Fatalf("** file mode = %v, wanted 0600", st.Mode().Perm())
	}
	entries := must(os.ReadDir(dir))
	if len(entries) != 1 {
		t.Fatalf("** %d entries in directory, wanted only the file", len(entries))
	}
	if data := must(os.ReadFile(s.Path)); !bytes.Equal(data, []byte{2}) {
		t.Fatalf("** file holds %x, wanted 02", data)
	}
}

func TestFile_ReadAndUpdateConcurrently(t *testing.T) {
	f := must(Open(NewMemStorage(nil), Options{}))
	f.Root().Merge(sampleTree())
	f.Root().SetInt("counter", 0)
	ensure(f.Save())

	const writers, readers, rounds = 2, 8, 50
	var wg sync.WaitGroup
	errs := make(chan error, writers+readers+1)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				err := f.Update(func(root *Compound) error {
					n, err := root.GetInt("counter")
					if err != nil {
						return err
					}
					root.SetInt("counter", n+1)
					return nil
				})
				if err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				err := f.Read(func(root *Compound) error {
					if _, err := Marshal(root); err != nil {
						return err
					}
					_, err := Lookup(root, "inventory[2].id")
					return err
				})
				if err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range rounds {
			if err := f.Save(); err != nil {
				errs <- err
				return
			}
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("** concurrent access failed: %v", err)
	}

	if n, _ := f.Root().GetInt("counter"); n != writers*rounds {
		t.Fatalf("** counter = %d, wanted %d", n, writers*rounds)
	}
}

func TestFile_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	f := must(Open(NewMemStorage(nil), Options{Logger: logger}))
	ensure(f.Save())
	if buf.Len() != 0 {
		t.Fatalf("** non-verbose save logged at info: %s", buf.String())
	}

	f = must(Open(NewMemStorage(nil), Options{Logger: logger, Verbose: true}))
	ensure(f.Save())
	if !strings.Contains(buf.String(), "tagtree: saved") {
		t.Fatalf("** verbose save did not log: %q", buf.String())
	}
}

func TestReadFileWriteFile(t *testing.T) {
	dir := t.TempDir()
	missing, err := ReadFile(filepath.Join(dir, "missing.dat"), Options{})
	if err != nil || missing.Len() != 0 {
		t.Fatalf("** ReadFile(missing) = %v, %v, wanted empty compound", missing, err)
	}

	path := filepath.Join(dir, "nested", "out.dat")
	root := sampleTree()
	opt := Options{Compression: Gzip}
	if err := WriteFile(path, root, opt); err != nil {
		t.Fatalf("** WriteFile failed: %v", err)
	}
	back, err := ReadFile(path, opt)
	if err != nil {
		t.Fatalf("** ReadFile failed: %v", err)
	}
	if !EqualOrdered(back, root) {
		t.Fatalf("** ReadFile = %v, wanted %v", back, root)
	}
	if _, err := ReadFile(path, Options{}); !errors.Is(err, ErrCorruptData) {
		t.Fatalf("** ReadFile without compression = %v, wanted ErrCorruptData", err)
	}
}
