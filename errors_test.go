package tagtree

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestDataError_ErrorAndUnwrap(t *testing.T) {
	t.Run("small data", func(t *testing.T) {
		inner := errors.New("inner")
		err := dataErrf([]byte{0xAA, 0xBB}, 1, inner, "oops")
		var de *DataError
		if !errors.As(err, &de) {
			t.Fatalf("err = %T, wanted *DataError", err)
		}
		if !errors.Is(err, inner) || !errors.Is(err, ErrCorruptData) {
			t.Fatalf("errors.Is(err, inner/ErrCorruptData) = false, wanted true")
		}
		s := err.Error()
		if !strings.Contains(s, "offset 1") || !strings.Contains(s, "oops") || !strings.Contains(s, "inner") || !strings.Contains(s, "[@0 aa|bb]") {
			t.Fatalf("err.Error() = %q, wanted offset/oops/inner/context", s)
		}
	})

	t.Run("large data keeps a window", func(t *testing.T) {
		data := make([]byte, 200)
		for i := range data {
			data[i] = byte(i)
		}
		err := dataErrf(data, 100, nil, "oops")
		var de *DataError
		errors.As(err, &de)
		if de.ContextOff != 84 || len(de.Context) != 32 || de.Context[0] != 84 {
			t.Fatalf("context = @%d %x, wanted 32 bytes @84", de.ContextOff, de.Context)
		}
		data[100] = 0
		if de.Context[16] != 100 {
			t.Fatalf("context aliases the input")
		}
	})

	t.Run("offset past the end", func(t *testing.T) {
		err := dataErrf([]byte{1, 2, 3}, 10, nil, "oops")
		s := err.Error()
		if !strings.Contains(s, "[@0 010203|]") {
			t.Fatalf("err.Error() = %q, wanted full context before the split", s)
		}
	})

	t.Run("no data", func(t *testing.T) {
		s := dataErrf(nil, 0, nil, "oops").Error()
		if s != "corrupt data at offset 0: oops" {
			t.Fatalf("err.Error() = %q", s)
		}
	})
}

func TestTypeError(t *testing.T) {
	err := typeErr("k", KindInt, KindString)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("errors.Is(err, ErrTypeMismatch) = false")
	}
	if s, w := err.Error(), `type mismatch for "k": wanted Int, got String`; s != w {
		t.Fatalf("err.Error() = %q, wanted %q", s, w)
	}
	if s, w := typeErrf("%d overflows %s", 300, KindByte).Error(), "type mismatch: 300 overflows Byte"; s != w {
		t.Fatalf("err.Error() = %q, wanted %q", s, w)
	}
}

func TestTreeError(t *testing.T) {
	err := treeErrf("a[1].b", "nil value")
	if !errors.Is(err, ErrInvalidTree) {
		t.Fatalf("errors.Is(err, ErrInvalidTree) = false")
	}
	if s, w := err.Error(), "invalid tree at a[1].b: nil value"; s != w {
		t.Fatalf("err.Error() = %q, wanted %q", s, w)
	}
	if s, w := treeErrf("", "nil root").Error(), "invalid tree: nil root"; s != w {
		t.Fatalf("err.Error() = %q, wanted %q", s, w)
	}
}

func TestIOError(t *testing.T) {
	err := ioErr("load", NewMemStorage(nil), fs.ErrNotExist)
	if !errors.Is(err, ErrIOFailure) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, wanted ErrIOFailure wrapping ErrNotExist", err)
	}
	if s := err.Error(); !strings.HasPrefix(s, "load memory") {
		t.Fatalf("err.Error() = %q, wanted load memory...", s)
	}
	if s := ioErr("save", nil, fs.ErrPermission).Error(); s != "save: "+fs.ErrPermission.Error() {
		t.Fatalf("err.Error() = %q", s)
	}
}

func TestUnsupportedTagError(t *testing.T) {
	err := error(&UnsupportedTagError{Off: 3, Kind: 32})
	if !errors.Is(err, ErrUnsupportedTag) || errors.Is(err, ErrCorruptData) {
		t.Fatalf("errors.Is mismatch for %v", err)
	}
	if s, w := err.Error(), "unsupported tag Kind(32) at offset 3"; s != w {
		t.Fatalf("err.Error() = %q, wanted %q", s, w)
	}
}
