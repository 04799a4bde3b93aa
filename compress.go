package tagtree

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Compression selects an optional compression layer around the encoded tree.
// It is always chosen explicitly; the decoder never guesses it from the
// leading bytes.
type Compression int

const (
	None Compression = iota
	Gzip
	Zlib
)

var compressionNames = [...]string{
	None: "none",
	Gzip: "gzip",
	Zlib: "zlib",
}

func (c Compression) String() string {
	if c >= 0 && int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return fmt.Sprintf("Compression(%d)", int(c))
}

func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return None, nil
	case "gzip":
		return Gzip, nil
	case "zlib":
		return Zlib, nil
	default:
		return None, fmt.Errorf("unknown compression %q", s)
	}
}

func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Compression) UnmarshalText(text []byte) error {
	v, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// compress writes data to w through the compression layer.
func (c Compression) compress(w io.Writer, data []byte) error {
	var cw io.WriteCloser
	switch c {
	case None:
		_, err := w.Write(data)
		return err
	case Gzip:
		cw = gzip.NewWriter(w)
	case Zlib:
		cw = zlib.NewWriter(w)
	default:
		return fmt.Errorf("unsupported compression %v", c)
	}
	if _, err := cw.Write(data); err != nil {
		return err
	}
	return cw.Close()
}

func (c Compression) decompress(data []byte) ([]byte, error) {
	var r io.ReadCloser
	var err error
	switch c {
	case None:
		return data, nil
	case Gzip:
		r, err = gzip.NewReader(bytes.NewReader(data))
	case Zlib:
		r, err = zlib.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported compression %v", c)
	}
	if err != nil {
		return nil, dataErrf(nil, 0, err, "%v header", c)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, dataErrf(nil, 0, err, "%v stream", c)
	}
	return out, nil
}
