package tagtree

import "fmt"

type shapeType uint8

const (
	shapeFixed shapeType = iota + 1
	shapeCounted
	shapeSized16
)

// Shape statically describes the payload layout of an extension kind, which
// lets the decoder carry values of that kind through as Raw without
// understanding them.
type Shape struct {
	typ shapeType
	n   int
}

// FixedShape is a payload of exactly n bytes.
func FixedShape(n int) Shape {
	if n < 0 {
		panic("negative shape size")
	}
	return Shape{shapeFixed, n}
}

// CountedShape is a signed 32-bit big-endian element count followed by that
// many elements of width bytes each, like the standard array kinds.
func CountedShape(width int) Shape {
	if width <= 0 {
		panic("non-positive element width")
	}
	return Shape{shapeCounted, width}
}

// Sized16Shape is an unsigned 16-bit big-endian byte length followed by that
// many bytes, like the standard string kind.
func Sized16Shape() Shape {
	return Shape{shapeSized16, 1}
}

func (s Shape) valid() bool {
	return s.typ != 0
}

// minSize is the smallest possible payload size.
func (s Shape) minSize() int {
	switch s.typ {
	case shapeFixed:
		return s.n
	case shapeCounted:
		return 4
	case shapeSized16:
		return 2
	default:
		panic("invalid shape")
	}
}

// read consumes one payload and returns a copy of all of its bytes,
// including the length prefix.
func (s Shape) read(d *byteDecoder) ([]byte, error) {
	start := d.Buf
	switch s.typ {
	case shapeFixed:
		if _, err := d.Raw(s.n); err != nil {
			return nil, err
		}
	case shapeCounted:
		n, err := d.Count(s.n)
		if err != nil {
			return nil, err
		}
		if _, err := d.Raw(n * s.n); err != nil {
			return nil, err
		}
	case shapeSized16:
		n, err := d.Uint16()
		if err != nil {
			return nil, err
		}
		if _, err := d.Raw(int(n)); err != nil {
			return nil, err
		}
	default:
		panic("invalid shape")
	}
	consumed := len(start) - len(d.Buf)
	return append([]byte(nil), start[:consumed]...), nil
}

// check verifies that payload is exactly one well-formed payload of this
// shape.
func (s Shape) check(payload []byte) error {
	d := makeByteDecoder(payload)
	if _, err := s.read(&d); err != nil {
		return err
	}
	if d.Remaining() != 0 {
		return fmt.Errorf("%d extra bytes after payload", d.Remaining())
	}
	return nil
}

func (s Shape) String() string {
	switch s.typ {
	case shapeFixed:
		return fmt.Sprintf("fixed(%d)", s.n)
	case shapeCounted:
		return fmt.Sprintf("counted(%d)", s.n)
	case shapeSized16:
		return "sized16"
	default:
		return "invalid"
	}
}
