package tagtree

import (
	"encoding/binary"
	"io"
	"math"
)

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

// bytesBuilder accumulates big-endian encoded data.
type bytesBuilder struct {
	Buf []byte
}

var _ io.Writer = (*bytesBuilder)(nil)

func (bb *bytesBuilder) Grow(n int) (off int) {
	off, bb.Buf = grow(bb.Buf, n)
	return
}

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	off := bb.Grow(len(b))
	copy(bb.Buf[off:], b)
	return len(b), nil
}

func (bb *bytesBuilder) AppendByte(v byte) {
	off := bb.Grow(1)
	bb.Buf[off] = v
}

func (bb *bytesBuilder) AppendUint16(v uint16) {
	off := bb.Grow(2)
	binary.BigEndian.PutUint16(bb.Buf[off:], v)
}

func (bb *bytesBuilder) AppendUint32(v uint32) {
	off := bb.Grow(4)
	binary.BigEndian.PutUint32(bb.Buf[off:], v)
}

func (bb *bytesBuilder) AppendUint64(v uint64) {
	off := bb.Grow(8)
	binary.BigEndian.PutUint64(bb.Buf[off:], v)
}

// AppendString writes a uint16 byte length followed by the bytes of s. The
// caller checks the length limit.
func (bb *bytesBuilder) AppendString(s string) {
	off := bb.Grow(2 + len(s))
	binary.BigEndian.PutUint16(bb.Buf[off:], uint16(len(s)))
	copy(bb.Buf[off+2:], s)
}

func (bb *bytesBuilder) AppendCount(n int) {
	bb.AppendUint32(uint32(int32(n)))
}

// byteDecoder reads big-endian values, reporting failures as DataError with
// the offset into Orig.
type byteDecoder struct {
	Orig []byte
	Buf  []byte
}

func makeByteDecoder(buf []byte) byteDecoder {
	return byteDecoder{buf, buf}
}

func (d *byteDecoder) Off() int {
	return len(d.Orig) - len(d.Buf)
}

func (d *byteDecoder) Remaining() int {
	return len(d.Buf)
}

func (d *byteDecoder) Raw(n int) ([]byte, error) {
	if n < 0 {
		return nil, dataErrf(d.Orig, d.Off(), nil, "negative length %d", n)
	}
	if len(d.Buf) < n {
		return nil, dataErrf(d.Orig, d.Off(), nil, "not enough data: %d bytes remaining, %d wanted", len(d.Buf), n)
	}
	v := d.Buf[:n]
	d.Buf = d.Buf[n:]
	return v, nil
}

func (d *byteDecoder) Byte() (byte, error) {
	b, err := d.Raw(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *byteDecoder) Uint16() (uint16, error) {
	b, err := d.Raw(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *byteDecoder) Uint32() (uint32, error) {
	b, err := d.Raw(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *byteDecoder) Uint64() (uint64, error) {
	b, err := d.Raw(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// String reads a uint16-prefixed string. The result never aliases the input.
func (d *byteDecoder) String() (string, error) {
	n, err := d.Uint16()
	if err != nil {
		return "", err
	}
	b, err := d.Raw(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Count reads a signed 32-bit element count and checks that count elements
// of the given width fit into the remaining input, so that corrupt counts
// never cause large allocations.
func (d *byteDecoder) Count(width int) (int, error) {
	off := d.Off()
	v, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	n := int32(v)
	if n < 0 {
		return 0, dataErrf(d.Orig, off, nil, "negative count %d", n)
	}
	if width > 0 && int64(n)*int64(width) > int64(len(d.Buf)) {
		return 0, dataErrf(d.Orig, off, nil, "count %d of %d-byte elements exceeds %d remaining bytes", n, width, len(d.Buf))
	}
	return int(n), nil
}

func (d *byteDecoder) Float32() (float32, error) {
	v, err := d.Uint32()
	return math.Float32frombits(v), err
}

func (d *byteDecoder) Float64() (float64, error) {
	v, err := d.Uint64()
	return math.Float64frombits(v), err
}
