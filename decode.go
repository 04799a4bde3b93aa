package tagtree

import (
	"io"
)

type DecodeOptions struct {
	Compression Compression

	// MaxDepth defaults to DefaultMaxDepth.
	MaxDepth int

	// Extensions declares the payload shapes of non-standard kinds. Values of
	// these kinds decode into Raw. Standard kinds cannot be overridden.
	Extensions map[Kind]Shape

	// AllowTrailing permits unread bytes after the root compound.
	AllowTrailing bool
}

// Unmarshal decodes an uncompressed tree, discarding the root name.
func Unmarshal(data []byte) (*Compound, error) {
	_, root, err := UnmarshalNamed(data, DecodeOptions{})
	return root, err
}

// UnmarshalNamed decodes a tree, returning the root compound and its name.
// With compression enabled, error offsets refer to the decompressed stream.
//
// The result never aliases data.
func UnmarshalNamed(data []byte, opt DecodeOptions) (string, *Compound, error) {
	data, err := opt.Compression.decompress(data)
	if err != nil {
		return "", nil, err
	}
	dec := decoder{
		byteDecoder: makeByteDecoder(data),
		opt:         &opt,
		maxDepth:    opt.MaxDepth,
	}
	if dec.maxDepth <= 0 {
		dec.maxDepth = DefaultMaxDepth
	}
	name, root, err := dec.root()
	if err != nil {
		return "", nil, err
	}
	if !opt.AllowTrailing && dec.Remaining() > 0 {
		return "", nil, dataErrf(dec.Orig, dec.Off(), nil, "%d bytes of trailing data", dec.Remaining())
	}
	return name, root, nil
}

// Decode reads r to the end and decodes the tree it contains.
func Decode(r io.Reader, opt DecodeOptions) (*Compound, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	_, root, err := UnmarshalNamed(data, opt)
	return root, err
}

type decoder struct {
	byteDecoder
	opt      *DecodeOptions
	maxDepth int
}

func (d *decoder) root() (string, *Compound, error) {
	t, err := d.Byte()
	if err != nil {
		return "", nil, err
	}
	if Kind(t) != KindCompound {
		return "", nil, dataErrf(d.Orig, 0, nil, "root is %v, wanted %v", Kind(t), KindCompound)
	}
	name, err := d.String()
	if err != nil {
		return "", nil, err
	}
	c, err := d.compound(1)
	if err != nil {
		return "", nil, err
	}
	return name, c, nil
}

// kind validates a type tag read at off.
func (d *decoder) kind(t byte, off int) (Kind, error) {
	k := Kind(t)
	if k.Standard() {
		return k, nil
	}
	if _, ok := d.opt.Extensions[k]; ok {
		return k, nil
	}
	return k, &UnsupportedTagError{Off: off, Kind: k}
}

// minPayloadSize is the smallest number of bytes a payload of kind k takes.
func (d *decoder) minPayloadSize(k Kind) int {
	switch k {
	case KindEnd:
		return 0
	case KindByteArray, KindIntArray, KindLongArray:
		return 4
	case KindString:
		return 2
	case KindList:
		return 5
	case KindCompound:
		return 1
	}
	if w := k.fixedWidth(); w > 0 {
		return w
	}
	return d.opt.Extensions[k].minSize()
}

func (d *decoder) payload(k Kind, depth int) (Value, error) {
	switch k {
	case KindByte:
		v, err := d.Byte()
		return Byte(v), err
	case KindShort:
		v, err := d.Uint16()
		return Short(v), err
	case KindInt:
		v, err := d.Uint32()
		return Int(v), err
	case KindLong:
		v, err := d.Uint64()
		return Long(v), err
	case KindFloat:
		v, err := d.Float32()
		return Float(v), err
	case KindDouble:
		v, err := d.Float64()
		return Double(v), err
	case KindString:
		v, err := d.String()
		return String(v), err
	case KindByteArray:
		n, err := d.Count(1)
		if err != nil {
			return nil, err
		}
		b, err := d.Raw(n)
		if err != nil {
			return nil, err
		}
		return ByteArray(append([]byte{}, b...)), nil
	case KindIntArray:
		n, err := d.Count(4)
		if err != nil {
			return nil, err
		}
		a := make(IntArray, n)
		for i := range a {
			v, _ := d.Uint32() // length checked by Count
			a[i] = int32(v)
		}
		return a, nil
	case KindLongArray:
		n, err := d.Count(8)
		if err != nil {
			return nil, err
		}
		a := make(LongArray, n)
		for i := range a {
			v, _ := d.Uint64()
			a[i] = int64(v)
		}
		return a, nil
	case KindList:
		return d.list(depth + 1)
	case KindCompound:
		return d.compound(depth + 1)
	case KindEnd:
		return nil, dataErrf(d.Orig, d.Off(), nil, "unexpected %v", k)
	default:
		shape := d.opt.Extensions[k]
		if !shape.valid() {
			return nil, &UnsupportedTagError{Off: d.Off(), Kind: k}
		}
		b, err := shape.read(&d.byteDecoder)
		if err != nil {
			return nil, err
		}
		return Raw{k, b}, nil
	}
}

func (d *decoder) compound(depth int) (*Compound, error) {
	if depth > d.maxDepth {
		return nil, dataErrf(d.Orig, d.Off(), nil, "nesting exceeds %d levels", d.maxDepth)
	}
	c := NewCompound()
	for {
		off := d.Off()
		t, err := d.Byte()
		if err != nil {
			return nil, dataErrf(d.Orig, off, nil, "unterminated compound")
		}
		if Kind(t) == KindEnd {
			return c, nil
		}
		k, err := d.kind(t, off)
		if err != nil {
			return nil, err
		}
		name, err := d.String()
		if err != nil {
			return nil, err
		}
		v, err := d.payload(k, depth)
		if err != nil {
			return nil, err
		}
		c.set(name, v)
	}
}

func (d *decoder) list(depth int) (*List, error) {
	if depth > d.maxDepth {
		return nil, dataErrf(d.Orig, d.Off(), nil, "nesting exceeds %d levels", d.maxDepth)
	}
	off := d.Off()
	t, err := d.Byte()
	if err != nil {
		return nil, err
	}
	k, err := d.kind(t, off)
	if err != nil {
		return nil, err
	}
	countOff := d.Off()
	width := d.minPayloadSize(k)
	n, err := d.Count(width)
	if err != nil {
		return nil, err
	}
	if k == KindEnd && n > 0 {
		return nil, dataErrf(d.Orig, countOff, nil, "%d elements in a list without element kind", n)
	}
	// Zero-width elements escape the bound in Count; cap them by the input left.
	if width == 0 && n > d.Remaining() {
		return nil, dataErrf(d.Orig, countOff, nil, "count %d exceeds %d remaining bytes", n, d.Remaining())
	}
	l := &List{elem: k, items: make([]Value, 0, min(n, d.Remaining()+1))}
	for range n {
		v, err := d.payload(k, depth)
		if err != nil {
			return nil, err
		}
		if slot := ownerSlot(v); slot != nil {
			*slot = l
		}
		l.items = append(l.items, v)
	}
	return l, nil
}
