package tagtree

import (
	"io"
	"math"
	"strconv"
	"strings"
)

// DefaultMaxDepth limits compound and list nesting on both encode and decode.
const DefaultMaxDepth = 512

const maxStringLen = math.MaxUint16

type EncodeOptions struct {
	Compression Compression

	// RootName is written as the name of the root compound. Normally empty.
	RootName string

	// MaxDepth defaults to DefaultMaxDepth.
	MaxDepth int

	// Extensions declares the shapes of the kinds Raw values may carry. A Raw
	// of an undeclared kind, or whose payload does not match its shape, is
	// rejected with ErrInvalidTree.
	Extensions map[Kind]Shape
}

// Marshal encodes root as an uncompressed tree with an empty root name.
func Marshal(root *Compound) ([]byte, error) {
	return AppendMarshal(nil, root, EncodeOptions{})
}

// AppendMarshal appends the uncompressed encoding of root to buf. The
// Compression option is ignored. On failure it returns buf unchanged.
func AppendMarshal(buf []byte, root *Compound, opt EncodeOptions) ([]byte, error) {
	if root == nil {
		return buf, treeErrf("", "nil root")
	}
	enc := encoder{
		bb:       bytesBuilder{buf},
		opt:      &opt,
		maxDepth: opt.MaxDepth,
	}
	if enc.maxDepth <= 0 {
		enc.maxDepth = DefaultMaxDepth
	}
	start := len(buf)
	if err := enc.named(opt.RootName, root, 0); err != nil {
		return enc.bb.Buf[:start], err
	}
	return enc.bb.Buf, nil
}

// Encode writes the encoding of root to w, compressed if requested. The tree
// is fully encoded before anything is written, so an invalid tree leaves w
// untouched.
func Encode(w io.Writer, root *Compound, opt EncodeOptions) error {
	buf := encodeBufPool.Get().([]byte)
	defer func() { releaseEncodeBuf(buf) }()
	var err error
	buf, err = AppendMarshal(buf, root, opt)
	if err != nil {
		return err
	}
	return opt.Compression.compress(w, buf)
}

type encoder struct {
	bb       bytesBuilder
	opt      *EncodeOptions
	maxDepth int
	path     []pathSeg
}

type pathSeg struct {
	key   string
	index int
}

func (enc *encoder) errf(format string, args ...any) error {
	return treeErrf(formatPath(enc.path), format, args...)
}

func (enc *encoder) named(name string, v Value, depth int) error {
	if len(name) > maxStringLen {
		return enc.errf("name of %d bytes exceeds %d", len(name), maxStringLen)
	}
	if isNil(v) {
		return enc.errf("nil value")
	}
	enc.bb.AppendByte(byte(v.Kind()))
	enc.bb.AppendString(name)
	return enc.payload(v, depth)
}

func (enc *encoder) payload(v Value, depth int) error {
	switch v := v.(type) {
	case Byte:
		enc.bb.AppendByte(byte(v))
	case Short:
		enc.bb.AppendUint16(uint16(v))
	case Int:
		enc.bb.AppendUint32(uint32(v))
	case Long:
		enc.bb.AppendUint64(uint64(v))
	case Float:
		enc.bb.AppendUint32(math.Float32bits(float32(v)))
	case Double:
		enc.bb.AppendUint64(math.Float64bits(float64(v)))
	case String:
		if len(v) > maxStringLen {
			return enc.errf("string of %d bytes exceeds %d", len(v), maxStringLen)
		}
		enc.bb.AppendString(string(v))
	case ByteArray:
		if len(v) > math.MaxInt32 {
			return enc.errf("array too long")
		}
		enc.bb.AppendCount(len(v))
		enc.bb.Write(v)
	case IntArray:
		if len(v) > math.MaxInt32 {
			return enc.errf("array too long")
		}
		enc.bb.AppendCount(len(v))
		for _, x := range v {
			enc.bb.AppendUint32(uint32(x))
		}
	case LongArray:
		if len(v) > math.MaxInt32 {
			return enc.errf("array too long")
		}
		enc.bb.AppendCount(len(v))
		for _, x := range v {
			enc.bb.AppendUint64(uint64(x))
		}
	case *List:
		return enc.list(v, depth+1)
	case *Compound:
		return enc.compound(v, depth+1)
	case Raw:
		if v.Type.Standard() {
			return enc.errf("raw value of standard kind %v", v.Type)
		}
		shape, ok := enc.opt.Extensions[v.Type]
		if !ok {
			return enc.errf("raw %v has no declared shape", v.Type)
		}
		if err := shape.check(v.Payload); err != nil {
			return enc.errf("raw %v payload does not match %v: %v", v.Type, shape, err)
		}
		enc.bb.Write(v.Payload)
	default:
		return enc.errf("unsupported value %T", v)
	}
	return nil
}

func (enc *encoder) compound(c *Compound, depth int) error {
	if depth > enc.maxDepth {
		return enc.errf("nesting exceeds %d levels", enc.maxDepth)
	}
	for _, e := range c.entries {
		enc.path = append(enc.path, pathSeg{key: e.key, index: -1})
		if err := enc.named(e.key, e.val, depth); err != nil {
			return err
		}
		enc.path = enc.path[:len(enc.path)-1]
	}
	enc.bb.AppendByte(byte(KindEnd))
	return nil
}

func (enc *encoder) list(l *List, depth int) error {
	if depth > enc.maxDepth {
		return enc.errf("nesting exceeds %d levels", enc.maxDepth)
	}
	if len(l.items) > math.MaxInt32 {
		return enc.errf("list too long")
	}
	if len(l.items) > 0 && l.elem == KindEnd {
		return enc.errf("non-empty list without element kind")
	}
	// Check every element before emitting any of them.
	for i, item := range l.items {
		if isNil(item) {
			return enc.errf("nil element at index %d", i)
		}
		if item.Kind() != l.elem {
			return enc.errf("heterogeneous list: element %d is %v, list holds %v", i, item.Kind(), l.elem)
		}
	}
	enc.bb.AppendByte(byte(l.elem))
	enc.bb.AppendCount(len(l.items))
	for i, item := range l.items {
		enc.path = append(enc.path, pathSeg{index: i})
		if err := enc.payload(item, depth); err != nil {
			return err
		}
		enc.path = enc.path[:len(enc.path)-1]
	}
	return nil
}

func formatPath(path []pathSeg) string {
	var buf strings.Builder
	for _, seg := range path {
		if seg.index >= 0 {
			buf.WriteByte('[')
			buf.WriteString(strconv.Itoa(seg.index))
			buf.WriteByte(']')
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('.')
		}
		if isBareKey(seg.key) {
			buf.WriteString(seg.key)
		} else {
			buf.WriteString(strconv.Quote(seg.key))
		}
	}
	return buf.String()
}
