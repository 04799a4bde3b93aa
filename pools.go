package tagtree

import "sync"

var encodeBufPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, 65536)
	},
}

func releaseEncodeBuf(b []byte) {
	if cap(b) > 16<<20 {
		return
	}
	encodeBufPool.Put(b[:0])
}
