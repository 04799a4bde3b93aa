package tagtree

import (
	"fmt"
	"strings"

	"go.etcd.io/bbolt"
)

type DumpFlags uint64

const (
	DumpHeaders = DumpFlags(1 << iota)
	DumpStats
	DumpRecords
	DumpMeta

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// DumpBolt renders the records BoltStorage keeps in bucket, for debugging.
// Records that fail to decode are listed with their error.
func DumpBolt(db *bbolt.DB, bucket string, f DumpFlags, opt DecodeOptions) (string, error) {
	var buf strings.Builder
	s, err := BoltBucketStats(db, bucket)
	if err != nil {
		return "", err
	}
	if f.Contains(DumpHeaders) {
		fmt.Fprintln(&buf, dumpSep1)
		fmt.Fprintf(&buf, "%s (%d records)\n", bucket, s.Records)
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(&buf, "%s.stats: data_size = %d, data_alloc = %d, meta_size = %d, meta_alloc = %d, total_alloc = %d\n", bucket, s.DataSize, s.DataAlloc, s.MetaSize, s.MetaAlloc, s.TotalAlloc())
	}
	if !f.Contains(DumpRecords) {
		return buf.String(), nil
	}
	if f.Contains(DumpStats) {
		fmt.Fprintln(&buf, dumpSep2)
	}

	var keys []string
	err = db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(bucket))
		if root == nil {
			return nil
		}
		b := root.Bucket(boltDataBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	for _, key := range keys {
		dumpRecord(&buf, f, &BoltStorage{DB: db, Bucket: bucket, Key: key}, opt)
	}
	return buf.String(), nil
}

func dumpRecord(w *strings.Builder, f DumpFlags, s *BoltStorage, opt DecodeOptions) {
	prefix := s.Bucket + "/" + s.Key
	if f.Contains(DumpMeta) {
		if meta, err := s.Meta(); err != nil {
			fmt.Fprintf(w, "%s.meta ** ERROR: %v\n", prefix, err)
		} else {
			fmt.Fprintf(w, "%s.meta = (n%d %d bytes %016x) %s\n", prefix, meta.Saves, meta.Size, meta.Checksum, meta.SavedAt.UTC().Format("2006-01-02T15:04:05Z"))
		}
	}
	err := s.Read(func(data []byte) error {
		_, root, err := UnmarshalNamed(data, opt)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s = %s\n", prefix, Format(root))
		return nil
	})
	if err != nil {
		fmt.Fprintf(w, "%s ** ERROR: %v\n", prefix, err)
	}
}
