package tagtree

import (
	"fmt"
	"io/fs"
	"time"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"go.etcd.io/bbolt"
)

var (
	boltDataBucket = []byte("data")
	boltMetaBucket = []byte("meta")
)

// BoltStorage stores a tree as a record of a Bolt database, which lets many
// trees share one file. Records live in the "data" sub-bucket of Bucket under
// Key; a msgpack-encoded StorageMeta with the size and xxhash64 of the record
// lives under the same key in the "meta" sub-bucket. Both are written in one
// transaction.
type BoltStorage struct {
	DB     *bbolt.DB
	Bucket string
	Key    string

	// Now defaults to time.Now.
	Now func() time.Time
}

// StorageMeta describes the last save of a BoltStorage record.
type StorageMeta struct {
	Size     int       `msgpack:"s"`
	Checksum uint64    `msgpack:"h"`
	SavedAt  time.Time `msgpack:"t"`
	Saves    uint64    `msgpack:"n"`
}

func NewBoltStorage(db *bbolt.DB, bucket, key string) *BoltStorage {
	return &BoltStorage{DB: db, Bucket: bucket, Key: key}
}

// Read verifies the record against its metadata before calling fn; a size or
// checksum mismatch is reported as ErrCorruptData.
func (s *BoltStorage) Read(fn func(data []byte) error) error {
	return s.DB.View(func(tx *bbolt.Tx) error {
		data, meta, err := s.get(tx)
		if err != nil {
			return err
		}
		if len(data) != meta.Size {
			return dataErrf(nil, 0, nil, "record %s is %d bytes, metadata says %d", s, len(data), meta.Size)
		}
		if sum := xxhash.Sum64(data); sum != meta.Checksum {
			return dataErrf(nil, 0, nil, "record %s checksum %016x, metadata says %016x", s, sum, meta.Checksum)
		}
		return fn(data)
	})
}

// Meta returns the metadata of the last save.
func (s *BoltStorage) Meta() (StorageMeta, error) {
	var meta StorageMeta
	err := s.DB.View(func(tx *bbolt.Tx) error {
		var err error
		_, meta, err = s.get(tx)
		return err
	})
	return meta, err
}

func (s *BoltStorage) get(tx *bbolt.Tx) ([]byte, StorageMeta, error) {
	var meta StorageMeta
	root := tx.Bucket(unsafeBytesFromString(s.Bucket))
	if root == nil {
		return nil, meta, fmt.Errorf("%s: %w", s, fs.ErrNotExist)
	}
	key := unsafeBytesFromString(s.Key)
	var data, rawMeta []byte
	if b := root.Bucket(boltDataBucket); b != nil {
		data = b.Get(key)
	}
	if b := root.Bucket(boltMetaBucket); b != nil {
		rawMeta = b.Get(key)
	}
	if data == nil {
		return nil, meta, fmt.Errorf("%s: %w", s, fs.ErrNotExist)
	}
	if rawMeta == nil {
		return nil, meta, dataErrf(nil, 0, nil, "record %s has no metadata", s)
	}
	if err := msgpackDecode(rawMeta, &meta); err != nil {
		return nil, meta, err
	}
	return data, meta, nil
}

func (s *BoltStorage) Replace(data []byte) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(s.Bucket))
		if err != nil {
			return err
		}
		db, err := root.CreateBucketIfNotExists(boltDataBucket)
		if err != nil {
			return err
		}
		mb, err := root.CreateBucketIfNotExists(boltMetaBucket)
		if err != nil {
			return err
		}

		var meta StorageMeta
		if raw := mb.Get([]byte(s.Key)); raw != nil {
			// A damaged record is overwritten; only the save counter is lost.
			_ = msgpackDecode(raw, &meta)
		}
		meta = StorageMeta{
			Size:     len(data),
			Checksum: xxhash.Sum64(data),
			SavedAt:  now().UTC(),
			Saves:    meta.Saves + 1,
		}
		rawMeta, err := msgpackEncode(nil, &meta)
		if err != nil {
			return err
		}

		// Bolt keeps references to keys and values until commit.
		key := []byte(s.Key)
		if err := db.Put(key, append([]byte{}, data...)); err != nil {
			return err
		}
		return mb.Put(key, rawMeta)
	})
}

func (s *BoltStorage) String() string {
	return "bolt:" + s.DB.Path() + "#" + s.Bucket + "/" + s.Key
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
