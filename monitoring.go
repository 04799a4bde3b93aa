package tagtree

import (
	"fmt"
	"io/fs"

	"go.etcd.io/bbolt"
)

// BucketStats describes the space used by the records of one Bolt bucket
// written by BoltStorage. Small buckets are stored inline in their parent and
// report no allocation of their own.
type BucketStats struct {
	Records int

	DataSize  int
	DataAlloc int
	MetaSize  int
	MetaAlloc int
}

func (bs *BucketStats) TotalSize() int {
	return bs.DataSize + bs.MetaSize
}

func (bs *BucketStats) TotalAlloc() int {
	return bs.DataAlloc + bs.MetaAlloc
}

// BoltBucketStats returns the statistics of bucket, which holds the records
// of every BoltStorage using that bucket.
func BoltBucketStats(db *bbolt.DB, bucket string) (BucketStats, error) {
	var result BucketStats
	err := db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(bucket))
		if root == nil {
			return fmt.Errorf("bucket %q: %w", bucket, fs.ErrNotExist)
		}
		if b := root.Bucket(boltDataBucket); b != nil {
			bs := b.Stats()
			result.Records = bs.KeyN
			result.DataSize = bs.LeafInuse + bs.InlineBucketInuse
			result.DataAlloc = bs.BranchAlloc + bs.LeafAlloc
		}
		if b := root.Bucket(boltMetaBucket); b != nil {
			bs := b.Stats()
			result.MetaSize = bs.LeafInuse + bs.InlineBucketInuse
			result.MetaAlloc = bs.BranchAlloc + bs.LeafAlloc
		}
		return nil
	})
	return result, err
}
