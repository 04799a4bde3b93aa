package tagtree

import (
	"strings"
	"testing"
	"time"

	"go.etcd.io/bbolt"
)

func TestDumpBolt(t *testing.T) {
	db := openBolt(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, key := range []string{"a", "b"} {
		s := &BoltStorage{DB: db, Bucket: "worlds", Key: key, Now: func() time.Time { return now }}
		f := must(Open(s, Options{}))
		f.Root().SetString("name", key)
		ensure(f.Save())
	}
	ensure(db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte("worlds")).Bucket(boltDataBucket).Put([]byte("b"), []byte{0xff})
	}))

	out, err := DumpBolt(db, "worlds", DumpAll, DecodeOptions{})
	if err != nil {
		t.Fatalf("** DumpBolt failed: %v", err)
	}
	for _, want := range []string{
		"worlds (2 records)",
		"worlds.stats: data_size = ",
		"worlds/a.meta = (n2 14 bytes ",
		") 2024-05-01T12:00:00Z",
		`worlds/a = {name:"a"}`,
		"worlds/b ** ERROR: corrupt data",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("** DumpBolt output lacks %q:\n%s", want, out)
		}
	}

	out = must(DumpBolt(db, "worlds", DumpHeaders, DecodeOptions{}))
	if strings.Contains(out, "worlds/a") {
		t.Errorf("** DumpBolt(DumpHeaders) listed records:\n%s", out)
	}

	if _, err := DumpBolt(db, "missing", DumpAll, DecodeOptions{}); err == nil {
		t.Errorf("** DumpBolt of missing bucket succeeded")
	}
}

func TestBoltBucketStats(t *testing.T) {
	db := openBolt(t)
	for _, key := range []string{"a", "b", "c"} {
		must(Open(NewBoltStorage(db, "worlds", key), Options{}))
	}
	s, err := BoltBucketStats(db, "worlds")
	if err != nil {
		t.Fatalf("** BoltBucketStats failed: %v", err)
	}
	if s.Records != 3 || s.DataSize == 0 || s.MetaSize == 0 {
		t.Fatalf("** BoltBucketStats = %+v", s)
	}
}
