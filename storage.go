package tagtree

import "fmt"

// Storage is a location that holds the encoded bytes of one tree. File
// backends, in-memory buffers and database records all qualify.
type Storage interface {
	// Read calls fn with the stored bytes and returns fn's error. The bytes
	// are only valid until fn returns. When nothing has been stored yet, Read
	// returns an error matching fs.ErrNotExist without calling fn.
	Read(fn func(data []byte) error) error

	// Replace atomically substitutes the stored bytes with data: a later Read
	// observes either the old or the new contents in full, and on failure the
	// old contents remain intact.
	Replace(data []byte) error

	fmt.Stringer
}
