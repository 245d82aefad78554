package internal

import (
	"fmt"

	"github.com/ValentinKolb/oak/lib/db/util"
	"github.com/ValentinKolb/oak/lib/tree"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Entry Type (value with metadata)
// --------------------------------------------------------------------------

// Entry stores a value together with the write index it was written at
type Entry struct {
	Value []byte // Stored data (owned by the database, never handed out)
	Index uint64 // Write index of the last accepted write
}

func (e Entry) String() string {
	return fmt.Sprintf("%q@%d", e.Value, e.Index)
}

// CompareEntries orders entries by write index. It is the merge policy of the
// shard trees: on a duplicate key the entry with the higher index is kept, an
// equal or lower index is a stale write.
func CompareEntries(a, b Entry) int {
	switch {
	case a.Index < b.Index:
		return -1
	case a.Index > b.Index:
		return 1
	default:
		return 0
	}
}

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard is a partition of the key space with its own tree
type Shard struct {
	Data *tree.Tree[string, Entry]
	Size *xsync.Counter // number of keys in Data
}

// NewShard creates an empty shard
func NewShard() *Shard {
	return &Shard{
		Data: tree.New[string, Entry](tree.WithCompare(CompareEntries)),
		Size: xsync.NewCounter(),
	}
}

// GetShard returns the shard responsible for a hashed key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](key util.Hash, shards []*T) *T {
	return shards[key.Bucket(len(shards))]
}
