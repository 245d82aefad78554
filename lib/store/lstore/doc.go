// Package lstore implements a local, in-memory, single-node key-value store based on the
// store.IStore interface. It provides a thin wrapper around any db.KVDB
// implementation with automatic write index management. Data is stored entirely
// in memory and is not persisted between process restarts.
//
// Implementation Details:
//
//   - Write Index Management: The store maintains an atomic counter that increments
//     with each write. The database keeps, for every key, the write with the highest
//     index, so concurrent Set calls on the same key resolve to the call that drew
//     the higher index.
//
//   - Feature Detection: Before executing operations, the store checks if the underlying
//     db.KVDB implementation supports the requested feature through the SupportsFeature
//     method. Unsupported operations return a *store.Error with RetCUnsupportedOperation.
//
// Thread Safety:
//
//	All operations in the local store are thread-safe as long as the underlying
//	db.KVDB is.
//
// Usage Example:
//
//	factory := func() db.KVDB { return oak.NewOakDB(nil) }
//	s := lstore.NewLocalStore(factory)
//
//	err := s.Set("session:123", sessionData)
//	value, exists, err := s.Get("session:123")
package lstore
