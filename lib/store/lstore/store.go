package lstore

import (
	"sync/atomic"

	"github.com/ValentinKolb/oak/lib/common"
	"github.com/ValentinKolb/oak/lib/db"
	"github.com/ValentinKolb/oak/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

type storeImpl struct {
	db    db.KVDB
	index atomic.Uint64
	log   logger.ILogger
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
func NewLocalStore(factory store.DBFactory) store.IStore {
	s := &storeImpl{
		db:  factory(),
		log: logger.GetLogger(common.LogStore),
	}
	// continue after whatever the database has already seen
	s.index.Store(s.db.WriteIdx())
	return s
}

// incAndGetIndex increments the index and returns the new value.
// It is used to ensure that each write operation has a unique index.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (s *storeImpl) incAndGetIndex() uint64 {
	return s.index.Add(1)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	if !s.db.SupportsFeature(db.FeatureSet) {
		return store.NewError(store.RetCUnsupportedOperation, "Set operation is not supported")
	}
	idx := s.incAndGetIndex()
	s.db.Set(key, value, idx)
	s.log.Debugf("set %q at index %d", key, idx)
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if !s.db.SupportsFeature(db.FeatureGet) {
		return nil, false, store.NewError(store.RetCUnsupportedOperation, "Get operation is not supported")
	}
	val, ok := s.db.Get(key)
	return val, ok, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureHas) {
		return false, store.NewError(store.RetCUnsupportedOperation, "Has operation is not supported")
	}
	return s.db.Has(key), nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}

// DB returns the database underlying a local store, or nil if s is not a local store.
// It gives diagnostic tools access to Dump and metrics.
func DB(s store.IStore) db.KVDB {
	if impl, ok := s.(*storeImpl); ok {
		return impl.db
	}
	return nil
}
