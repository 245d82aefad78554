// Package store provides a high-level interface for key-value storage operations
// with unified error handling. It serves as an abstraction layer over the
// lower-level db.KVDB implementations and takes care of write index management,
// so callers never deal with write indices themselves.
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining Set, Get, Has and GetDBInfo.
//     The interface methods return custom Error types that provide detailed
//     information about operation results.
//
//   - Error System: A structured error reporting mechanism using typed return codes
//     (RetCode) and descriptive messages. Callers can use errors.As to inspect the code.
//
//   - DBFactory: A function type that abstracts the creation of underlying db.KVDB
//     instances.
//
// Implementations:
//
//	The local store (lstore) directly utilizes a db.KVDB instance and manages the
//	write index progression with atomic operations.
//	Available in the "github.com/ValentinKolb/oak/lib/store/lstore" package.
package store
