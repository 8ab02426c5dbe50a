// Package store provides the SQLite-backed record store: the durable
// mapping from normalized absolute path to content digest.
//
// # Layout
//
//   - files(path TEXT PRIMARY KEY, digest TEXT NOT NULL, registered_at INTEGER)
//   - meta(key TEXT PRIMARY KEY, value TEXT NOT NULL) holding format_version
//     and digest_algorithm
//
// # Lifecycle
//
// A store must be created with Initialize before it can be opened. Initialize
// never overwrites: anything already present at the location is reported as
// STORE_ALREADY_EXISTS. Open reports STORE_NOT_FOUND for a missing location
// and STORE_CORRUPT for a file that is not a valid store.
//
// # Queries
//
// Every statement binds its values with placeholders. Subtree queries compare
// prefixes with substr() rather than LIKE, so '%', '_' and quote characters in
// paths are matched literally.
//
// # Database Configuration
//
//   - WAL mode: readers do not block the single writer
//   - synchronous=FULL: a write that returned success survives a crash
//   - busy_timeout=5000: concurrent fcd processes wait for the write lock
//   - one connection per process
package store
