// Package db provides the SQLite persistence layer for the favorites module.
// It encapsulates all interactions with the underlying SQL database: the durable
// key-value table the favorites store writes its payload to, and the table of
// persisted log entries.
//
// This package is responsible for:
// - Establishing and managing database connections (`db.go`).
// - Implementing domain.KeyValueRepository (`kv_repo.go`) and domain.LogRepository (`log_repo.go`).
// - Converting between domain structs and database structs, including `sql.Null*` types for nullable fields.
// - Managing database migrations (`migrations/`).
// - Providing common database utility types (`types.go`).
package db
