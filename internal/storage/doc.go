// Package storage provides the persistence service behind the inventory
// store: a SQLite-backed key-value slot table with embedded schema
// migrations, an in-memory equivalent, and the audit event repository.
package storage
