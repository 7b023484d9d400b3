// Package storage owns the relational schema shared by the users and news
// stores.
//
// Production runs on PostgreSQL through lib/pq; tests run the same queries
// against an in-memory SQLite database. Migrate is idempotent and records
// applied versions in schema_migrations.
package storage
