// Package sqldb provides the SQL-backed implementations of
// store.EnrichmentCache and store.RunLedger.
//
// Two drivers are supported: a local SQLite file (modernc.org/sqlite, the
// default) and PostgreSQL through pgx. Queries are written with "?"
// placeholders and rebound per dialect. The schema is managed by goose
// from migrations embedded in the binary.
package sqldb
