// Package database provides the PostgreSQL connection pool for dashfeed.
//
// Postgres holds append-only history: signals and closed trades as they
// arrive over the live feed. Latest snapshots live in-memory (and optionally
// in Redis); they are never read back from Postgres.
package database
