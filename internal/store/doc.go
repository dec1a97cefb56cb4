// Package store keeps the latest snapshot of every dashboard feed.
//
// Semantics mirror the dashboard's own state model: each update replaces the
// feed's snapshot wholesale, under a single RWMutex. REST pollers replace
// whole snapshots; live feed records merge into them (signals prepend,
// positions upsert). When Redis is configured every update is mirrored there
// best-effort so sibling instances can warm-start; a Redis outage never
// blocks or fails an update.
package store
