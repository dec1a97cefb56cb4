// Package writer implements batch writers for signal and trade history.
//
// Writers:
//   - Signal writer (PostgreSQL, signals table)
//   - Trade writer (PostgreSQL, trades table)
//
// Both writers use append-only semantics (never update, only insert) and
// deduplicate on the backend-assigned identifiers via ON CONFLICT DO NOTHING.
package writer
