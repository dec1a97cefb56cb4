// Package model defines the shared data types dashfeed exchanges with the
// trading backend and re-serves to dashboard frontends.
//
// Conventions:
//   - Timestamps: int64 microseconds since Unix epoch
//   - IDs: string for backend-assigned ids, uuid.UUID for trade ids
//   - Prices and P&L: float64 quote-currency amounts as reported by the backend
package model
