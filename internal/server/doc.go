// Package server exposes stored feed snapshots to dashboard clients over
// HTTP. Every data endpoint serves the latest snapshot in a uniform
// {"status": "success", "data": ...} envelope. Control actions (engine
// start/stop, manual trade execution) are proxied to the backend, and a
// health endpoint reports component status.
package server
