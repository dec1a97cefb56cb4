// Package router dispatches decoded feed messages to their consumers.
//
// Signals and trades fan out two ways: into growable buffers drained by the
// Postgres batch writers, and into the snapshot sink that keeps the
// dashboard's latest view current. Position updates only touch the sink.
// Heartbeats and unknown kinds are counted and dropped.
package router
