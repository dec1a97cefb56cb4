// Package api provides the REST client for the trading backend.
//
// The backend wraps every response in an envelope, but not consistently:
// older endpoints return {"status":"success","data":...} while newer ones
// return {"success":true,"data":...}. Both shapes are normalized here, at one
// boundary, so no other package ever inspects an envelope.
//
// Error handling: HTTP failures become *APIError with a fixed user-facing
// Reason(); 5xx and 429 are retried with exponential backoff plus jitter.
package api
