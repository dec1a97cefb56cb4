// Package feed implements the reconnecting WebSocket client for the trading
// backend's live event stream.
//
// The client:
//   - Maintains one connection, recovering from drops with exponential
//     backoff plus jitter (attempt counter resets on successful connect)
//   - Sends an application-level {"type":"ping"} heartbeat and forces a
//     reconnect when too many intervals pass with no inbound traffic,
//     catching connections the transport still believes are open
//   - Treats a normal close (code 1000) as final; any other drop reconnects
//   - Gives up only after the configured number of consecutive failed
//     attempts, surfacing terminal StateFailed to the consumer
//   - Drops malformed frames without disturbing the connection
package feed
