// Package poll runs periodic REST fetches against the trading backend.
//
// Each Poller drives one fetch function on a fixed interval, tightening to a
// faster interval while the backend reports a market scan in progress. Cycles
// never overlap: if a fetch is still running when the next tick fires, the
// tick is skipped and counted. Failed fetches retry a fixed number of times
// with a fixed delay inside the same cycle.
package poll
