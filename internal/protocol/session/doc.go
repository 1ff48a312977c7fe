// Package session owns per-connection protocol state and its shared timing defaults.
//
// Ownership boundary:
// - NoData -> Configured -> DataLoaded -> Computed state machine
// - one reply frame per request frame
// - read/write/poll timing and backoff primitives shared by server and client
//
// A Session is owned by the goroutine serving its connection and is never shared.
package session
