// Package session implements the per-client pointer session and the
// registry that maps client addresses to sessions.
//
// A Session owns one client's outbound sequence number and a ticker
// goroutine that polls a pointer.Source and pushes move frames. Every send
// goes through one mutex so sequence numbers leave in issue order even
// when the dispatcher acknowledges a heartbeat while the ticker fires.
//
// Sessions are keyed by client IP only (see KeyOf). A Registry holds at
// most one Session per key; registering a new one stops the old one.
package session
