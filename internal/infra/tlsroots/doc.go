// Package tlsroots loads the certificates used by the control API.
//
// The server side serves a key pair held by a Watcher, which reloads it
// when either file changes, and optionally requires client certificates
// signed by a CA bundle. The client side trusts the system roots plus an
// optional private CA and may present its own key pair.
package tlsroots
