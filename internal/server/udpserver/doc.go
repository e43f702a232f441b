// Package udpserver is the pointerd dispatcher.
//
// One goroutine owns the shared UDP socket. It decrypts every inbound
// datagram, routes open, heartbeat and close requests to the session
// registry, and reaps idle sessions. Sessions send their own frames
// through the same socket.
package udpserver
