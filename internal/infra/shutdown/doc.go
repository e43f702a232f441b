// Package shutdown coordinates process termination and reload signals.
//
//   - SIGINT and SIGTERM run the shutdown hooks under a timeout
//   - SIGHUP runs the reload hooks and keeps waiting
//   - Trigger starts shutdown without a signal
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	h.OnReload(reloadConfig)
//	err := h.Wait(ctx)
package shutdown
