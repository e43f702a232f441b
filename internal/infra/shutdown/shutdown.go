package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Handler handles graceful shutdown.
type Handler struct {
	timeout time.Duration
	hooks   []func(context.Context) error
	reloads []func()
	mu      sync.Mutex

	trigger     chan struct{}
	triggerOnce sync.Once
	done        chan struct{}
}

// NewHandler creates a new shutdown handler.
func NewHandler(timeout time.Duration) *Handler {
	return &Handler{
		timeout: timeout,
		hooks:   make([]func(context.Context) error, 0),
		trigger: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(hook func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// OnReload registers a hook run on SIGHUP, in registration order.
func (h *Handler) OnReload(hook func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloads = append(h.reloads, hook)
}

// Trigger makes Wait begin shutdown as if a signal had arrived.
func (h *Handler) Trigger() {
	h.triggerOnce.Do(func() { close(h.trigger) })
}

// Wait blocks until SIGINT, SIGTERM, Trigger or ctx is done, then runs
// the shutdown hooks. SIGHUP runs the reload hooks without returning.
// The hook errors are joined. Wait must be called at most once.
func (h *Handler) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

wait:
	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				h.reload()
				continue
			}
			break wait
		case <-h.trigger:
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	return h.run()
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

func (h *Handler) reload() {
	h.mu.Lock()
	reloads := make([]func(), len(h.reloads))
	copy(reloads, h.reloads)
	h.mu.Unlock()

	for _, fn := range reloads {
		fn()
	}
}

func (h *Handler) run() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := make([]func(context.Context) error, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	close(h.done)
	return errors.Join(errs...)
}
