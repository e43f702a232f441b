package tlsroots

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last change
// before reloading, so a certificate and key written one after the other
// are read as a pair.
const DefaultDebounce = 500 * time.Millisecond

// Watcher holds a key pair and reloads it when its files change. A failed
// reload keeps the previous pair.
type Watcher struct {
	certFile string
	keyFile  string
	cert     atomic.Pointer[tls.Certificate]
	debounce time.Duration
	logger   *slog.Logger

	fs       *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger for the watcher. A nil logger is ignored.
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets the debounce duration.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher loads the key pair and starts watching the directories that
// hold it. Events are not processed until Start.
func NewWatcher(certFile, keyFile string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		certFile: filepath.Clean(certFile),
		keyFile:  filepath.Clean(keyFile),
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	for _, dir := range uniqueDirs(w.certFile, w.keyFile) {
		if err := fs.Add(dir); err != nil {
			_ = fs.Close()
			return nil, fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}
	w.fs = fs
	return w, nil
}

// Start processes file events until Stop is called.
func (w *Watcher) Start() {
	w.logger.Info("certificate watcher started",
		"cert_file", w.certFile,
		"key_file", w.keyFile,
	)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Clean(event.Name)
			if name != w.certFile && name != w.keyFile {
				continue
			}
			w.logger.Debug("certificate file changed", "file", name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case <-timer.C:
			if err := w.reload(); err != nil {
				w.logger.Error("certificate reload failed",
					"error", err,
					"cert_file", w.certFile,
				)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("certificate watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}

// GetCertificate returns the current key pair. It implements
// tls.Config.GetCertificate.
func (w *Watcher) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return w.cert.Load(), nil
}

func (w *Watcher) reload() error {
	cert, err := tls.LoadX509KeyPair(w.certFile, w.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	w.cert.Store(&cert)
	w.logger.Info("certificate loaded", "cert_file", w.certFile)
	return nil
}

func uniqueDirs(paths ...string) []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, p := range paths {
		d := filepath.Dir(p)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}
