package output

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

const spinnerInterval = 100 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner displays a progress animation until stopped.
type Spinner struct {
	w       io.Writer
	message string

	started atomic.Bool
	once    sync.Once
	done    chan struct{}
	exit    chan struct{}
}

// NewSpinner creates a new spinner.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		done:    make(chan struct{}),
		exit:    make(chan struct{}),
	}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.exit)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.message)
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the spinner and clears the line.
func (s *Spinner) Stop() {
	s.finish("\r\033[K")
}

// Success stops the spinner with a success message.
func (s *Spinner) Success(message string) {
	s.finish("\r\033[K✓ " + message + "\n")
}

// Fail stops the spinner with a failure message.
func (s *Spinner) Fail(message string) {
	s.finish("\r\033[K✗ " + message + "\n")
}

// finish stops the animation once and writes the final line. Calls
// after the first are no-ops.
func (s *Spinner) finish(line string) {
	s.once.Do(func() {
		close(s.done)
		if s.started.Load() {
			<-s.exit
		}
		fmt.Fprint(s.w, line)
	})
}
