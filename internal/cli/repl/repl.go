package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Executor runs one console command. args[0] is the command name.
type Executor interface {
	Execute(ctx context.Context, args []string) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, args []string) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, args []string) error {
	return f(ctx, args)
}

// builtins are handled by the loop itself.
var builtins = []string{"help", "history", "exit", "quit"}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	exec      Executor
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithHistory sets the command history.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// WithPrompt sets the prompt.
func WithPrompt(prompt string) Option {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// New creates a console dispatching commands to exec.
func New(exec Executor, commands []string, opts ...Option) *REPL {
	r := &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		prompt:    "pointerd> ",
		exec:      exec,
		completer: NewCompleter(append(append([]string(nil), commands...), builtins...)...),
		history:   NewHistory("", DefaultHistorySize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads commands until exit, end of input or ctx is done. Command
// errors are printed and do not stop the loop.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "warning: load history: %v\n", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.output, "warning: save history: %v\n", err)
		}
	}()

	reader := bufio.NewReader(r.input)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) == "" {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		r.history.Add(strings.Join(args, " "))

		if stop := r.execute(ctx, args); stop {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

// execute runs one command line and reports whether the loop should end.
func (r *REPL) execute(ctx context.Context, args []string) bool {
	switch args[0] {
	case "exit", "quit":
		return true
	case "help":
		fmt.Fprintf(r.output, "commands: %s\n", strings.Join(r.completer.Commands(), ", "))
		return false
	case "history":
		for i, entry := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, entry)
		}
		return false
	}

	if !r.completer.Known(args[0]) {
		msg := fmt.Sprintf("unknown command %q", args[0])
		if s := r.completer.Complete(args[0][:1]); len(s) > 0 {
			msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(s, ", "))
		}
		fmt.Fprintf(r.output, "Error: %s\n", msg)
		return false
	}

	if err := r.exec.Execute(ctx, args); err != nil {
		fmt.Fprintf(r.output, "Error: %v\n", err)
	}
	return false
}
