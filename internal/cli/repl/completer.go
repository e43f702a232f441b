package repl

import (
	"sort"
	"strings"
)

// Completer provides command completion for the console.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over the given command names.
func NewCompleter(commands ...string) *Completer {
	c := &Completer{commands: append([]string(nil), commands...)}
	sort.Strings(c.commands)
	return c
}

// Commands returns every known command, sorted.
func (c *Completer) Commands() []string {
	return append([]string(nil), c.commands...)
}

// Known reports whether name is an exact command.
func (c *Completer) Known(name string) bool {
	i := sort.SearchStrings(c.commands, name)
	return i < len(c.commands) && c.commands[i] == name
}

// Complete returns completion suggestions for the given prefix.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
