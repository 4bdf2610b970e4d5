package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// HandlerFunc runs a command. The returned string is sent back to the
// channel the command came from; an empty string sends nothing.
type HandlerFunc func(ctx context.Context, b *Bot, inv *Invocation) (string, error)

// Command describes one chat command.
type Command struct {
	// Name is matched case-insensitively after the prefix.
	Name    string
	Aliases []string

	// Usage is shown by help and after ErrUsage, without the prefix
	// (e.g. "wrote <words>").
	Usage       string
	Description string

	// GuildOnly commands are refused in direct messages.
	GuildOnly bool

	Run HandlerFunc
}

// Invocation is a single run of a command.
type Invocation struct {
	// ID identifies this run in logs and events.
	ID      string
	Message Message

	// Name is the name or alias as typed.
	Name string
	Args []string

	// Prefix is the prefix that was in effect for the message's guild.
	Prefix string
}

// Registry holds commands keyed by lower-cased name and alias.
//
// All methods are thread-safe.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command // by name
	lookup   map[string]*Command // by name and alias
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
		lookup:   make(map[string]*Command),
	}
}

// Register adds cmd. Names and aliases share one namespace.
func (r *Registry) Register(cmd Command) error {
	if cmd.Run == nil {
		return fmt.Errorf("%w: %q has no handler", ErrInvalidCommand, cmd.Name)
	}

	keys := make([]string, 0, 1+len(cmd.Aliases))
	for _, k := range append([]string{cmd.Name}, cmd.Aliases...) {
		key := strings.ToLower(k)
		if key == "" || strings.ContainsAny(key, " \t\n") {
			return fmt.Errorf("%w: bad name %q", ErrInvalidCommand, k)
		}
		keys = append(keys, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if _, exists := r.lookup[key]; exists || seen[key] {
			return fmt.Errorf("%w: %q", ErrDuplicateCommand, key)
		}
		seen[key] = true
	}

	stored := cmd
	stored.Name = keys[0]
	r.commands[keys[0]] = &stored
	for _, key := range keys {
		r.lookup[key] = &stored
	}
	return nil
}

// Lookup finds a command by name or alias, ignoring case.
func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, ok := r.lookup[strings.ToLower(name)]
	if !ok {
		return Command{}, false
	}
	return *cmd, true
}

// Commands returns every command sorted by name.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, *cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered commands (aliases not counted).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}
