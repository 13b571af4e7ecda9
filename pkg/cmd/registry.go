package cmd

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultRegistry is the registry adapters use unless given another one.
var DefaultRegistry = NewRegistry()

// Registry stores commands by lower-cased name and alias. It does not
// dispatch. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	aliases  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		aliases:  make(map[string]string),
	}
}

// Register adds c under its name and any aliases found on its root command.
// A later command with the same name replaces the earlier one; an alias that
// collides with another command's name is an error.
func (r *Registry) Register(c Command) error {
	name := strings.ToLower(c.Name())
	if name == "" {
		return fmt.Errorf("command has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var aliases []string
	if a, ok := Root(c).(Aliased); ok {
		aliases = a.Aliases()
	}
	for _, alias := range aliases {
		alias = strings.ToLower(alias)
		if _, taken := r.commands[alias]; taken && alias != name {
			return fmt.Errorf("alias %q of %q collides with a command", alias, name)
		}
	}

	r.commands[name] = c
	for _, alias := range aliases {
		r.aliases[strings.ToLower(alias)] = name
	}
	return nil
}

// Get looks a command up by name or alias, case-insensitively. Nil if absent.
func (r *Registry) Get(name string) Command {
	name = strings.ToLower(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.commands[name]; ok {
		return c
	}
	if target, ok := r.aliases[name]; ok {
		return r.commands[target]
	}
	return nil
}

// GetAll returns the registered commands sorted by name.
func (r *Registry) GetAll() []Command {
	r.mu.RLock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}
