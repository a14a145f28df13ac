// Package commands binds command grammars to ledger operations and turns
// the commands found in a message into replies.
package commands

import (
	"context"
	"sync"

	"github.com/msto63/lendbot/foundation/cmdpattern"
	mdwerror "github.com/msto63/lendbot/foundation/core/error"
	"github.com/msto63/lendbot/internal/source"
)

// Reply is the outcome of one command occurrence. Key selects the reply
// template, Data is passed to it.
type Reply struct {
	Command string
	Key     string
	Data    map[string]interface{}

	// byte offset of the command in the message body
	Offset int
}

// Invocation is one matched command occurrence
type Invocation struct {
	Message *source.Message
	Groups  cmdpattern.Groups
	Text    string
}

// Handler executes a command occurrence
type Handler func(ctx context.Context, inv *Invocation) (*Reply, error)

// Command defines a command grammar and what it does
type Command struct {
	Name        string
	Description string
	Pattern     *cmdpattern.Pattern
	// Kinds restricts the message kinds the command is read from.
	// Empty means every kind.
	Kinds   []source.Kind
	Handler Handler
}

// Usage returns the command's usage line
func (c *Command) Usage() string {
	return c.Pattern.String()
}

// Accepts reports whether the command is read from messages of kind k
func (c *Command) Accepts(k source.Kind) bool {
	if len(c.Kinds) == 0 {
		return true
	}
	for _, kind := range c.Kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// Registry holds the known commands in registration order
type Registry struct {
	mu       sync.RWMutex
	commands []*Command
	byName   map[string]*Command
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Register adds a command
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil || cmd.Name == "" || cmd.Pattern == nil || cmd.Handler == nil {
		return mdwerror.New("command needs a name, a pattern and a handler").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("commands.Register")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[cmd.Name]; exists {
		return mdwerror.Newf("command %s is already registered", cmd.Name).
			WithCode(mdwerror.CodeDuplicateEntry).
			WithOperation("commands.Register").
			WithDetail("command", cmd.Name)
	}

	r.byName[cmd.Name] = cmd
	r.commands = append(r.commands, cmd)
	return nil
}

// Get returns a command by name
func (r *Registry) Get(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, ok := r.byName[name]
	return cmd, ok
}

// Commands returns all commands in registration order
func (r *Registry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*Command(nil), r.commands...)
}
