// Package task registers named tasks and dispatches invocations to them.
//
// A task is a named handler with positional parameters, such as "increase-time <time>". Tasks are
// registered once at startup through a RegistryProvider and invoked against an Env that carries
// the active network profile.
package task

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/stableyield/deployments/chain/evm"
	"github.com/stableyield/deployments/contracts"
	"github.com/stableyield/deployments/engine/config/network"
	"github.com/stableyield/deployments/pkg/logger"
)

var (
	// ErrUnknownTask is returned when invoking a task name that is not registered.
	ErrUnknownTask = errors.New("unknown task")
	// ErrDuplicateTaskName is returned when registering a task name twice.
	ErrDuplicateTaskName = errors.New("duplicate task name")
	// ErrMissingParameter is returned when fewer arguments than parameters are supplied.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrUnexpectedArgument is returned when more arguments than parameters are supplied.
	ErrUnexpectedArgument = errors.New("unexpected argument")
)

// Handler executes a task.
type Handler func(ctx context.Context, env Env, args Args) error

// Param is a positional parameter of a task.
type Param struct {
	Name        string
	Description string
}

// Definition describes a registered task.
type Definition struct {
	Name        string
	Description string
	// Params are the positional parameters, in order. Every parameter is required.
	Params  []Param
	Handler Handler
}

// Usage returns the invocation syntax, e.g. "increase-time <time>".
func (d Definition) Usage() string {
	var sb strings.Builder
	sb.WriteString(d.Name)
	for _, p := range d.Params {
		sb.WriteString(" <")
		sb.WriteString(p.Name)
		sb.WriteString(">")
	}

	return sb.String()
}

// Args holds the arguments of an invocation, bound to the task's parameters by position.
type Args struct {
	values map[string]string
}

// Get returns the argument bound to the named parameter, or an empty string.
func (a Args) Get(name string) string {
	return a.values[name]
}

// Len returns the number of bound arguments.
func (a Args) Len() int {
	return len(a.values)
}

// ChainLoader connects to the chain of the active network profile. Loaders may be called more
// than once per invocation and must return the same chain.
type ChainLoader func(ctx context.Context) (evm.Chain, error)

// Env is the environment a task runs in.
type Env struct {
	Logger logger.Logger
	// Network is the active profile with secrets substituted.
	Network network.Profile
	// Chain connects to the network on first use. Tasks that never touch the chain do not call it.
	Chain ChainLoader
	// Artifacts provides the contract factories.
	Artifacts *contracts.ArtifactStore
	// Out receives the task output.
	Out io.Writer
}

func (e Env) withDefaults() Env {
	if e.Logger == nil {
		e.Logger = logger.Nop()
	}
	if e.Out == nil {
		e.Out = io.Discard
	}
	if e.Chain == nil {
		e.Chain = func(context.Context) (evm.Chain, error) {
			return evm.Chain{}, errors.New("no chain configured")
		}
	}

	return e
}
