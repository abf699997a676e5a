package task

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// RegistryProvider initializes and exposes the task registry.
type RegistryProvider interface {
	// Init adds the tasks to the registry using Register on the Registry.
	Init() error

	// Registry retrieves the initialized Registry.
	Registry() *Registry
}

var _ RegistryProvider = (*BaseRegistryProvider)(nil)

// BaseRegistryProvider provides an empty Registry and can be embedded in registry providers
// that override Init.
type BaseRegistryProvider struct {
	registry *Registry
}

// NewBaseRegistryProvider returns a provider with an empty registry.
func NewBaseRegistryProvider() *BaseRegistryProvider {
	return &BaseRegistryProvider{
		registry: NewRegistry(),
	}
}

// Registry returns the Registry.
func (p *BaseRegistryProvider) Registry() *Registry {
	return p.registry
}

// Init is an empty implementation of adding tasks to the registry.
//
// This should be overridden by the embedding registry provider.
func (p *BaseRegistryProvider) Init() error {
	return nil
}

// Registry holds the registered tasks. Tasks are never removed and the registry may be invoked
// concurrently.
type Registry struct {
	mu sync.RWMutex

	defs map[string]Definition
	// order is the task names in registration order.
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:  make(map[string]Definition),
		order: []string{},
	}
}

// Register adds a task.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return errors.New("task name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("task %s: handler is required", def.Name)
	}
	for i, p := range def.Params {
		if p.Name == "" {
			return fmt.Errorf("task %s: parameter %d has no name", def.Name, i)
		}
		if slices.ContainsFunc(def.Params[:i], func(q Param) bool { return q.Name == p.Name }) {
			return fmt.Errorf("task %s: parameter %s declared twice", def.Name, p.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.defs[def.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTaskName, def.Name)
	}

	def.Params = slices.Clone(def.Params)
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)

	return nil
}

// Get returns the named task.
func (r *Registry) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	return def, nil
}

// List returns the registered tasks in registration order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}

	return out
}

// Invoke runs the named task with positional arguments. The handler is only called when exactly
// one argument per parameter is supplied.
func (r *Registry) Invoke(ctx context.Context, name string, env Env, rawArgs []string) error {
	def, err := r.Get(name)
	if err != nil {
		return err
	}

	args, err := bindArgs(def, rawArgs)
	if err != nil {
		return err
	}

	env = env.withDefaults()
	env.Logger = env.Logger.With("task", name, "invocationID", uuid.NewString())

	env.Logger.Debugw("Invoking task", "network", env.Network.Name, "args", rawArgs)

	if err = def.Handler(ctx, env, args); err != nil {
		env.Logger.Errorw("Task failed", "error", err)

		return fmt.Errorf("task %s failed: %w", name, err)
	}

	env.Logger.Debugw("Task completed")

	return nil
}

func bindArgs(def Definition, rawArgs []string) (Args, error) {
	if len(rawArgs) < len(def.Params) {
		missing := def.Params[len(rawArgs)]

		return Args{}, fmt.Errorf("%w: task %s requires <%s> (usage: %s)",
			ErrMissingParameter, def.Name, missing.Name, def.Usage(),
		)
	}
	if len(rawArgs) > len(def.Params) {
		return Args{}, fmt.Errorf("%w: task %s got %q (usage: %s)",
			ErrUnexpectedArgument, def.Name, rawArgs[len(def.Params)], def.Usage(),
		)
	}

	values := make(map[string]string, len(def.Params))
	for i, p := range def.Params {
		values[p.Name] = rawArgs[i]
	}

	return Args{values: values}, nil
}
