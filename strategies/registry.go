package strategies

import "fmt"

// Factory builds a fresh strategy instance of one kind. Every simulation
// loop gets its own instances, so factories must not share mutable state.
type Factory func() (Strategy, error)

// Registry maps strategy kinds to factories. Registration is validated up
// front (a factory is probed once) so the loop only ever iterates kinds that
// are known to construct. Iteration order is registration order, which keeps
// runs deterministic.
type Registry struct {
	kinds     []string
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a kind. It fails on an empty kind, a nil factory, a
// duplicate, a factory that errors, or a strategy whose Kind() disagrees
// with the registered name.
func (r *Registry) Register(kind string, f Factory) error {
	if kind == "" {
		return fmt.Errorf("strategies: empty kind")
	}
	if f == nil {
		return fmt.Errorf("strategies: nil factory for kind %q", kind)
	}
	if _, ok := r.factories[kind]; ok {
		return fmt.Errorf("strategies: kind %q already registered", kind)
	}

	probe, err := f()
	if err != nil {
		return fmt.Errorf("strategies: probe build of %q: %w", kind, err)
	}
	if probe == nil {
		return fmt.Errorf("strategies: factory for %q built nil strategy", kind)
	}
	if probe.Kind() != kind {
		return fmt.Errorf("strategies: factory for %q builds kind %q", kind, probe.Kind())
	}

	r.kinds = append(r.kinds, kind)
	r.factories[kind] = f
	return nil
}

// MustRegister panics on a registration error. Meant for wiring code.
func (r *Registry) MustRegister(kind string, f Factory) {
	if err := r.Register(kind, f); err != nil {
		panic(err)
	}
}

// New builds a fresh instance of the given kind.
func (r *Registry) New(kind string) (Strategy, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("strategies: unknown kind %q", kind)
	}
	return f()
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []string {
	return append([]string(nil), r.kinds...)
}

// Has reports whether a kind is registered.
func (r *Registry) Has(kind string) bool {
	_, ok := r.factories[kind]
	return ok
}
