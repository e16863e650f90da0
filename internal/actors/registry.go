package actors

import "fmt"

// Registry holds the closed set of actors for a process. It is constructed
// once at the dependency-injection root and passed by reference into each
// orchestration session; there is no package-level singleton.
type Registry struct {
	proposers   []Actor
	challengers []Actor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an actor under its declared role.
func (r *Registry) Register(a Actor) error {
	if a == nil {
		return fmt.Errorf("cannot register nil actor")
	}

	switch a.Role() {
	case RoleProposer:
		r.proposers = append(r.proposers, a)
	case RoleChallenger:
		r.challengers = append(r.challengers, a)
	default:
		return fmt.Errorf("unknown actor role %q", a.Role())
	}
	return nil
}

// Proposers returns a copy of the registered proposing actors.
func (r *Registry) Proposers() []Actor {
	out := make([]Actor, len(r.proposers))
	copy(out, r.proposers)
	return out
}

// Challengers returns a copy of the registered challenging actors.
func (r *Registry) Challengers() []Actor {
	out := make([]Actor, len(r.challengers))
	copy(out, r.challengers)
	return out
}
