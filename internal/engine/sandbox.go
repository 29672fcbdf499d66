package engine

import "sort"

// Sandbox is the isolated state container of an insulated test.
//
// Body closures keep per-test state in the sandbox they receive instead of
// in captured variables, so sibling insulated tests never observe each
// other's state while non-insulated nested tests see their parent's.
type Sandbox struct {
	owner string
	vars  map[string]any
}

func newSandbox(owner string) *Sandbox {
	return &Sandbox{owner: owner, vars: make(map[string]any)}
}

// Owner returns the description of the test that owns the sandbox.
// The engine's root sandbox has an empty owner.
func (s *Sandbox) Owner() string {
	return s.owner
}

// Set stores a value under name.
func (s *Sandbox) Set(name string, value any) {
	s.vars[name] = value
}

// Get returns the value stored under name, or nil.
func (s *Sandbox) Get(name string) any {
	return s.vars[name]
}

// Lookup returns the value stored under name and whether it exists.
func (s *Sandbox) Lookup(name string) (any, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Delete removes name from the sandbox.
func (s *Sandbox) Delete(name string) {
	delete(s.vars, name)
}

// Len returns the number of stored values.
func (s *Sandbox) Len() int {
	return len(s.vars)
}

// Names returns the stored names in sorted order.
func (s *Sandbox) Names() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Vars returns a snapshot copy of the stored values.
func (s *Sandbox) Vars() map[string]any {
	out := make(map[string]any, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}
