package obd

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps names to descriptors. It is read-only once built.
type Registry struct {
	byName map[Name]PID
	byKey  map[string]Name
}

var aliases = map[string]Name{
	"coolant":      CoolantTemp,
	"coolant_temp": CoolantTemp,
	"throttle":     ThrottlePos,
	"iat":          IntakeTemp,
}

// NewRegistry builds a registry from pids, or from Standard when none are
// given.
func NewRegistry(pids ...PID) *Registry {
	if len(pids) == 0 {
		pids = Standard
	}
	r := &Registry{
		byName: make(map[Name]PID, len(pids)),
		byKey:  make(map[string]Name, len(pids)+len(aliases)),
	}
	for _, p := range pids {
		r.byName[p.Name] = p
		r.byKey[p.Name.String()] = p.Name
	}
	for alias, n := range aliases {
		if _, ok := r.byName[n]; ok {
			r.byKey[alias] = n
		}
	}
	return r
}

func (r *Registry) Lookup(n Name) (PID, error) {
	p, ok := r.byName[n]
	if !ok {
		return PID{}, fmt.Errorf("%s: %w", n, ErrUnknownPID)
	}
	return p, nil
}

// Parse resolves a user supplied name, case-insensitively.
func (r *Registry) Parse(s string) (PID, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	n, ok := r.byKey[key]
	if !ok {
		return PID{}, fmt.Errorf("%q: %w", s, ErrUnknownPID)
	}
	return r.byName[n], nil
}

// Numeric returns the names of the numeric PIDs, sorted, for help text.
func (r *Registry) Numeric() []string {
	var out []string
	for n, p := range r.byName {
		if p.Numeric() {
			out = append(out, n.String())
		}
	}
	sort.Strings(out)
	return out
}
