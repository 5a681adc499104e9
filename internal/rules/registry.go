package rules

import (
	"errors"
	"fmt"
	"sort"
)

// Errors returned while building rule sets.
var (
	ErrNoResolver      = errors.New("rule has no resolver")
	ErrUnknownKind     = errors.New("unknown rule kind")
	ErrUnknownResolver = errors.New("unknown resolver")
)

// Registry names dynamic resolvers so that rule files can refer to them.
type Registry map[string]Resolver

// Register adds r under name, replacing any previous entry.
func (r Registry) Register(name string, res Resolver) {
	r[name] = res
}

// Lookup returns the resolver registered under name.
func (r Registry) Lookup(name string) (Resolver, error) {
	res, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResolver, name)
	}
	return res, nil
}

// Names returns the registered names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the account of a static resolver, or "<name>()" for a
// named dynamic one.
func Describe(res Resolver) string {
	switch r := res.(type) {
	case Account:
		return string(r)
	case interface{ Name() string }:
		return r.Name() + "()"
	default:
		return "<dynamic>"
	}
}

type namedResolver struct {
	Resolver
	name string
}

func (n namedResolver) Name() string { return n.name }

// Named attaches a stable identifier to a dynamic resolver.
func Named(name string, r Resolver) Resolver {
	return namedResolver{Resolver: r, name: name}
}
