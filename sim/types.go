package sim

import "fmt"

// Type is a symbolic population type. Types are compared by name.
type Type string

// Sampled is the reserved type of individuals that have become observed
// tips of the genealogy. It may appear as a product but never as a reactant.
const Sampled Type = "sampled"

// TypeRegistry is the immutable set of types declared by a model.
// Sampled is always a member and is never listed by Types.
type TypeRegistry struct {
	types []Type
	index map[Type]int
}

// NewTypeRegistry builds a registry from declared type names, preserving order.
// Empty, duplicate and reserved names are configuration errors.
func NewTypeRegistry(names []string) (*TypeRegistry, error) {
	r := &TypeRegistry{
		types: make([]Type, 0, len(names)),
		index: make(map[Type]int, len(names)+1),
	}
	for i, name := range names {
		field := fmt.Sprintf("types[%d]", i)
		if name == "" {
			return nil, configErrorf(field, "type name must not be empty")
		}
		t := Type(name)
		if t == Sampled {
			return nil, configErrorf(field, "%q is reserved for sampled individuals", name)
		}
		if _, dup := r.index[t]; dup {
			return nil, configErrorf(field, "duplicate type %q", name)
		}
		r.index[t] = len(r.types)
		r.types = append(r.types, t)
	}
	return r, nil
}

// Lookup resolves a type name. The Sampled sentinel always resolves.
func (r *TypeRegistry) Lookup(name string) (Type, error) {
	t := Type(name)
	if r.Contains(t) {
		return t, nil
	}
	return "", &ConfigError{Reason: fmt.Sprintf("type %q is not declared", name), Err: ErrUnknownType}
}

// Contains reports whether t is a declared type or Sampled.
func (r *TypeRegistry) Contains(t Type) bool {
	if t == Sampled {
		return true
	}
	_, ok := r.index[t]
	return ok
}

// Types returns the declared types in declaration order.
func (r *TypeRegistry) Types() []Type {
	out := make([]Type, len(r.types))
	copy(out, r.types)
	return out
}

// Len returns the number of declared types, not counting Sampled.
func (r *TypeRegistry) Len() int {
	return len(r.types)
}
