package tlrpc

import (
	"fmt"
	"slices"
)

// Family is a closed polymorphic family: every concrete variant is listed up
// front, and resolution by discriminant never falls back to a default.
type Family[V Object] struct {
	name  string
	ctors map[string]func() V
	order []string
}

// NewFamily registers the given variant constructors under the @type each
// produces. It panics on an empty or duplicate discriminant, since families
// are declared at package init.
func NewFamily[V Object](name string, ctors ...func() V) *Family[V] {
	f := &Family[V]{
		name:  name,
		ctors: make(map[string]func() V, len(ctors)),
	}
	for _, ctor := range ctors {
		t := ctor().TypeName()
		if t == "" {
			panic(fmt.Sprintf("tlrpc: family %s: variant without @type", name))
		}
		if _, dup := f.ctors[t]; dup {
			panic(fmt.Sprintf("tlrpc: family %s: duplicate variant %q", name, t))
		}
		f.ctors[t] = ctor
		f.order = append(f.order, t)
	}
	return f
}

// Name returns the family name used in error messages.
func (f *Family[V]) Name() string { return f.name }

// Variants returns the registered discriminants in declaration order.
func (f *Family[V]) Variants() []string { return slices.Clone(f.order) }

// Resolve maps a discriminant to the constructor of its concrete variant.
func (f *Family[V]) Resolve(discriminant string) (func() V, error) {
	ctor, ok := f.ctors[discriminant]
	if !ok {
		return nil, &UnknownVariantError{Family: f.name, Discriminant: discriminant}
	}
	return ctor, nil
}

// Decode reads the nested @type of data and decodes into the matching variant.
func (f *Family[V]) Decode(data []byte) (V, error) {
	var zero V
	t, ok := Discriminant(data)
	if !ok {
		return zero, &MissingFieldError{Type: f.name, Field: FieldType}
	}
	ctor, err := f.Resolve(t)
	if err != nil {
		return zero, err
	}
	v := ctor()
	if err := decodeObject(data, v); err != nil {
		return zero, err
	}
	return v, nil
}
