package tlrpc

import (
	"encoding/json"
)

// Bool declares a boolean field.
func Bool(name string, p *bool, opts ...Option) Field {
	return newField(name, KindBool, scalarCodec[bool]{p: p, elem: BoolElem()}, opts)
}

// Int32 declares a 32-bit integer field. Out-of-range values fail on decode.
func Int32(name string, p *int32, opts ...Option) Field {
	return newField(name, KindInt32, scalarCodec[int32]{p: p, elem: Int32Elem()}, opts)
}

// Int64 declares a 64-bit integer field. Decode accepts both JSON numbers and
// decimal strings, since TDLib sends 64-bit values as strings.
func Int64(name string, p *int64, opts ...Option) Field {
	return newField(name, KindInt64, scalarCodec[int64]{p: p, elem: Int64Elem()}, opts)
}

// Float64 declares a floating point field.
func Float64(name string, p *float64, opts ...Option) Field {
	return newField(name, KindFloat64, scalarCodec[float64]{p: p, elem: Float64Elem()}, opts)
}

// String declares a string field that is always present on encode.
func String(name string, p *string, opts ...Option) Field {
	return newField(name, KindString, scalarCodec[string]{p: p, elem: StringElem()}, opts)
}

// NullableString declares an optional string held by pointer. A nil pointer
// is omitted on encode, unless EmptyAsAbsent is set, in which case it is
// written as "" and "" decodes back to nil.
func NullableString(name string, p **string, opts ...Option) Field {
	f := newField(name, KindString, nil, append([]Option{Optional()}, opts...))
	f.codec = &nullableStringCodec{p: p, emptyAsAbsent: f.EmptyAsAbsent}
	return f
}

// Record declares a nested record held by pointer.
func Record[T any, P Ptr[T]](name string, p *P, opts ...Option) Field {
	return newField(name, KindObject, &ptrCodec[T, P]{p: p, elem: RecordElem[T, P]()}, opts)
}

// OneOf declares a nested record that belongs to a closed variant family.
func OneOf[V Object](name string, p *V, fam *Family[V], opts ...Option) Field {
	return newField(name, KindObject, &variantCodec[V]{p: p, elem: OneOfElem(fam)}, opts)
}

// Array declares a JSON array field. A nil slice encodes as null.
func Array[T any](name string, p *[]T, elem Elem[T], opts ...Option) Field {
	return newField(name, KindArray, &sliceCodec[T]{p: p, elem: ArrayElem(elem)}, opts)
}

// Raw declares a field whose JSON is passed through untouched.
func Raw(name string, p *json.RawMessage, opts ...Option) Field {
	f := newField(name, KindRaw, nil, opts)
	f.codec = &rawCodec{p: p, optional: f.Optional}
	return f
}

// scalarCodec binds a value that is always written.
type scalarCodec[T any] struct {
	p    *T
	elem Elem[T]
}

func (c scalarCodec[T]) absent() bool           { return false }
func (c scalarCodec[T]) encode(w *writer) error { return c.elem.enc(w, *c.p) }
func (c scalarCodec[T]) decodeNull()            {}

func (c scalarCodec[T]) decode(raw []byte) error {
	v, err := c.elem.dec(raw)
	if err != nil {
		return err
	}
	*c.p = v
	return nil
}

type nullableStringCodec struct {
	p             **string
	emptyAsAbsent bool
}

func (c *nullableStringCodec) absent() bool {
	return *c.p == nil && !c.emptyAsAbsent
}

func (c *nullableStringCodec) encode(w *writer) error {
	if *c.p == nil {
		w.string("")
		return nil
	}
	w.string(**c.p)
	return nil
}

func (c *nullableStringCodec) decodeNull() {
	*c.p = nil
}

func (c *nullableStringCodec) decode(raw []byte) error {
	s, err := StringElem().dec(raw)
	if err != nil {
		return err
	}
	if s == "" && c.emptyAsAbsent {
		*c.p = nil
		return nil
	}
	*c.p = &s
	return nil
}

type ptrCodec[T any, P Ptr[T]] struct {
	p    *P
	elem Elem[P]
}

func (c *ptrCodec[T, P]) absent() bool { return *c.p == nil }

func (c *ptrCodec[T, P]) encode(w *writer) error {
	if *c.p == nil {
		return ErrNilRecord
	}
	return c.elem.enc(w, *c.p)
}

func (c *ptrCodec[T, P]) decodeNull() {
	*c.p = nil
}

func (c *ptrCodec[T, P]) decode(raw []byte) error {
	v, err := c.elem.dec(raw)
	if err != nil {
		return err
	}
	*c.p = v
	return nil
}

type variantCodec[V Object] struct {
	p    *V
	elem Elem[V]
}

func (c *variantCodec[V]) absent() bool { return isNil(*c.p) }

func (c *variantCodec[V]) encode(w *writer) error {
	if isNil(*c.p) {
		return ErrNilRecord
	}
	return c.elem.enc(w, *c.p)
}

func (c *variantCodec[V]) decodeNull() {
	var zero V
	*c.p = zero
}

func (c *variantCodec[V]) decode(raw []byte) error {
	v, err := c.elem.dec(raw)
	if err != nil {
		return err
	}
	*c.p = v
	return nil
}

type sliceCodec[T any] struct {
	p    *[]T
	elem Elem[[]T]
}

// Arrays are never left off the wire: a nil slice is written as null.
func (c *sliceCodec[T]) absent() bool           { return false }
func (c *sliceCodec[T]) encode(w *writer) error { return c.elem.enc(w, *c.p) }

func (c *sliceCodec[T]) decodeNull() {
	*c.p = nil
}

func (c *sliceCodec[T]) decode(raw []byte) error {
	v, err := c.elem.dec(raw)
	if err != nil {
		return err
	}
	*c.p = v
	return nil
}

type rawCodec struct {
	p        *json.RawMessage
	optional bool
}

func (c *rawCodec) absent() bool { return c.optional && *c.p == nil }

func (c *rawCodec) encode(w *writer) error { return RawElem().enc(w, *c.p) }

func (c *rawCodec) decodeNull() {
	if c.optional {
		*c.p = nil
	} else {
		*c.p = json.RawMessage("null")
	}
}

func (c *rawCodec) decode(raw []byte) error {
	v, err := RawElem().dec(raw)
	if err != nil {
		return err
	}
	*c.p = v
	return nil
}

// isNil reports whether an interface-typed record is unset.
func isNil(o Object) bool {
	return o == nil
}
