// Package tlrpc converts typed records to and from the dynamic JSON documents
// exchanged with TDLib. Each record declares an explicit schema table through
// Fields(); the codec walks that table instead of reflecting over struct tags.
package tlrpc

// Reserved envelope fields.
const (
	FieldType     = "@type"
	FieldClientID = "@client_id"
	FieldExtra    = "@extra"

	// TypeError is the discriminant TDLib uses for remote-reported failures.
	TypeError = "error"
)

// Object is a record with a statically known set of wire fields.
type Object interface {
	// TypeName returns the @type discriminant written on encode, or "" for
	// anonymous nested shapes that carry no discriminant.
	TypeName() string

	// Fields returns the schema table bound to the receiver's storage,
	// in declaration order.
	Fields() []Field
}

// Ptr constrains a type parameter to a pointer-to-struct record.
type Ptr[T any] interface {
	*T
	Object
}

// Kind identifies how a field is represented on the wire.
type Kind uint8

// Supported field kinds. Anything else is a programming error.
const (
	KindInvalid Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindString
	KindObject
	KindArray
	KindRaw
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindFloat64: "float64",
	KindString:  "string",
	KindObject:  "object",
	KindArray:   "array",
	KindRaw:     "raw",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// valid reports whether k is one of the kinds the codec knows how to handle.
func (k Kind) valid() bool {
	return k > KindInvalid && k <= KindRaw
}

// Field is one row of a record's schema table.
type Field struct {
	// Name is the wire name of the field.
	Name string

	// Kind is the wire representation.
	Kind Kind

	// Optional marks fields whose absence is legal on decode.
	Optional bool

	// EmptyAsAbsent folds "" to absent for optional strings, in both directions.
	EmptyAsAbsent bool

	codec fieldCodec
}

// fieldCodec binds a Field to the storage it reads from and writes to.
type fieldCodec interface {
	// absent reports whether the bound value should be left off the wire.
	absent() bool
	encode(w *writer) error
	// decodeNull resets the bound value after an accepted JSON null.
	decodeNull()
	decode(raw []byte) error
}

// Option adjusts a Field at declaration time.
type Option func(*Field)

// Optional marks the field as legal to omit.
func Optional() Option {
	return func(f *Field) { f.Optional = true }
}

// EmptyAsAbsent declares that an empty string means "absent". It implies Optional.
func EmptyAsAbsent() Option {
	return func(f *Field) {
		f.Optional = true
		f.EmptyAsAbsent = true
	}
}

func newField(name string, kind Kind, codec fieldCodec, opts []Option) Field {
	f := Field{Name: name, Kind: kind, codec: codec}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}
