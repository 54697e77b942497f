package tlrpc

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedKind is returned when a schema row carries a kind the
	// codec cannot handle. It always indicates a programming error.
	ErrUnsupportedKind = errors.New("tlrpc: unsupported field kind")

	// ErrNoDiscriminant is returned when a document lacks @type.
	ErrNoDiscriminant = errors.New("tlrpc: missing @type")

	// ErrNilRecord is returned when a required nested record is nil on encode.
	ErrNilRecord = errors.New("tlrpc: required record is nil")

	// ErrNotObject is returned when a document is not a JSON object.
	ErrNotObject = errors.New("tlrpc: document is not a JSON object")
)

// MissingFieldError reports a required field absent from a document.
type MissingFieldError struct {
	Type  string
	Field string
}

func (e *MissingFieldError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("tlrpc: missing required field %q", e.Field)
	}
	return fmt.Sprintf("tlrpc: %s: missing required field %q", e.Type, e.Field)
}

// UnknownVariantError reports a discriminant outside a closed family.
type UnknownVariantError struct {
	Family       string
	Discriminant string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("tlrpc: unknown variant %q for %s", e.Discriminant, e.Family)
}

// FieldTypeError reports a present value that cannot be converted to the
// field's declared kind, including numeric values out of range.
type FieldTypeError struct {
	Field string
	Kind  Kind
	Err   error
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("tlrpc: field %q: cannot decode as %s: %v", e.Field, e.Kind, e.Err)
}

func (e *FieldTypeError) Unwrap() error { return e.Err }

// TypeMismatchError reports a document whose @type differs from the expected one.
type TypeMismatchError struct {
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("tlrpc: unexpected @type %q, want %q", e.Got, e.Want)
}

// RemoteError is a failure reported by TDLib through the "error" variant.
// It is itself a record so it can be decoded like any other reply.
type RemoteError struct {
	Code    int32
	Message string
}

var _ Object = (*RemoteError)(nil)

// TypeName implements Object.
func (e *RemoteError) TypeName() string { return TypeError }

// Fields implements Object.
func (e *RemoteError) Fields() []Field {
	return []Field{
		Int32("code", &e.Code),
		String("message", &e.Message),
	}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("tdlib: %d: %s", e.Code, e.Message)
}

// RemoteErrorOf returns a *RemoteError when doc is an "error" envelope and
// nil otherwise. A malformed error envelope still yields a RemoteError that
// carries the raw document as its message.
func RemoteErrorOf(doc []byte) error {
	if t, _ := Discriminant(doc); t != TypeError {
		return nil
	}
	rerr, err := Decode[RemoteError](doc)
	if err != nil {
		return &RemoteError{Message: string(doc)}
	}
	return rerr
}
