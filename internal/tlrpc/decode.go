package tlrpc

import (
	"encoding/json"
	"fmt"
)

// Decode builds a fresh T from a JSON document. On any shape error the
// partially filled value is discarded and nil is returned.
func Decode[T any, P Ptr[T]](data []byte) (P, error) {
	p := P(new(T))
	if err := decodeObject(data, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodeInto is the non-generic form of Decode: newObj supplies the empty
// instance that is populated and returned.
func DecodeInto(data []byte, newObj func() Object) (Object, error) {
	obj := newObj()
	if err := decodeObject(data, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Factory returns a constructor for T usable with DecodeInto.
func Factory[T any, P Ptr[T]]() func() Object {
	return func() Object { return P(new(T)) }
}

func decodeObject(data []byte, obj Object) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return ErrNotObject
	}

	typeName := obj.TypeName()
	if typeName != "" {
		if raw, ok := doc[FieldType]; ok {
			var got string
			if err := json.Unmarshal(raw, &got); err != nil {
				return &FieldTypeError{Field: FieldType, Kind: KindString, Err: errNotString}
			}
			if got != typeName {
				return &TypeMismatchError{Want: typeName, Got: got}
			}
		}
	}

	for _, f := range obj.Fields() {
		if !f.Kind.valid() || f.codec == nil {
			return fmt.Errorf("tlrpc: field %q: %w (%s)", f.Name, ErrUnsupportedKind, f.Kind)
		}
		raw, ok := doc[f.Name]
		if !ok {
			if !f.Optional {
				return &MissingFieldError{Type: typeName, Field: f.Name}
			}
			continue
		}
		if isNull(raw) {
			// Arrays and raw passthrough carry null as a value of their own.
			if f.Optional || f.Kind == KindArray || f.Kind == KindRaw {
				f.codec.decodeNull()
				continue
			}
			return &FieldTypeError{Field: f.Name, Kind: f.Kind, Err: fmt.Errorf("null for required field")}
		}
		if err := f.codec.decode(raw); err != nil {
			if f.Kind == KindObject || f.Kind == KindArray {
				return fmt.Errorf("tlrpc: field %q: %w", f.Name, err)
			}
			return &FieldTypeError{Field: f.Name, Kind: f.Kind, Err: err}
		}
	}
	return nil
}
