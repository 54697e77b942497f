package tlrpc

import (
	"encoding/json"
	"fmt"
)

// Encode converts a record into a JSON document. Fields are written in
// schema order, preceded by @type when the record has one.
func Encode(obj Object) ([]byte, error) {
	return EncodeWithExtra(obj, "")
}

// EncodeWithExtra is Encode with an @extra correlation token appended.
// An empty extra is omitted.
func EncodeWithExtra(obj Object, extra string) ([]byte, error) {
	if isNil(obj) {
		return nil, ErrNilRecord
	}
	w := &writer{buf: make([]byte, 0, 128)}
	if err := w.object(obj, extra); err != nil {
		name := obj.TypeName()
		if name == "" {
			name = fmt.Sprintf("%T", obj)
		}
		return nil, fmt.Errorf("tlrpc: encode %s: %w", name, err)
	}
	return w.buf, nil
}

// writer accumulates compact JSON.
type writer struct {
	buf []byte
}

func (w *writer) string(s string) {
	// json.Marshal never fails for a string value.
	b, _ := json.Marshal(s)
	w.buf = append(w.buf, b...)
}

func (w *writer) key(name string, first bool) {
	if !first {
		w.buf = append(w.buf, ',')
	}
	w.string(name)
	w.buf = append(w.buf, ':')
}

// object writes obj as a JSON object. extra, when set, is appended as @extra.
func (w *writer) object(obj Object, extra string) error {
	w.buf = append(w.buf, '{')
	first := true
	if t := obj.TypeName(); t != "" {
		w.key(FieldType, first)
		w.string(t)
		first = false
	}
	for _, f := range obj.Fields() {
		if !f.Kind.valid() || f.codec == nil {
			return fmt.Errorf("field %q: %w (%s)", f.Name, ErrUnsupportedKind, f.Kind)
		}
		if f.codec.absent() {
			if !f.Optional {
				return fmt.Errorf("field %q: %w", f.Name, ErrNilRecord)
			}
			continue
		}
		w.key(f.Name, first)
		first = false
		if err := f.codec.encode(w); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	if extra != "" {
		w.key(FieldExtra, first)
		w.string(extra)
	}
	w.buf = append(w.buf, '}')
	return nil
}
