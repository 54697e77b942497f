package tlrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Elem describes how a single value of type T is written to and read from
// JSON. Elems compose: ArrayElem(ArrayElem(RecordElem[...]())) describes an
// array of arrays of records.
type Elem[T any] struct {
	kind Kind
	enc  func(w *writer, v T) error
	dec  func(raw []byte) (T, error)
}

// Kind returns the wire kind produced by the element.
func (e Elem[T]) Kind() Kind { return e.kind }

var (
	errNotBool   = errors.New("not a boolean")
	errNotNumber = errors.New("not a number")
	errNotString = errors.New("not a string")
	errNotArray  = errors.New("not an array")
	errNonFinite = errors.New("non-finite number")
)

// BoolElem reads and writes JSON booleans.
func BoolElem() Elem[bool] {
	return Elem[bool]{
		kind: KindBool,
		enc: func(w *writer, v bool) error {
			w.buf = strconv.AppendBool(w.buf, v)
			return nil
		},
		dec: func(raw []byte) (bool, error) {
			switch string(raw) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
			return false, errNotBool
		},
	}
}

// Int32Elem reads and writes 32-bit integers. Values outside the int32 range
// fail instead of being truncated.
func Int32Elem() Elem[int32] {
	return Elem[int32]{
		kind: KindInt32,
		enc: func(w *writer, v int32) error {
			w.buf = strconv.AppendInt(w.buf, int64(v), 10)
			return nil
		},
		dec: func(raw []byte) (int32, error) {
			n, err := parseInt(raw, 32, false)
			return int32(n), err
		},
	}
}

// Int64Elem reads and writes 64-bit integers. Both numbers and decimal
// strings are accepted on decode.
func Int64Elem() Elem[int64] {
	return Elem[int64]{
		kind: KindInt64,
		enc: func(w *writer, v int64) error {
			w.buf = strconv.AppendInt(w.buf, v, 10)
			return nil
		},
		dec: func(raw []byte) (int64, error) {
			return parseInt(raw, 64, true)
		},
	}
}

// Float64Elem reads and writes floating point numbers.
func Float64Elem() Elem[float64] {
	return Elem[float64]{
		kind: KindFloat64,
		enc: func(w *writer, v float64) error {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errNonFinite
			}
			w.buf = strconv.AppendFloat(w.buf, v, 'g', -1, 64)
			return nil
		},
		dec: func(raw []byte) (float64, error) {
			if len(raw) == 0 || raw[0] == '"' || raw[0] == '{' || raw[0] == '[' {
				return 0, errNotNumber
			}
			f, err := strconv.ParseFloat(string(raw), 64)
			if err != nil {
				return 0, errNotNumber
			}
			return f, nil
		},
	}
}

// StringElem reads and writes JSON strings.
func StringElem() Elem[string] {
	return Elem[string]{
		kind: KindString,
		enc: func(w *writer, v string) error {
			w.string(v)
			return nil
		},
		dec: func(raw []byte) (string, error) {
			if len(raw) == 0 || raw[0] != '"' {
				return "", errNotString
			}
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return "", err
			}
			return s, nil
		},
	}
}

// RawElem passes JSON through untouched. A nil value is written as null.
func RawElem() Elem[json.RawMessage] {
	return Elem[json.RawMessage]{
		kind: KindRaw,
		enc: func(w *writer, v json.RawMessage) error {
			if v == nil {
				w.buf = append(w.buf, "null"...)
				return nil
			}
			if !json.Valid(v) {
				return errors.New("invalid raw JSON")
			}
			w.buf = append(w.buf, v...)
			return nil
		},
		dec: func(raw []byte) (json.RawMessage, error) {
			return bytes.Clone(raw), nil
		},
	}
}

// RecordElem reads and writes nested records of concrete type T.
func RecordElem[T any, P Ptr[T]]() Elem[P] {
	return Elem[P]{
		kind: KindObject,
		enc: func(w *writer, v P) error {
			if v == nil {
				return ErrNilRecord
			}
			return w.object(v, "")
		},
		dec: func(raw []byte) (P, error) {
			p := P(new(T))
			if err := decodeObject(raw, p); err != nil {
				return nil, err
			}
			return p, nil
		},
	}
}

// OneOfElem reads and writes members of a closed variant family. The
// concrete type is chosen by the nested @type on decode.
func OneOfElem[V Object](fam *Family[V]) Elem[V] {
	return Elem[V]{
		kind: KindObject,
		enc: func(w *writer, v V) error {
			if isNil(v) {
				return ErrNilRecord
			}
			if _, err := fam.Resolve(v.TypeName()); err != nil {
				return err
			}
			return w.object(v, "")
		},
		dec: fam.Decode,
	}
}

// ArrayElem reads and writes JSON arrays of e. A nil slice is written as null.
func ArrayElem[T any](e Elem[T]) Elem[[]T] {
	return Elem[[]T]{
		kind: KindArray,
		enc: func(w *writer, v []T) error {
			if v == nil {
				w.buf = append(w.buf, "null"...)
				return nil
			}
			w.buf = append(w.buf, '[')
			for i, item := range v {
				if i > 0 {
					w.buf = append(w.buf, ',')
				}
				if err := e.enc(w, item); err != nil {
					return fmt.Errorf("[%d]: %w", i, err)
				}
			}
			w.buf = append(w.buf, ']')
			return nil
		},
		dec: func(raw []byte) ([]T, error) {
			if isNull(raw) {
				return nil, nil
			}
			if len(raw) == 0 || raw[0] != '[' {
				return nil, errNotArray
			}
			var items []json.RawMessage
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, err
			}
			out := make([]T, 0, len(items))
			for i, item := range items {
				v, err := e.dec(item)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				out = append(out, v)
			}
			return out, nil
		},
	}
}

// parseInt parses a JSON integer of the given bit size. Quoted decimal
// strings are accepted when allowString is set.
func parseInt(raw []byte, bits int, allowString bool) (int64, error) {
	s := string(raw)
	if len(s) >= 2 && s[0] == '"' {
		if !allowString {
			return 0, errNotNumber
		}
		s = s[1 : len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("value %s overflows int%d", s, bits)
		}
		return 0, errNotNumber
	}
	return n, nil
}

func isNull(raw []byte) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
