package tlrpc

import (
	"fmt"

	"github.com/buger/jsonparser"
)

// NoClient is the client id reported for envelopes without @client_id.
const NoClient = -1

// Discriminant returns the top-level @type of doc. It never fails: a
// missing, non-string, or unparsable value reports false.
func Discriminant(doc []byte) (string, bool) {
	s, err := jsonparser.GetString(doc, FieldType)
	if err != nil {
		return "", false
	}
	return s, true
}

// ClientID returns the top-level @client_id of doc, or NoClient.
func ClientID(doc []byte) int {
	n, err := jsonparser.GetInt(doc, FieldClientID)
	if err != nil {
		return NoClient
	}
	return int(n)
}

// Extra returns the top-level @extra token of doc. Non-string tokens are
// reported as absent since this bridge only issues string tokens.
func Extra(doc []byte) (string, bool) {
	s, err := jsonparser.GetString(doc, FieldExtra)
	if err != nil {
		return "", false
	}
	return s, true
}

// CheckType fails when doc has no @type or when it differs from expected.
func CheckType(doc []byte, expected string) error {
	got, ok := Discriminant(doc)
	if !ok {
		return fmt.Errorf("%w (expected %q)", ErrNoDiscriminant, expected)
	}
	if got != expected {
		return &TypeMismatchError{Want: expected, Got: got}
	}
	return nil
}
