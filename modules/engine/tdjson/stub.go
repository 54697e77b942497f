//go:build !tdjson

package tdjson

import (
	"github.com/flemzord/tgbridge/internal/native"
)

// Available reports whether the binary was built against libtdjson.
const Available = false

func open(Config) (native.Engine, error) {
	return nil, ErrUnavailable
}
