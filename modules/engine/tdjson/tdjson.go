//go:build tdjson

package tdjson

/*
#cgo LDFLAGS: -ltdjson
#include <stdlib.h>
#include <td/telegram/td_json_client.h>
*/
import "C"

import (
	"errors"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/flemzord/tgbridge/internal/native"
)

// Available reports whether the binary was built against libtdjson.
const Available = true

// engine binds the client-id based td_json_client API. One instance serves
// every client in the process.
type engine struct {
	closed atomic.Bool
}

var _ native.Engine = (*engine)(nil)

func open(Config) (native.Engine, error) {
	return &engine{}, nil
}

func (e *engine) CreateClient() (int, error) {
	if e.closed.Load() {
		return 0, native.ErrClosed
	}
	return int(C.td_create_client_id()), nil
}

func (e *engine) Send(clientID int, request string) error {
	if e.closed.Load() {
		return native.ErrClosed
	}
	cs := C.CString(request)
	defer C.free(unsafe.Pointer(cs))
	C.td_send(C.int(clientID), cs)
	return nil
}

// Execute copies the reply while still on the calling thread: td_execute
// returns a thread-local buffer that the next td_execute on that thread
// overwrites.
func (e *engine) Execute(request string) (string, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cs := C.CString(request)
	defer C.free(unsafe.Pointer(cs))
	res := C.td_execute(cs)
	if res == nil {
		return "", errors.New("tdjson: td_execute returned no result")
	}
	return C.GoString(res), nil
}

// Poll copies the envelope immediately: the buffer returned by td_receive
// is only valid until the next call.
func (e *engine) Poll(timeout time.Duration) (string, bool, error) {
	if e.closed.Load() {
		return "", false, native.ErrClosed
	}
	res := C.td_receive(C.double(timeout.Seconds()))
	if res == nil {
		return "", false, nil
	}
	return C.GoString(res), true, nil
}

func (e *engine) Close() error {
	e.closed.Store(true)
	return nil
}
