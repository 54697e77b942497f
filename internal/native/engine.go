// Package native defines the narrow transport contract to a TDLib engine
// instance. All three primitives exchange UTF-8 JSON text.
package native

import (
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by engines that have been shut down.
var ErrClosed = errors.New("native: engine closed")

// Engine is one native TDLib instance. Several logical clients, addressed by
// @client_id, may share it.
type Engine interface {
	// CreateClient allocates a new logical client id. TDLib starts the
	// client lazily, on the first request sent to it.
	CreateClient() (int, error)

	// Send submits a request to clientID without waiting. The reply is
	// delivered later through Poll, tagged with the request's @extra.
	Send(clientID int, request string) error

	// Execute runs a request synchronously and returns its only reply.
	// TDLib only accepts a small set of methods here.
	Execute(request string) (string, error)

	// Poll blocks until an envelope is available or timeout elapses. ok is
	// false on timeout. Poll must not be called concurrently.
	Poll(timeout time.Duration) (envelope string, ok bool, err error)
}

// Serialized wraps an Engine so that Poll calls never overlap. Send and
// Execute are passed through untouched: the engine supports them
// concurrently with a poll.
type Serialized struct {
	Engine
	pollMu sync.Mutex
}

// Serialize returns e wrapped in a Serialized, or e itself if it already is.
func Serialize(e Engine) *Serialized {
	if s, ok := e.(*Serialized); ok {
		return s
	}
	return &Serialized{Engine: e}
}

// Poll implements Engine.
func (s *Serialized) Poll(timeout time.Duration) (string, bool, error) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	return s.Engine.Poll(timeout)
}
