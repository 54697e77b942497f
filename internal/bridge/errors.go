package bridge

import "errors"

var (
	// ErrRateLimited is returned by IssueAsync when the governor denies the
	// call. Nothing was registered or sent.
	ErrRateLimited = errors.New("bridge: rate limited")

	// ErrAbandoned completes a call whose caller stopped waiting, or that
	// was swept after staying pending too long.
	ErrAbandoned = errors.New("bridge: call abandoned")

	// ErrClosed is returned once the dispatcher has been closed. Calls still
	// pending at that moment complete with it.
	ErrClosed = errors.New("bridge: closed")

	// ErrNoExpect is returned when a request does not say which type its
	// reply decodes into.
	ErrNoExpect = errors.New("bridge: request has no expected reply type")

	// ErrDuplicateToken is returned if a freshly generated token is already
	// pending.
	ErrDuplicateToken = errors.New("bridge: correlation token already pending")
)
