package api

import (
	"encoding/json"

	"github.com/flemzord/tgbridge/internal/tlrpc"
)

// AuthorizationState is the closed family carried by updateAuthorizationState.
type AuthorizationState interface {
	tlrpc.Object
	isAuthorizationState()
}

// AuthorizationStates resolves AuthorizationState variants by @type.
var AuthorizationStates = tlrpc.NewFamily("AuthorizationState",
	func() AuthorizationState { return new(AuthorizationStateWaitTdlibParameters) },
	func() AuthorizationState { return new(AuthorizationStateWaitEncryptionKey) },
	func() AuthorizationState { return new(AuthorizationStateWaitPhoneNumber) },
	func() AuthorizationState { return new(AuthorizationStateWaitCode) },
	func() AuthorizationState { return new(AuthorizationStateWaitPassword) },
	func() AuthorizationState { return new(AuthorizationStateReady) },
	func() AuthorizationState { return new(AuthorizationStateLoggingOut) },
	func() AuthorizationState { return new(AuthorizationStateClosing) },
	func() AuthorizationState { return new(AuthorizationStateClosed) },
)

type AuthorizationStateWaitTdlibParameters struct{}

func (*AuthorizationStateWaitTdlibParameters) TypeName() string {
	return "authorizationStateWaitTdlibParameters"
}
func (*AuthorizationStateWaitTdlibParameters) Fields() []tlrpc.Field { return nil }
func (*AuthorizationStateWaitTdlibParameters) isAuthorizationState() {}

type AuthorizationStateWaitEncryptionKey struct {
	IsEncrypted bool
}

func (*AuthorizationStateWaitEncryptionKey) TypeName() string {
	return "authorizationStateWaitEncryptionKey"
}

func (s *AuthorizationStateWaitEncryptionKey) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.Bool("is_encrypted", &s.IsEncrypted, tlrpc.Optional())}
}
func (*AuthorizationStateWaitEncryptionKey) isAuthorizationState() {}

type AuthorizationStateWaitPhoneNumber struct{}

func (*AuthorizationStateWaitPhoneNumber) TypeName() string {
	return "authorizationStateWaitPhoneNumber"
}
func (*AuthorizationStateWaitPhoneNumber) Fields() []tlrpc.Field { return nil }
func (*AuthorizationStateWaitPhoneNumber) isAuthorizationState() {}

// AuthorizationStateWaitCode only happens for user accounts; bots never
// reach it.
type AuthorizationStateWaitCode struct {
	CodeInfo json.RawMessage
}

func (*AuthorizationStateWaitCode) TypeName() string { return "authorizationStateWaitCode" }

func (s *AuthorizationStateWaitCode) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.Raw("code_info", &s.CodeInfo, tlrpc.Optional())}
}
func (*AuthorizationStateWaitCode) isAuthorizationState() {}

type AuthorizationStateWaitPassword struct {
	PasswordHint *string
}

func (*AuthorizationStateWaitPassword) TypeName() string {
	return "authorizationStateWaitPassword"
}

func (s *AuthorizationStateWaitPassword) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.NullableString("password_hint", &s.PasswordHint, tlrpc.EmptyAsAbsent())}
}
func (*AuthorizationStateWaitPassword) isAuthorizationState() {}

type AuthorizationStateReady struct{}

func (*AuthorizationStateReady) TypeName() string      { return "authorizationStateReady" }
func (*AuthorizationStateReady) Fields() []tlrpc.Field { return nil }
func (*AuthorizationStateReady) isAuthorizationState() {}

type AuthorizationStateLoggingOut struct{}

func (*AuthorizationStateLoggingOut) TypeName() string      { return "authorizationStateLoggingOut" }
func (*AuthorizationStateLoggingOut) Fields() []tlrpc.Field { return nil }
func (*AuthorizationStateLoggingOut) isAuthorizationState() {}

type AuthorizationStateClosing struct{}

func (*AuthorizationStateClosing) TypeName() string      { return "authorizationStateClosing" }
func (*AuthorizationStateClosing) Fields() []tlrpc.Field { return nil }
func (*AuthorizationStateClosing) isAuthorizationState() {}

type AuthorizationStateClosed struct{}

func (*AuthorizationStateClosed) TypeName() string      { return "authorizationStateClosed" }
func (*AuthorizationStateClosed) Fields() []tlrpc.Field { return nil }
func (*AuthorizationStateClosed) isAuthorizationState() {}

// UpdateAuthorizationState is pushed whenever a client's login state changes.
type UpdateAuthorizationState struct {
	AuthorizationState AuthorizationState
}

func (*UpdateAuthorizationState) TypeName() string { return "updateAuthorizationState" }

func (u *UpdateAuthorizationState) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.OneOf("authorization_state", &u.AuthorizationState, AuthorizationStates),
	}
}
