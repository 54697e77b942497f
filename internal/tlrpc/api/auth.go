// Package api holds the TDLib records the bridge speaks. Each record binds
// its wire schema explicitly through Fields.
package api

import "github.com/flemzord/tgbridge/internal/tlrpc"

// CheckAuthenticationCode submits the login code received by a user account.
type CheckAuthenticationCode struct {
	Code string
}

func (*CheckAuthenticationCode) TypeName() string { return "checkAuthenticationCode" }

func (r *CheckAuthenticationCode) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.String("code", &r.Code)}
}

// CheckAuthenticationBotToken logs in as a bot.
type CheckAuthenticationBotToken struct {
	Token string
}

func (*CheckAuthenticationBotToken) TypeName() string { return "checkAuthenticationBotToken" }

func (r *CheckAuthenticationBotToken) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.String("token", &r.Token)}
}

// CheckDatabaseEncryptionKey unlocks the local TDLib database.
type CheckDatabaseEncryptionKey struct {
	EncryptionKey string
}

func (*CheckDatabaseEncryptionKey) TypeName() string { return "checkDatabaseEncryptionKey" }

func (r *CheckDatabaseEncryptionKey) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.String("encryption_key", &r.EncryptionKey)}
}

// SetAuthenticationPhoneNumber starts a user-account login.
type SetAuthenticationPhoneNumber struct {
	PhoneNumber string
}

func (*SetAuthenticationPhoneNumber) TypeName() string { return "setAuthenticationPhoneNumber" }

func (r *SetAuthenticationPhoneNumber) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.String("phone_number", &r.PhoneNumber)}
}

// TdlibParameters is the anonymous parameter block of SetTdlibParameters.
type TdlibParameters struct {
	DatabaseDirectory      string
	UseMessageDatabase     bool
	UseSecretChats         bool
	APIID                  int32
	APIHash                string
	SystemLanguageCode     string
	DeviceModel            string
	ApplicationVersion     string
	EnableStorageOptimizer bool
	UseTestDC              bool
}

// TypeName is empty: the block is written without @type.
func (*TdlibParameters) TypeName() string { return "" }

func (p *TdlibParameters) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.String("database_directory", &p.DatabaseDirectory),
		tlrpc.Bool("use_message_database", &p.UseMessageDatabase),
		tlrpc.Bool("use_secret_chats", &p.UseSecretChats),
		tlrpc.Int32("api_id", &p.APIID),
		tlrpc.String("api_hash", &p.APIHash),
		tlrpc.String("system_language_code", &p.SystemLanguageCode),
		tlrpc.String("device_model", &p.DeviceModel),
		tlrpc.String("application_version", &p.ApplicationVersion),
		tlrpc.Bool("enable_storage_optimizer", &p.EnableStorageOptimizer),
		tlrpc.Bool("use_test_dc", &p.UseTestDC),
	}
}

// SetTdlibParameters answers authorizationStateWaitTdlibParameters.
type SetTdlibParameters struct {
	Parameters *TdlibParameters
}

func (*SetTdlibParameters) TypeName() string { return "setTdlibParameters" }

func (r *SetTdlibParameters) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.Record("parameters", &r.Parameters)}
}

// SetLogVerbosityLevel adjusts TDLib's internal logging. It is issued
// synchronously when the bridge starts.
type SetLogVerbosityLevel struct {
	NewVerbosityLevel int32
}

func (*SetLogVerbosityLevel) TypeName() string { return "setLogVerbosityLevel" }

func (r *SetLogVerbosityLevel) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.Int32("new_verbosity_level", &r.NewVerbosityLevel)}
}

// Ok is the empty success reply.
type Ok struct{}

func (*Ok) TypeName() string      { return "ok" }
func (*Ok) Fields() []tlrpc.Field { return nil }

// Close asks a client to shut down; it answers Ok and later
// authorizationStateClosed.
type Close struct{}

func (*Close) TypeName() string      { return "close" }
func (*Close) Fields() []tlrpc.Field { return nil }

// GetMe fetches the logged-in user.
type GetMe struct{}

func (*GetMe) TypeName() string      { return "getMe" }
func (*GetMe) Fields() []tlrpc.Field { return nil }

// User is a trimmed user record.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  *string
}

func (*User) TypeName() string { return "user" }

func (u *User) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Int64("id", &u.ID),
		tlrpc.String("first_name", &u.FirstName),
		tlrpc.String("last_name", &u.LastName, tlrpc.Optional()),
		tlrpc.NullableString("username", &u.Username, tlrpc.EmptyAsAbsent()),
	}
}
