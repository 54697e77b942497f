// Package sessiontest scripts the TDLib side of the login flow for tests
// that run a session.Manager on a nativetest engine.
package sessiontest

import (
	"fmt"
	"strings"

	"github.com/flemzord/tgbridge/internal/tlrpc"
)

// GoodToken is the only bot token LoginScript accepts.
const GoodToken = "123:good"

// UserID is the id getMe reports for the logged-in bot.
const UserID = 777

// LoginScript answers every request of a TDLib client and, where TDLib
// would, follows the reply with the next authorization state. Install it
// as nativetest.Engine.OnSend.
func LoginScript(clientID int, request string) []string {
	token, _ := tlrpc.Extra([]byte(request))
	method, _ := tlrpc.Discriminant([]byte(request))
	reply := func(body string) string {
		return fmt.Sprintf(`{%s,"@extra":%q,"@client_id":%d}`, body, token, clientID)
	}
	state := func(typ string) string {
		return fmt.Sprintf(`{"@type":"updateAuthorizationState","@client_id":%d,"authorization_state":{"@type":%q}}`, clientID, typ)
	}
	ok := reply(`"@type":"ok"`)

	switch method {
	case "getOption":
		return []string{reply(`"@type":"optionValueString","value":"1.8.0"`), state("authorizationStateWaitTdlibParameters")}
	case "setTdlibParameters":
		return []string{ok, state("authorizationStateWaitEncryptionKey")}
	case "checkDatabaseEncryptionKey":
		return []string{ok, state("authorizationStateWaitPhoneNumber")}
	case "checkAuthenticationBotToken":
		if !strings.Contains(request, GoodToken) {
			return []string{reply(`"@type":"error","code":401,"message":"ACCESS_TOKEN_INVALID"`)}
		}
		return []string{ok, state("authorizationStateReady")}
	case "setAuthenticationPhoneNumber":
		return []string{ok, state("authorizationStateWaitCode")}
	case "getMe":
		return []string{reply(fmt.Sprintf(`"@type":"user","id":%d,"first_name":"bridge bot"`, UserID))}
	case "close":
		return []string{ok, state("authorizationStateClosing"), state("authorizationStateClosed")}
	}
	return []string{reply(`"@type":"error","code":400,"message":"unexpected request"`)}
}
