// Package joinrequests is a bridge plugin that answers chat join requests.
//
// It listens for updateNewChatJoinRequest on one session, approves or
// declines each request with processChatJoinRequest, and can greet approved
// users with a private message. Calls go through the bridge rate governor
// under a per-chat key, so a burst of requests on one chat is throttled
// without affecting other chats; throttled requests are left pending in
// Telegram and counted.
//
// The module registers itself as "plugin.joinrequests". As a plugin, a
// failure to provision or start it disables the plugin without stopping
// the process.
package joinrequests
