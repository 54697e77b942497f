package api

import "github.com/flemzord/tgbridge/internal/tlrpc"

// ChatMemberStatus is the family describing a member's role in a chat.
type ChatMemberStatus interface {
	tlrpc.Object
	isChatMemberStatus()
}

// ChatMemberStatuses resolves ChatMemberStatus variants by @type.
var ChatMemberStatuses = tlrpc.NewFamily("ChatMemberStatus",
	func() ChatMemberStatus { return new(ChatMemberStatusAdministrator) },
	func() ChatMemberStatus { return new(ChatMemberStatusCreator) },
	func() ChatMemberStatus { return new(ChatMemberStatusLeft) },
	func() ChatMemberStatus { return new(ChatMemberStatusMember) },
	func() ChatMemberStatus { return new(ChatMemberStatusRestricted) },
	func() ChatMemberStatus { return new(ChatMemberStatusBanned) },
)

// ChatMemberStatusAdministrator lists an administrator's rights. The
// channel-only rights may be missing for groups.
type ChatMemberStatusAdministrator struct {
	CustomTitle         *string
	CanBeEdited         bool
	CanManageChat       bool
	CanChangeInfo       bool
	CanPostMessages     bool
	CanEditMessages     bool
	CanDeleteMessages   bool
	CanInviteUsers      bool
	CanRestrictMembers  bool
	CanPinMessages      bool
	CanPromoteMembers   bool
	CanManageVideoChats bool
	IsAnonymous         bool
}

func (*ChatMemberStatusAdministrator) TypeName() string {
	return "chatMemberStatusAdministrator"
}

func (s *ChatMemberStatusAdministrator) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.NullableString("custom_title", &s.CustomTitle, tlrpc.EmptyAsAbsent()),
		tlrpc.Bool("can_be_edited", &s.CanBeEdited),
		tlrpc.Bool("can_manage_chat", &s.CanManageChat),
		tlrpc.Bool("can_change_info", &s.CanChangeInfo),
		tlrpc.Bool("can_post_messages", &s.CanPostMessages, tlrpc.Optional()),
		tlrpc.Bool("can_edit_messages", &s.CanEditMessages),
		tlrpc.Bool("can_delete_messages", &s.CanDeleteMessages),
		tlrpc.Bool("can_invite_users", &s.CanInviteUsers),
		tlrpc.Bool("can_restrict_members", &s.CanRestrictMembers),
		tlrpc.Bool("can_pin_messages", &s.CanPinMessages, tlrpc.Optional()),
		tlrpc.Bool("can_promote_members", &s.CanPromoteMembers),
		tlrpc.Bool("can_manage_video_chats", &s.CanManageVideoChats),
		tlrpc.Bool("is_anonymous", &s.IsAnonymous, tlrpc.Optional()),
	}
}
func (*ChatMemberStatusAdministrator) isChatMemberStatus() {}

type ChatMemberStatusCreator struct {
	CustomTitle *string
	IsAnonymous bool
	IsMember    bool
}

func (*ChatMemberStatusCreator) TypeName() string { return "chatMemberStatusCreator" }

func (s *ChatMemberStatusCreator) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.NullableString("custom_title", &s.CustomTitle, tlrpc.EmptyAsAbsent()),
		tlrpc.Bool("is_anonymous", &s.IsAnonymous, tlrpc.Optional()),
		tlrpc.Bool("is_member", &s.IsMember),
	}
}
func (*ChatMemberStatusCreator) isChatMemberStatus() {}

type ChatMemberStatusLeft struct{}

func (*ChatMemberStatusLeft) TypeName() string      { return "chatMemberStatusLeft" }
func (*ChatMemberStatusLeft) Fields() []tlrpc.Field { return nil }
func (*ChatMemberStatusLeft) isChatMemberStatus()   {}

type ChatMemberStatusMember struct{}

func (*ChatMemberStatusMember) TypeName() string      { return "chatMemberStatusMember" }
func (*ChatMemberStatusMember) Fields() []tlrpc.Field { return nil }
func (*ChatMemberStatusMember) isChatMemberStatus()   {}

type ChatMemberStatusRestricted struct {
	IsMember            bool
	RestrictedUntilDate int32
	Permissions         *ChatPermissions
}

func (*ChatMemberStatusRestricted) TypeName() string { return "chatMemberStatusRestricted" }

func (s *ChatMemberStatusRestricted) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Bool("is_member", &s.IsMember, tlrpc.Optional()),
		tlrpc.Int32("restricted_until_date", &s.RestrictedUntilDate),
		tlrpc.Record("permissions", &s.Permissions),
	}
}
func (*ChatMemberStatusRestricted) isChatMemberStatus() {}

type ChatMemberStatusBanned struct {
	BannedUntilDate int32
}

func (*ChatMemberStatusBanned) TypeName() string { return "chatMemberStatusBanned" }

func (s *ChatMemberStatusBanned) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.Int32("banned_until_date", &s.BannedUntilDate)}
}
func (*ChatMemberStatusBanned) isChatMemberStatus() {}

// ChatPermissions are the default rights of a chat's members.
type ChatPermissions struct {
	CanSendMessages       bool
	CanSendMediaMessages  bool
	CanSendPolls          bool
	CanSendOtherMessages  bool
	CanAddWebPagePreviews bool
	CanChangeInfo         bool
	CanInviteUsers        bool
	CanPinMessages        bool
}

func (*ChatPermissions) TypeName() string { return "chatPermissions" }

func (p *ChatPermissions) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Bool("can_send_messages", &p.CanSendMessages),
		tlrpc.Bool("can_send_media_messages", &p.CanSendMediaMessages),
		tlrpc.Bool("can_send_polls", &p.CanSendPolls),
		tlrpc.Bool("can_send_other_messages", &p.CanSendOtherMessages),
		tlrpc.Bool("can_add_web_page_previews", &p.CanAddWebPagePreviews),
		tlrpc.Bool("can_change_info", &p.CanChangeInfo),
		tlrpc.Bool("can_invite_users", &p.CanInviteUsers),
		tlrpc.Bool("can_pin_messages", &p.CanPinMessages),
	}
}
