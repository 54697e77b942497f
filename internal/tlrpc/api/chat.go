package api

import (
	"encoding/json"

	"github.com/flemzord/tgbridge/internal/tlrpc"
)

// ChatInviteLink describes an invite link of a chat.
type ChatInviteLink struct {
	InviteLink              string
	Name                    *string
	CreatorUserID           int64
	Date                    int32
	EditDate                int32
	MemberLimit             int32
	PendingJoinRequestCount int32
	CreatesJoinRequest      bool
	IsPrimary               bool
	IsRevoked               bool
}

func (*ChatInviteLink) TypeName() string { return "chatInviteLink" }

func (l *ChatInviteLink) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.String("invite_link", &l.InviteLink),
		tlrpc.NullableString("name", &l.Name, tlrpc.EmptyAsAbsent()),
		tlrpc.Int64("creator_user_id", &l.CreatorUserID),
		tlrpc.Int32("date", &l.Date),
		tlrpc.Int32("edit_date", &l.EditDate),
		tlrpc.Int32("member_limit", &l.MemberLimit),
		tlrpc.Int32("pending_join_request_count", &l.PendingJoinRequestCount),
		tlrpc.Bool("creates_join_request", &l.CreatesJoinRequest),
		tlrpc.Bool("is_primary", &l.IsPrimary),
		tlrpc.Bool("is_revoked", &l.IsRevoked),
	}
}

// ChatJoinRequest is a pending request to join a chat. An empty bio is
// reported as absent.
type ChatJoinRequest struct {
	UserID int64
	Date   int32
	Bio    *string
}

func (*ChatJoinRequest) TypeName() string { return "chatJoinRequest" }

func (r *ChatJoinRequest) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Int64("user_id", &r.UserID),
		tlrpc.Int32("date", &r.Date),
		tlrpc.NullableString("bio", &r.Bio, tlrpc.EmptyAsAbsent()),
	}
}

// UpdateNewChatJoinRequest is pushed to bots administering a chat.
type UpdateNewChatJoinRequest struct {
	ChatID     int64
	Request    *ChatJoinRequest
	InviteLink *ChatInviteLink
}

func (*UpdateNewChatJoinRequest) TypeName() string { return "updateNewChatJoinRequest" }

func (u *UpdateNewChatJoinRequest) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Int64("chat_id", &u.ChatID),
		tlrpc.Record("request", &u.Request),
		tlrpc.Record("invite_link", &u.InviteLink, tlrpc.Optional()),
	}
}

// ProcessChatJoinRequest approves or declines a join request; it answers Ok.
type ProcessChatJoinRequest struct {
	ChatID  int64
	UserID  int64
	Approve bool
}

func (*ProcessChatJoinRequest) TypeName() string { return "processChatJoinRequest" }

func (r *ProcessChatJoinRequest) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Int64("chat_id", &r.ChatID),
		tlrpc.Int64("user_id", &r.UserID),
		tlrpc.Bool("approve", &r.Approve),
	}
}

// ChatMember is a member entry as reported by updateChatMember.
type ChatMember struct {
	MemberID       json.RawMessage
	InviterUserID  int64
	JoinedChatDate int32
	Status         ChatMemberStatus
}

func (*ChatMember) TypeName() string { return "chatMember" }

func (m *ChatMember) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Raw("member_id", &m.MemberID),
		tlrpc.Int64("inviter_user_id", &m.InviterUserID),
		tlrpc.Int32("joined_chat_date", &m.JoinedChatDate),
		tlrpc.OneOf("status", &m.Status, ChatMemberStatuses),
	}
}

// UpdateChatMember is pushed when a member's status changes.
type UpdateChatMember struct {
	ChatID        int64
	ActorUserID   int64
	Date          int32
	InviteLink    *ChatInviteLink
	OldChatMember *ChatMember
	NewChatMember *ChatMember
}

func (*UpdateChatMember) TypeName() string { return "updateChatMember" }

func (u *UpdateChatMember) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Int64("chat_id", &u.ChatID),
		tlrpc.Int64("actor_user_id", &u.ActorUserID),
		tlrpc.Int32("date", &u.Date),
		tlrpc.Record("invite_link", &u.InviteLink, tlrpc.Optional()),
		tlrpc.Record("old_chat_member", &u.OldChatMember, tlrpc.Optional()),
		tlrpc.Record("new_chat_member", &u.NewChatMember),
	}
}
