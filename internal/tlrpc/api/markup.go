package api

import "github.com/flemzord/tgbridge/internal/tlrpc"

// ReplyMarkup is the family of keyboards attached to outgoing messages.
type ReplyMarkup interface {
	tlrpc.Object
	isReplyMarkup()
}

// ReplyMarkups resolves ReplyMarkup variants by @type.
var ReplyMarkups = tlrpc.NewFamily("ReplyMarkup",
	func() ReplyMarkup { return new(ReplyMarkupForceReply) },
	func() ReplyMarkup { return new(ReplyMarkupInlineKeyboard) },
	func() ReplyMarkup { return new(ReplyMarkupRemoveKeyboard) },
)

type ReplyMarkupForceReply struct {
	IsPersonal            bool
	InputFieldPlaceholder string
}

func (*ReplyMarkupForceReply) TypeName() string { return "replyMarkupForceReply" }

func (m *ReplyMarkupForceReply) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Bool("is_personal", &m.IsPersonal),
		tlrpc.String("input_field_placeholder", &m.InputFieldPlaceholder),
	}
}
func (*ReplyMarkupForceReply) isReplyMarkup() {}

// ReplyMarkupInlineKeyboard is a grid of buttons, row by row.
type ReplyMarkupInlineKeyboard struct {
	Rows [][]*InlineKeyboardButton
}

func (*ReplyMarkupInlineKeyboard) TypeName() string { return "replyMarkupInlineKeyboard" }

func (m *ReplyMarkupInlineKeyboard) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Array("rows", &m.Rows, tlrpc.ArrayElem(tlrpc.RecordElem[InlineKeyboardButton]())),
	}
}
func (*ReplyMarkupInlineKeyboard) isReplyMarkup() {}

type ReplyMarkupRemoveKeyboard struct {
	IsPersonal bool
}

func (*ReplyMarkupRemoveKeyboard) TypeName() string { return "replyMarkupRemoveKeyboard" }

func (m *ReplyMarkupRemoveKeyboard) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.Bool("is_personal", &m.IsPersonal)}
}
func (*ReplyMarkupRemoveKeyboard) isReplyMarkup() {}

// InlineKeyboardButton is one cell of an inline keyboard.
type InlineKeyboardButton struct {
	Text string
	Type InlineKeyboardButtonType
}

func (*InlineKeyboardButton) TypeName() string { return "inlineKeyboardButton" }

func (b *InlineKeyboardButton) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.String("text", &b.Text),
		tlrpc.OneOf("type", &b.Type, InlineKeyboardButtonTypes),
	}
}

// InlineKeyboardButtonType is the action behind an inline button.
type InlineKeyboardButtonType interface {
	tlrpc.Object
	isInlineKeyboardButtonType()
}

// InlineKeyboardButtonTypes resolves InlineKeyboardButtonType variants by @type.
var InlineKeyboardButtonTypes = tlrpc.NewFamily("InlineKeyboardButtonType",
	func() InlineKeyboardButtonType { return new(InlineKeyboardButtonTypeCallback) },
	func() InlineKeyboardButtonType { return new(InlineKeyboardButtonTypeCallbackWithPassword) },
	func() InlineKeyboardButtonType { return new(InlineKeyboardButtonTypeURL) },
	func() InlineKeyboardButtonType { return new(InlineKeyboardButtonTypeUser) },
	func() InlineKeyboardButtonType { return new(InlineKeyboardButtonTypeSwitchInline) },
)

// InlineKeyboardButtonTypeCallback carries base64 callback data.
type InlineKeyboardButtonTypeCallback struct {
	Data string
}

func (*InlineKeyboardButtonTypeCallback) TypeName() string {
	return "inlineKeyboardButtonTypeCallback"
}

func (t *InlineKeyboardButtonTypeCallback) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.String("data", &t.Data)}
}
func (*InlineKeyboardButtonTypeCallback) isInlineKeyboardButtonType() {}

type InlineKeyboardButtonTypeCallbackWithPassword struct {
	Data string
}

func (*InlineKeyboardButtonTypeCallbackWithPassword) TypeName() string {
	return "inlineKeyboardButtonTypeCallbackWithPassword"
}

func (t *InlineKeyboardButtonTypeCallbackWithPassword) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.String("data", &t.Data)}
}
func (*InlineKeyboardButtonTypeCallbackWithPassword) isInlineKeyboardButtonType() {}

type InlineKeyboardButtonTypeURL struct {
	URL string
}

func (*InlineKeyboardButtonTypeURL) TypeName() string { return "inlineKeyboardButtonTypeUrl" }

func (t *InlineKeyboardButtonTypeURL) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.String("url", &t.URL)}
}
func (*InlineKeyboardButtonTypeURL) isInlineKeyboardButtonType() {}

type InlineKeyboardButtonTypeUser struct {
	UserID int64
}

func (*InlineKeyboardButtonTypeUser) TypeName() string { return "inlineKeyboardButtonTypeUser" }

func (t *InlineKeyboardButtonTypeUser) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.Int64("user_id", &t.UserID)}
}
func (*InlineKeyboardButtonTypeUser) isInlineKeyboardButtonType() {}

type InlineKeyboardButtonTypeSwitchInline struct {
	Query         string
	InCurrentChat bool
}

func (*InlineKeyboardButtonTypeSwitchInline) TypeName() string {
	return "inlineKeyboardButtonTypeSwitchInline"
}

func (t *InlineKeyboardButtonTypeSwitchInline) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.String("query", &t.Query),
		tlrpc.Bool("in_current_chat", &t.InCurrentChat),
	}
}
func (*InlineKeyboardButtonTypeSwitchInline) isInlineKeyboardButtonType() {}
