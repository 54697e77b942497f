package api

import (
	"encoding/json"

	"github.com/flemzord/tgbridge/internal/tlrpc"
)

// TextEntity marks a span of a FormattedText. The entity type is kept as
// raw JSON; the bridge never interprets it.
type TextEntity struct {
	Offset int32
	Length int32
	Type   json.RawMessage
}

func (*TextEntity) TypeName() string { return "textEntity" }

func (e *TextEntity) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Int32("offset", &e.Offset),
		tlrpc.Int32("length", &e.Length),
		tlrpc.Raw("type", &e.Type),
	}
}

// FormattedText is text with entities.
type FormattedText struct {
	Text     string
	Entities []*TextEntity
}

// PlainText returns a FormattedText without entities.
func PlainText(text string) *FormattedText {
	return &FormattedText{Text: text, Entities: []*TextEntity{}}
}

func (*FormattedText) TypeName() string { return "formattedText" }

func (t *FormattedText) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.String("text", &t.Text),
		tlrpc.Array("entities", &t.Entities, tlrpc.RecordElem[TextEntity]()),
	}
}

// InputMessageContent is the family of outgoing message payloads.
type InputMessageContent interface {
	tlrpc.Object
	isInputMessageContent()
}

// InputMessageContents resolves InputMessageContent variants by @type.
var InputMessageContents = tlrpc.NewFamily("InputMessageContent",
	func() InputMessageContent { return new(InputMessageText) },
)

type InputMessageText struct {
	Text                  *FormattedText
	DisableWebPagePreview bool
	ClearDraft            bool
}

func (*InputMessageText) TypeName() string { return "inputMessageText" }

func (m *InputMessageText) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Record("text", &m.Text),
		tlrpc.Bool("disable_web_page_preview", &m.DisableWebPagePreview, tlrpc.Optional()),
		tlrpc.Bool("clear_draft", &m.ClearDraft, tlrpc.Optional()),
	}
}
func (*InputMessageText) isInputMessageContent() {}

// SendMessage sends a message and answers with the provisional Message.
type SendMessage struct {
	ChatID              int64
	ReplyToMessageID    int64
	ReplyMarkup         ReplyMarkup
	InputMessageContent InputMessageContent
}

func (*SendMessage) TypeName() string { return "sendMessage" }

func (m *SendMessage) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Int64("chat_id", &m.ChatID),
		tlrpc.Int64("reply_to_message_id", &m.ReplyToMessageID, tlrpc.Optional()),
		tlrpc.OneOf("reply_markup", &m.ReplyMarkup, ReplyMarkups, tlrpc.Optional()),
		tlrpc.OneOf("input_message_content", &m.InputMessageContent, InputMessageContents),
	}
}

// Message is a trimmed message record. Sender, content and markup stay raw.
type Message struct {
	ID          int64
	ChatID      int64
	SenderID    json.RawMessage
	IsOutgoing  bool
	Date        int32
	EditDate    int32
	Content     json.RawMessage
	ReplyMarkup json.RawMessage
}

func (*Message) TypeName() string { return "message" }

func (m *Message) Fields() []tlrpc.Field {
	return []tlrpc.Field{
		tlrpc.Int64("id", &m.ID),
		tlrpc.Int64("chat_id", &m.ChatID),
		tlrpc.Raw("sender_id", &m.SenderID),
		tlrpc.Bool("is_outgoing", &m.IsOutgoing),
		tlrpc.Int32("date", &m.Date),
		tlrpc.Int32("edit_date", &m.EditDate, tlrpc.Optional()),
		tlrpc.Raw("content", &m.Content),
		tlrpc.Raw("reply_markup", &m.ReplyMarkup, tlrpc.Optional()),
	}
}

// UpdateNewMessage is pushed for every incoming or outgoing message.
type UpdateNewMessage struct {
	Message *Message
}

func (*UpdateNewMessage) TypeName() string { return "updateNewMessage" }

func (u *UpdateNewMessage) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.Record("message", &u.Message)}
}
