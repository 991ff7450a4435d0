package transport

import (
	"context"
	"io"
)

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
	UpdateJoin     UpdateKind = "join"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
	Join     *Join
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
	// Photo variants of a photo message, smallest first (Telegram order).
	// Empty for plain text messages.
	Photos []PhotoSize
}

type Callback struct {
	ID        string
	FromID    int64
	ChatID    int64
	MessageID int
	Data      string
}

// Join describes users entering the chat.
type Join struct {
	ChatID int64
	Users  []User
}

type User struct {
	ID        int64
	Username  string
	FirstName string
}

// PhotoSize is one resolution variant of an uploaded photo.
type PhotoSize struct {
	FileID string
	Width  int
	Height int
}

// MemberRole is the chat role reported by the platform roster.
type MemberRole string

const (
	RoleOwner  MemberRole = "creator"
	RoleAdmin  MemberRole = "administrator"
	RoleMember MemberRole = "member"
)

type ChatMember struct {
	UserID int64
	Role   MemberRole
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode          string
	DisablePreview     bool
	ReplyMarkupAdapter any // adapter-specific markup (Telegram: *telebot.ReplyMarkup)
}

// PhotoSource identifies photo bytes to send: a local file path.
type PhotoSource struct {
	Path    string
	Caption string
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendPhoto(ctx context.Context, to ChatTarget, photo PhotoSource, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error

	// ChatAdmins fetches the administrator roster of a chat (no caching).
	ChatAdmins(ctx context.Context, chat ChatTarget) ([]ChatMember, error)
	// DownloadFile resolves an uploaded media reference and streams its bytes.
	DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error)
}
