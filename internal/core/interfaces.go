package core

import (
	"context"

	"github.com/chatrelay/ai-chat-relay/internal/store"
)

// UserStore is the local users table.
type UserStore interface {
	EnsureUser(ctx context.Context, u *store.User) (bool, error)
	GetUserByID(ctx context.Context, userID string) (*store.User, error)
}

// ChatStore is the local chats table.
type ChatStore interface {
	CreateChatExchange(ctx context.Context, exchange *store.ChatExchange) error
	GetChatHistoryWindow(ctx context.Context, userID string, limit int) ([]store.ChatExchange, error)
	GetChatExchangesByUserID(ctx context.Context, userID string) ([]store.ChatExchange, error)
}

// PlatformUsers is the user directory of the external chat platform.
type PlatformUsers interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	CreateUser(ctx context.Context, userID, name, email string) error
}

// ReplyDeliverer publishes a generated reply to the user's platform channel.
type ReplyDeliverer interface {
	Deliver(ctx context.Context, userID, text string) error
}

// Completer turns a role-tagged message sequence into reply text.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
