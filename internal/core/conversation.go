package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatrelay/ai-chat-relay/internal/store"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	DefaultHistoryWindow = 10
)

// Message is the provider-agnostic role/content pair sent to a completion API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationAssembler renders stored exchanges into completion context.
type ConversationAssembler struct {
	chats  ChatStore
	window int
}

func NewConversationAssembler(chats ChatStore, window int) (*ConversationAssembler, error) {
	if chats == nil {
		return nil, errors.New("core: chat store must not be nil")
	}
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &ConversationAssembler{chats: chats, window: window}, nil
}

// BuildContext loads the user's history window and returns it as alternating
// user/assistant messages followed by newMessage as the final user turn.
func (a *ConversationAssembler) BuildContext(ctx context.Context, userID, newMessage string) ([]Message, error) {
	history, err := a.chats.GetChatHistoryWindow(ctx, userID, a.window)
	if err != nil {
		return nil, fmt.Errorf("load history for %q: %w", userID, err)
	}
	return assembleMessages(history, newMessage), nil
}

func assembleMessages(history []store.ChatExchange, newMessage string) []Message {
	messages := make([]Message, 0, len(history)*2+1)
	for _, ex := range history {
		messages = append(messages,
			Message{Role: RoleUser, Content: ex.Message},
			Message{Role: RoleAssistant, Content: ex.Reply},
		)
	}
	return append(messages, Message{Role: RoleUser, Content: newMessage})
}
