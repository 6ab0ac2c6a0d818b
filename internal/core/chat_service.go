package core

import (
	"context"
	"errors"
	"strings"

	"github.com/chatrelay/ai-chat-relay/internal/store"
)

// UserChecker gates a conversational turn on the user being registered.
type UserChecker interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

type ChatService struct {
	users     UserChecker
	assembler *ConversationAssembler
	completer Completer
	chats     ChatStore
	delivery  ReplyDeliverer
}

func NewChatService(users UserChecker, assembler *ConversationAssembler, completer Completer, chats ChatStore, delivery ReplyDeliverer) (*ChatService, error) {
	switch {
	case users == nil:
		return nil, errors.New("core: user checker must not be nil")
	case assembler == nil:
		return nil, errors.New("core: conversation assembler must not be nil")
	case completer == nil:
		return nil, errors.New("core: completer must not be nil")
	case chats == nil:
		return nil, errors.New("core: chat store must not be nil")
	case delivery == nil:
		return nil, errors.New("core: reply deliverer must not be nil")
	}
	return &ChatService{
		users:     users,
		assembler: assembler,
		completer: completer,
		chats:     chats,
		delivery:  delivery,
	}, nil
}

// Converse runs one turn: existence check, context assembly, completion,
// persistence, then delivery. Steps already completed are not rolled back
// when a later step fails.
func (s *ChatService) Converse(ctx context.Context, userID, message string) (string, error) {
	const op = "converse"
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(message) == "" {
		return "", validationError(op, "userId and message are required")
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return "", internalError(op, err)
	}
	if !exists {
		return "", notFoundError(op, "User not found")
	}

	messages, err := s.assembler.BuildContext(ctx, userID, message)
	if err != nil {
		return "", internalError(op, err)
	}

	reply, err := s.completer.Complete(ctx, messages)
	if err != nil {
		return "", internalError(op, err)
	}

	if err := s.chats.CreateChatExchange(ctx, &store.ChatExchange{
		UserID:  userID,
		Message: message,
		Reply:   reply,
	}); err != nil {
		return "", internalError(op, err)
	}

	// The exchange is already stored; a failure here only loses the
	// real-time notification.
	if err := s.delivery.Deliver(ctx, userID, reply); err != nil {
		return "", internalError(op, err)
	}

	return reply, nil
}

// ListHistory returns every stored exchange for userID.
func (s *ChatService) ListHistory(ctx context.Context, userID string) ([]store.ChatExchange, error) {
	const op = "list history"
	if strings.TrimSpace(userID) == "" {
		return nil, validationError(op, "userId is required")
	}

	exchanges, err := s.chats.GetChatExchangesByUserID(ctx, userID)
	if err != nil {
		return nil, internalError(op, err)
	}
	if exchanges == nil {
		exchanges = []store.ChatExchange{}
	}
	return exchanges, nil
}
