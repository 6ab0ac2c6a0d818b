package streamchat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stream "github.com/GetStream/stream-chat-go/v5"
	"github.com/google/uuid"
)

const (
	channelType  = "messaging"
	userRole     = "user"
	botRole      = "admin"
	channelIDPfx = "chat-"

	DefaultBotID   = "ai_bot"
	DefaultBotName = "AI Assistant"
)

// streamAPI is the subset of *stream.Client used here.
type streamAPI interface {
	QueryUsers(ctx context.Context, q *stream.QueryOption, sorters ...*stream.SortOption) (*stream.QueryUsersResponse, error)
	UpsertUser(ctx context.Context, user *stream.User) (*stream.UpsertUserResponse, error)
	CreateChannel(ctx context.Context, chanType, chanID, userID string, data *stream.ChannelRequest) (*stream.CreateChannelResponse, error)
}

// sendFunc publishes msg into ch on behalf of userID.
type sendFunc func(ctx context.Context, ch *stream.Channel, msg *stream.Message, userID string) error

// Client adapts the Stream Chat SDK to user registration and reply delivery.
type Client struct {
	api     streamAPI
	send    sendFunc
	botID   string
	botName string
}

type Option func(*Client)

func WithBot(id, name string) Option {
	return func(c *Client) {
		c.botID = strings.TrimSpace(id)
		c.botName = strings.TrimSpace(name)
	}
}

// New builds a Client from API credentials.
func New(apiKey, apiSecret string, opts ...Option) (*Client, error) {
	sc, err := stream.NewClient(apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("streamchat: create client: %w", err)
	}
	return newClient(sc, sendViaChannel, opts...)
}

func newClient(api streamAPI, send sendFunc, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("streamchat: api must not be nil")
	}
	if send == nil {
		return nil, errors.New("streamchat: send func must not be nil")
	}
	c := &Client{
		api:     api,
		send:    send,
		botID:   DefaultBotID,
		botName: DefaultBotName,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.botID == "" {
		return nil, errors.New("streamchat: bot id must not be empty")
	}
	return c, nil
}

func sendViaChannel(ctx context.Context, ch *stream.Channel, msg *stream.Message, userID string) error {
	_, err := ch.SendMessage(ctx, msg, userID)
	return err
}

// ChannelID returns the per-user channel id.
func ChannelID(userID string) string {
	return channelIDPfx + userID
}

// UserExists reports whether the platform knows a user with the given id.
func (c *Client) UserExists(ctx context.Context, userID string) (bool, error) {
	resp, err := c.api.QueryUsers(ctx, &stream.QueryOption{
		Filter: map[string]interface{}{
			"id": map[string]interface{}{"$eq": userID},
		},
		Limit: 1,
	})
	if err != nil {
		return false, fmt.Errorf("streamchat: query users: %w", err)
	}
	return resp != nil && len(resp.Users) > 0, nil
}

// CreateUser upserts a regular user carrying the email as custom data.
func (c *Client) CreateUser(ctx context.Context, userID, name, email string) error {
	_, err := c.api.UpsertUser(ctx, &stream.User{
		ID:        userID,
		Name:      name,
		Role:      userRole,
		ExtraData: map[string]interface{}{"email": email},
	})
	if err != nil {
		return fmt.Errorf("streamchat: upsert user %q: %w", userID, err)
	}
	return nil
}

// EnsureBot upserts the identity that replies are attributed to.
func (c *Client) EnsureBot(ctx context.Context) error {
	_, err := c.api.UpsertUser(ctx, &stream.User{
		ID:   c.botID,
		Name: c.botName,
		Role: botRole,
	})
	if err != nil {
		return fmt.Errorf("streamchat: upsert bot %q: %w", c.botID, err)
	}
	return nil
}

// Deliver publishes text into the user's channel as the bot. The channel is
// created on first use; creating an existing channel returns it unchanged.
func (c *Client) Deliver(ctx context.Context, userID, text string) error {
	chanID := ChannelID(userID)
	resp, err := c.api.CreateChannel(ctx, channelType, chanID, c.botID, &stream.ChannelRequest{
		Members: []string{userID, c.botID},
	})
	if err != nil {
		return fmt.Errorf("streamchat: create channel %q: %w", chanID, err)
	}
	if resp == nil || resp.Channel == nil {
		return fmt.Errorf("streamchat: create channel %q: empty response", chanID)
	}

	msg := &stream.Message{
		ID:   uuid.NewString(),
		Text: text,
	}
	if err := c.send(ctx, resp.Channel, msg, c.botID); err != nil {
		return fmt.Errorf("streamchat: send message to %q: %w", chanID, err)
	}
	return nil
}
