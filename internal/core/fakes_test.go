package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chatrelay/ai-chat-relay/internal/store"
)

type fakePlatform struct {
	mu         sync.Mutex
	users      map[string]string
	existsErr  error
	createErr  error
	deliverErr error

	createCalls int
	delivered   []string
}

func newFakePlatform(ids ...string) *fakePlatform {
	p := &fakePlatform{users: map[string]string{}}
	for _, id := range ids {
		p.users[id] = id
	}
	return p
}

func (p *fakePlatform) UserExists(_ context.Context, userID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.existsErr != nil {
		return false, p.existsErr
	}
	_, ok := p.users[userID]
	return ok, nil
}

func (p *fakePlatform) CreateUser(_ context.Context, userID, name, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if p.createErr != nil {
		return p.createErr
	}
	p.users[userID] = name
	return nil
}

func (p *fakePlatform) Deliver(_ context.Context, userID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deliverErr != nil {
		return p.deliverErr
	}
	p.delivered = append(p.delivered, userID+":"+text)
	return nil
}

type fakeCompleter struct {
	reply    string
	err      error
	captured []Message
	calls    int
}

func (c *fakeCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	c.calls++
	c.captured = messages
	return c.reply, c.err
}

// failingChats wraps a ChatStore and injects errors per method.
type failingChats struct {
	ChatStore
	createErr  error
	historyErr error
	listErr    error
}

func (f *failingChats) CreateChatExchange(ctx context.Context, ex *store.ChatExchange) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.ChatStore.CreateChatExchange(ctx, ex)
}

func (f *failingChats) GetChatHistoryWindow(ctx context.Context, userID string, limit int) ([]store.ChatExchange, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.ChatStore.GetChatHistoryWindow(ctx, userID, limit)
}

func (f *failingChats) GetChatExchangesByUserID(ctx context.Context, userID string) ([]store.ChatExchange, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ChatStore.GetChatExchangesByUserID(ctx, userID)
}

type failingUsers struct {
	UserStore
	ensureErr error
	getErr    error
}

func (f *failingUsers) EnsureUser(ctx context.Context, u *store.User) (bool, error) {
	if f.ensureErr != nil {
		return false, f.ensureErr
	}
	return f.UserStore.EnsureUser(ctx, u)
}

func (f *failingUsers) GetUserByID(ctx context.Context, userID string) (*store.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.UserStore.GetUserByID(ctx, userID)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(fmt.Sprintf("file:core_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func countExchanges(t *testing.T, s *store.Store, userID string) int {
	t.Helper()
	all, err := s.GetChatExchangesByUserID(context.Background(), userID)
	require.NoError(t, err)
	return len(all)
}

func expectKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, kind, coreErr.Kind)
}
