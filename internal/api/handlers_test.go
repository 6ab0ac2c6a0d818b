package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/ai-chat-relay/internal/core"
	"github.com/chatrelay/ai-chat-relay/internal/store"
)

type stubRegistrar struct {
	identity core.Identity
	err      error
	calls    int
}

func (s *stubRegistrar) Register(_ context.Context, name, email string) (core.Identity, error) {
	s.calls++
	if s.err != nil {
		return core.Identity{}, s.err
	}
	if s.identity.UserID == "" {
		return core.Identity{UserID: core.DeriveUserID(email), Name: name, Email: email}, nil
	}
	return s.identity, nil
}

type stubChat struct {
	reply    string
	history  []store.ChatExchange
	err      error
	converse int
	listed   int
}

func (s *stubChat) Converse(_ context.Context, _, _ string) (string, error) {
	s.converse++
	return s.reply, s.err
}

func (s *stubChat) ListHistory(_ context.Context, _ string) ([]store.ChatExchange, error) {
	s.listed++
	return s.history, s.err
}

func newTestRouter(t *testing.T, reg Registrar, chat ChatFlow) http.Handler {
	t.Helper()
	h, err := NewAPIHandler(reg, chat)
	require.NoError(t, err)
	return NewRouter(h, nil)
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewAPIHandler_ValidatesDependencies(t *testing.T) {
	_, err := NewAPIHandler(nil, &stubChat{})
	require.Error(t, err)
	_, err = NewAPIHandler(&stubRegistrar{}, nil)
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(t, &stubRegistrar{}, &stubChat{}), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegisterUser(t *testing.T) {
	router := newTestRouter(t, &stubRegistrar{}, &stubChat{})

	rec := do(t, router, http.MethodPost, "/register-user", `{"name":"Jane","email":"jane@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"userId":"jane_example_com","name":"Jane","email":"jane@example.com"}`, rec.Body.String())
}

func TestRegisterUser_Errors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		msg    string
	}{
		{"malformed body", `{"name":`, nil, http.StatusBadRequest, "Invalid request body"},
		{"validation", `{"name":""}`, &core.Error{Kind: core.KindValidation, Message: "Name and email are required"}, http.StatusBadRequest, "Name and email are required"},
		{"internal", `{"name":"J","email":"j@x"}`, &core.Error{Kind: core.KindInternal, Message: "Internal server error", Err: errors.New("stream 503")}, http.StatusInternalServerError, "Internal server error"},
		{"plain error", `{"name":"J","email":"j@x"}`, errors.New("secret detail"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, &stubRegistrar{err: tc.err}, &stubChat{})
			rec := do(t, router, http.MethodPost, "/register-user", tc.body)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.msg, decode(t, rec)["error"])
			require.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}

func TestChat(t *testing.T) {
	chat := &stubChat{reply: "Hello! How can I help?"}
	router := newTestRouter(t, &stubRegistrar{}, chat)

	rec := do(t, router, http.MethodPost, "/chat", `{"userId":"u1","message":"Hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"reply":"Hello! How can I help?"}`, rec.Body.String())
	require.Equal(t, 1, chat.converse)
}

func TestChat_StatusMapping(t *testing.T) {
	for status, err := range map[int]error{
		http.StatusBadRequest:          &core.Error{Kind: core.KindValidation, Message: "userId and message are required"},
		http.StatusNotFound:            &core.Error{Kind: core.KindNotFound, Message: "User not found"},
		http.StatusInternalServerError: &core.Error{Kind: core.KindInternal, Message: "Internal server error"},
	} {
		router := newTestRouter(t, &stubRegistrar{}, &stubChat{err: err})
		rec := do(t, router, http.MethodPost, "/chat", `{"userId":"u1","message":"Hi"}`)
		require.Equal(t, status, rec.Code)
	}
}

func TestChat_MalformedBodySkipsService(t *testing.T) {
	chat := &stubChat{}
	rec := do(t, newTestRouter(t, &stubRegistrar{}, chat), http.MethodPost, "/chat", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, chat.converse)
}

func TestGetMessages(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	chat := &stubChat{history: []store.ChatExchange{
		{ID: 1, UserID: "u1", Message: "Hi", Reply: "Hello", CreatedAt: created},
	}}
	router := newTestRouter(t, &stubRegistrar{}, chat)

	rec := do(t, router, http.MethodPost, "/get-messages", `{"userId":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"messages":[{"id":1,"userId":"u1","message":"Hi","reply":"Hello","createdAt":"2026-03-01T08:00:00Z"}]}`, rec.Body.String())
}

func TestGetMessages_EmptyIsArray(t *testing.T) {
	rec := do(t, newTestRouter(t, &stubRegistrar{}, &stubChat{}), http.MethodPost, "/get-messages", `{"userId":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"messages":[]}`, rec.Body.String())
}

func TestGetMessages_Errors(t *testing.T) {
	chat := &stubChat{err: &core.Error{Kind: core.KindValidation, Message: "userId is required"}}
	rec := do(t, newTestRouter(t, &stubRegistrar{}, chat), http.MethodPost, "/get-messages", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "userId is required", decode(t, rec)["error"])

	chat = &stubChat{err: &core.Error{Kind: core.KindInternal, Message: "Internal server error", Err: errors.New("db")}}
	rec = do(t, newTestRouter(t, &stubRegistrar{}, chat), http.MethodPost, "/get-messages", `{"userId":"u1"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouter_UnknownMethod(t *testing.T) {
	rec := do(t, newTestRouter(t, &stubRegistrar{}, &stubChat{}), http.MethodGet, "/chat", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_TrailingSlash(t *testing.T) {
	chat := &stubChat{reply: "ok"}
	rec := do(t, newTestRouter(t, &stubRegistrar{}, chat), http.MethodPost, "/chat/", `{"userId":"u1","message":"Hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h, err := NewAPIHandler(&stubRegistrar{}, &stubChat{})
	require.NoError(t, err)
	router := NewRouter(h, []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
