package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/chatrelay/ai-chat-relay/internal/store"
)

// Identity is the canonical registration record returned to clients.
type Identity struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type IdentityService struct {
	platform PlatformUsers
	users    UserStore
}

func NewIdentityService(platform PlatformUsers, users UserStore) (*IdentityService, error) {
	if platform == nil {
		return nil, errors.New("core: platform users must not be nil")
	}
	if users == nil {
		return nil, errors.New("core: user store must not be nil")
	}
	return &IdentityService{platform: platform, users: users}, nil
}

// DeriveUserID replaces every character outside [A-Za-z0-9_-] with '_'.
func DeriveUserID(email string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, email)
}

// Register makes sure the user derived from email exists on the chat
// platform and in the local store. Repeated calls return the same identity.
func (s *IdentityService) Register(ctx context.Context, name, email string) (Identity, error) {
	const op = "register"
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return Identity{}, validationError(op, "Name and email are required")
	}

	userID := DeriveUserID(email)

	onPlatform, err := s.platform.UserExists(ctx, userID)
	if err != nil {
		return Identity{}, internalError(op, err)
	}
	if !onPlatform {
		if err := s.platform.CreateUser(ctx, userID, name, email); err != nil {
			return Identity{}, internalError(op, err)
		}
		slog.Info("created platform user", "userId", userID)
	}

	created, err := s.users.EnsureUser(ctx, &store.User{UserID: userID, Name: name, Email: email})
	if err != nil {
		return Identity{}, internalError(op, err)
	}
	if created {
		slog.Info("created local user", "userId", userID)
	}

	return Identity{UserID: userID, Name: name, Email: email}, nil
}

// Exists reports whether userID is known to both the platform and the local
// store. The two lookups are read-only and run concurrently.
func (s *IdentityService) Exists(ctx context.Context, userID string) (bool, error) {
	var onPlatform, inStore bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ok, err := s.platform.UserExists(gctx, userID)
		if err != nil {
			return err
		}
		onPlatform = ok
		return nil
	})
	g.Go(func() error {
		u, err := s.users.GetUserByID(gctx, userID)
		if err != nil {
			return err
		}
		inStore = u != nil
		return nil
	})
	if err := g.Wait(); err != nil {
		return false, fmt.Errorf("check user %q: %w", userID, err)
	}
	return onPlatform && inStore, nil
}
