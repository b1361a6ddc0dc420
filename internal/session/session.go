package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("session not found")

// ContextKey is where the auth middleware stores the request's Auth value
// in the gin context.
const ContextKey = "auth"

// CookieName is the default name of the session cookie.
const CookieName = "session_token"

// Auth is the per-request authentication context carried by a session.
// Handlers read it instead of any process-global login state.
type Auth struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type Store interface {
	Create(ctx context.Context, auth Auth) (string, error)
	Get(ctx context.Context, token string) (*Auth, error)
	Delete(ctx context.Context, token string) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func sessionKey(token string) string {
	return "session:" + token
}

func (s *redisStore) Create(ctx context.Context, auth Auth) (string, error) {
	token := uuid.NewString()
	payload, err := json.Marshal(auth)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *redisStore) Get(ctx context.Context, token string) (*Auth, error) {
	payload, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var auth Auth
	if err := json.Unmarshal(payload, &auth); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &auth, nil
}

func (s *redisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
