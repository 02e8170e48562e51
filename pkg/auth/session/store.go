// Package session keeps the client's access token in a key-value store so a
// restarted client resumes without logging in again.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/partnest/sparesync/pkg/auth"
	"github.com/partnest/sparesync/pkg/enums"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
)

var ErrNoSession = pkgerrors.New(pkgerrors.CodeUnauthorized, "no stored session")

type kvStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(deviceID string) string
}

// Session is the decoded view of a stored token.
type Session struct {
	Token  string
	UserID uuid.UUID
	Role   enums.MemberRole
}

// Store persists one session per device id.
type Store struct {
	kv       kvStore
	keyer    sessionKeyer
	deviceID string
	ttl      time.Duration
}

// NewStore builds a session store. kv is usually *redis.Client, which also
// provides the key naming.
func NewStore(kv kvStore, keyer sessionKeyer, deviceID string, ttl time.Duration) (*Store, error) {
	if kv == nil || keyer == nil {
		return nil, fmt.Errorf("session store requires a key-value backend")
	}
	if strings.TrimSpace(deviceID) == "" {
		return nil, fmt.Errorf("device id is required")
	}
	return &Store{kv: kv, keyer: keyer, deviceID: deviceID, ttl: ttl}, nil
}

// Save stores token after checking it decodes to a usable identity.
func (s *Store) Save(ctx context.Context, token string) (Session, error) {
	sess, err := decode(token)
	if err != nil {
		return Session{}, err
	}
	if err := s.kv.Set(ctx, s.key(), sess.Token, s.ttl); err != nil {
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to store session")
	}
	return sess, nil
}

// Load returns the stored session or ErrNoSession.
func (s *Store) Load(ctx context.Context) (Session, error) {
	raw, err := s.kv.Get(ctx, s.key())
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return Session{}, ErrNoSession
		}
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to read session")
	}
	return decode(raw)
}

// Clear drops the stored session. Clearing an absent session is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Del(ctx, s.key()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to clear session")
	}
	return nil
}

func (s *Store) key() string {
	return s.keyer.SessionKey(s.deviceID)
}

func decode(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrNoSession
	}
	claims, err := auth.PeekAccessToken(token)
	if err != nil {
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "stored session is unreadable")
	}
	return Session{Token: token, UserID: claims.UserID, Role: claims.Role}, nil
}
