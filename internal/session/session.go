// Package session keeps conversational intake state between tool calls.
//
// Sessions are keyed by an opaque id and expire after a TTL. Stores are
// injected into the tool layer; there is no package-level session map.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found or expired")

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = 30 * time.Minute

var timeNow = time.Now

// Session is one goal intake conversation.
type Session struct {
	ID          string            `json:"id"`
	ProjectRoot string            `json:"projectRoot"`
	ComponentID string            `json:"componentId"`
	Step        int               `json:"step"`
	Answers     map[string]string `json:"answers"`
	CreatedAt   time.Time         `json:"createdAt"`
	ExpiresAt   time.Time         `json:"expiresAt"`
}

// New starts a session expiring ttl from now.
func New(projectRoot, componentID string, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := timeNow()
	return &Session{
		ID:          uuid.NewString(),
		ProjectRoot: projectRoot,
		ComponentID: componentID,
		Answers:     map[string]string{},
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Touch pushes the expiry out by ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.ExpiresAt = timeNow().Add(ttl)
}

// Store persists sessions.
type Store interface {
	// Put creates or replaces a session.
	Put(ctx context.Context, s *Session) error
	// Get returns a live session or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	// Sweep removes expired sessions and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}

func clone(s *Session) *Session {
	c := *s
	c.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	return &c
}
