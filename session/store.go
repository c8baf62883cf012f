// Package session owns the bearer credential and the broadcast of session
// transitions. The credential is the single source of truth for
// authentication: present means signed in, absent means signed out, and
// nothing else is ever cached.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CredentialStore persists the opaque bearer token per browser session.
// Get returns "" with a nil error when no credential is stored.
type CredentialStore interface {
	Save(ctx context.Context, sessionID, token string) error
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

type credentialStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCredentialStore(client *redis.Client, prefix string, ttl time.Duration) CredentialStore {
	return &credentialStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (cs *credentialStore) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", cs.prefix, sessionID)
}

func (cs *credentialStore) Save(ctx context.Context, sessionID, token string) error {
	if err := cs.client.Set(ctx, cs.key(sessionID), token, cs.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	return nil
}

func (cs *credentialStore) Get(ctx context.Context, sessionID string) (string, error) {
	result, err := cs.client.Get(ctx, cs.key(sessionID)).Result()
	if err == redis.Nil {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("failed to get credential: %w", err)
	}

	return result, nil
}

func (cs *credentialStore) Delete(ctx context.Context, sessionID string) error {
	err := cs.client.Del(ctx, cs.key(sessionID)).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	return nil
}
