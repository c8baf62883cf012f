// Package store keeps the Spotify OAuth tokens obtained when a user links
// their account. Tokens live in redis under a fixed prefix, one entry per
// user session.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"golang.org/x/oauth2"
)

type TokenStore interface {
	Save(ctx context.Context, sessionID string, token *oauth2.Token) error
	Get(ctx context.Context, sessionID string) (*oauth2.Token, error)
	Update(ctx context.Context, sessionID string, newToken *oauth2.Token) error
	Delete(ctx context.Context, sessionID string) error
}

type tokenStore struct {
	client *redis.Client
	prefix string
}

func NewTokenStore(client *redis.Client, prefix string) TokenStore {
	return &tokenStore{
		client: client,
		prefix: prefix,
	}
}

func (ts *tokenStore) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", ts.prefix, sessionID)
}

func (ts *tokenStore) Save(ctx context.Context, sessionID string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := ts.client.Set(ctx, ts.key(sessionID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

// Get returns nil with a nil error when no token is stored, which callers
// treat as "account not linked".
func (ts *tokenStore) Get(ctx context.Context, sessionID string) (*oauth2.Token, error) {
	result, err := ts.client.Get(ctx, ts.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(result), &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &token, nil
}

// Update replaces an existing token, typically after a refresh. Updating a
// token that was never saved is an error: it means the linkage was severed
// while a refresh was in flight.
func (ts *tokenStore) Update(ctx context.Context, sessionID string, newToken *oauth2.Token) error {
	existing, err := ts.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get existing token: %w", err)
	}

	if existing == nil {
		return fmt.Errorf("token to update not found")
	}

	return ts.Save(ctx, sessionID, newToken)
}

func (ts *tokenStore) Delete(ctx context.Context, sessionID string) error {
	err := ts.client.Del(ctx, ts.key(sessionID)).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return nil
}
