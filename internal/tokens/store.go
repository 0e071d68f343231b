// Package tokens holds the access/refresh token pair in durable client
// storage. Readers always see the latest persisted value.
package tokens

import (
	"context"
	"fmt"

	"github.com/nidhal-dev/authfront/internal/storage"
)

// Storage keys for the token pair
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Pair is the token pair as persisted. Empty strings mean "absent".
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Store reads and writes the token pair
type Store struct {
	storage storage.Storage
}

// NewStore creates a token store over the given storage
func NewStore(s storage.Storage) *Store {
	return &Store{storage: s}
}

// AccessToken returns the stored access token, or "" if none
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, AccessTokenKey)
}

// RefreshToken returns the stored refresh token, or "" if none
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, RefreshTokenKey)
}

// Pair returns both tokens
func (s *Store) Pair(ctx context.Context) (Pair, error) {
	access, err := s.AccessToken(ctx)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.RefreshToken(ctx)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// SetAccessToken persists a new access token. An empty token removes it.
func (s *Store) SetAccessToken(ctx context.Context, token string) error {
	return s.set(ctx, AccessTokenKey, token)
}

// Save persists both tokens, as returned by a successful login
func (s *Store) Save(ctx context.Context, p Pair) error {
	if err := s.set(ctx, AccessTokenKey, p.AccessToken); err != nil {
		return err
	}
	return s.set(ctx, RefreshTokenKey, p.RefreshToken)
}

// Clear removes both tokens
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Remove(ctx, AccessTokenKey); err != nil {
		return fmt.Errorf("failed to remove access token: %w", err)
	}
	if err := s.storage.Remove(ctx, RefreshTokenKey); err != nil {
		return fmt.Errorf("failed to remove refresh token: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, found, err := s.storage.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	return v, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	if value == "" {
		return s.storage.Remove(ctx, key)
	}
	return s.storage.Set(ctx, key, value)
}
