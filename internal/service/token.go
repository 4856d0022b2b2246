package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"listing-admin-api/internal/cache"
	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/model"
)

const (
	// TokenPrefix is the prefix for all session tokens
	TokenPrefix = "lah_"

	// TokenTTL is the default token lifetime (1 hour)
	TokenTTL = 1 * time.Hour

	// tokenKeyPrefix is the cache key prefix for tokens
	tokenKeyPrefix = "token:"
)

var (
	ErrInvalidToken = errors.New("invalid token format")
	ErrTokenExpired = errors.New("token not found or expired")
)

// TokenService handles operator session tokens. Tokens live in the shared
// cache, so Redis-backed deployments share sessions across instances.
type TokenService struct {
	store cache.Cache
	log   logger.Logger
	now   func() time.Time
}

// NewTokenService creates a new token service.
func NewTokenService(store cache.Cache, log logger.Logger) *TokenService {
	return &TokenService{
		store: store,
		log:   log.With("component", "token"),
		now:   time.Now,
	}
}

// GenerateToken creates a new session token and stores it.
func (s *TokenService) GenerateToken(ctx context.Context, data model.TokenData) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := TokenPrefix + hex.EncodeToString(tokenBytes)

	data.CreatedAt = s.now()
	data.ExpiresAt = data.CreatedAt.Add(TokenTTL)

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize token data: %w", err)
	}

	if err := s.store.Set(ctx, tokenKeyPrefix+token, jsonData, TokenTTL); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	s.log.Info("token generated", "admin_id", data.AdminID, "expires_at", data.ExpiresAt)
	return token, nil
}

// ValidateToken checks if a token is valid and returns its data.
func (s *TokenService) ValidateToken(ctx context.Context, token string) (*model.TokenData, error) {
	if !strings.HasPrefix(token, TokenPrefix) || len(token) == len(TokenPrefix) {
		return nil, ErrInvalidToken
	}

	key := tokenKeyPrefix + token
	jsonData, err := s.store.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var data model.TokenData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to parse token data: %w", err)
	}

	if s.now().After(data.ExpiresAt) {
		_ = s.store.Delete(ctx, key)
		return nil, ErrTokenExpired
	}

	return &data, nil
}

// RevokeToken deletes a token.
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	return s.store.Delete(ctx, tokenKeyPrefix+token)
}

// RefreshToken extends the lifetime of an existing token.
func (s *TokenService) RefreshToken(ctx context.Context, token string) error {
	data, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err
	}

	data.ExpiresAt = s.now().Add(TokenTTL)

	newJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, tokenKeyPrefix+token, newJSON, TokenTTL)
}
