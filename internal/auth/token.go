// Package auth supplies the bearer credential sent with every request.
package auth

import (
	"context"
	"errors"
	"strings"
)

// Static errors for err113 compliance.
var (
	ErrNoToken = errors.New("no access token configured")
)

// TokenManager supplies the bearer credential for each request.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
}

// StaticTokenManager always returns the same API key. API keys never expire.
type StaticTokenManager struct {
	apiKey string
}

// NewStaticTokenManager creates a manager for apiKey. Surrounding whitespace
// is dropped.
func NewStaticTokenManager(apiKey string) *StaticTokenManager {
	return &StaticTokenManager{apiKey: strings.TrimSpace(apiKey)}
}

// GetToken implements TokenManager.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	if m.apiKey == "" {
		return "", ErrNoToken
	}

	return m.apiKey, nil
}
