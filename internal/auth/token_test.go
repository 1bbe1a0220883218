package auth_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/tablestore/internal/auth"
)

var _ auth.TokenManager = (*auth.StaticTokenManager)(nil)

func TestStaticTokenManager(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		apiKey   string
		expected string
		err      error
	}{
		{name: "returns the api key", apiKey: "key123", expected: "key123"},
		{name: "trims whitespace", apiKey: " key123\n", expected: "key123"},
		{name: "empty api key", apiKey: "", err: auth.ErrNoToken},
		{name: "blank api key", apiKey: "   ", err: auth.ErrNoToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token, err := auth.NewStaticTokenManager(tt.apiKey).GetToken(context.Background())
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				assert.Empty(t, token)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, token)
		})
	}
}

func TestStaticTokenManager_ConcurrentUse(t *testing.T) {
	t.Parallel()

	manager := auth.NewStaticTokenManager("key123")

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			token, err := manager.GetToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "key123", token)
		}()
	}

	wg.Wait()
}
