package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// Недопустимый sslmode отклоняется на разборе конфигурации, до сети.
func TestNewPool_RejectsInvalidSSLMode(t *testing.T) {
	_, err := NewPool(context.Background(), 5432, "localhost", "admin", "admin", "db", "bogus")
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing config failed")
}

func TestConnect_PropagatesPoolError(t *testing.T) {
	_, err := Connect(context.Background(), 5432, "localhost", "admin", "admin", "db", "bogus")
	require.Error(t, err)
}
