package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leads/internal/store"
	"github.com/JonMunkholm/leads/internal/store/storetest"
)

// testURLEnv names a disposable database. Its tables are truncated.
const testURLEnv = "LEADS_TEST_POSTGRES_URL"

func TestStore(t *testing.T) {
	url := os.Getenv(testURLEnv)
	if url == "" {
		t.Skipf("%s not set", testURLEnv)
	}

	storetest.Run(t, func(t *testing.T) store.Backend {
		ctx := context.Background()
		s, err := Open(ctx, url, PoolOptions{MaxConns: 4})
		require.NoError(t, err)

		_, err = s.pool.Exec(ctx, `TRUNCATE leads, staff RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
		return s
	})
}
