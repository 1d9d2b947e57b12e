package ledger_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/ledger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Runs the Lua consume path against a real server. Needs Docker, so it only
// runs when IAM_INTEGRATION is set.
func TestRedisLedgerIntegration(t *testing.T) {
	if testing.Short() || os.Getenv("IAM_INTEGRATION") == "" {
		t.Skip("set IAM_INTEGRATION=1 to run against a redis container")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })

	l := ledger.NewRedis(client, "it")
	require.NoError(t, l.Insert(ctx, 42, "r0", time.Minute))

	res, err := l.Rotate(ctx, 42, "r0", "r1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, ledger.Valid, res)

	ttl, err := client.PTTL(ctx, "it:refresh:42").Result()
	require.NoError(t, err)
	require.Positive(t, ttl, "rotated key keeps an expiry")

	res, err = l.Rotate(ctx, 42, "r0", "r2", time.Minute)
	require.NoError(t, err)
	require.Equal(t, ledger.Reused, res)

	ttl, err = client.TTL(ctx, "it:refresh:42").Result()
	require.NoError(t, err)
	require.Equal(t, time.Duration(-2), ttl, "key is gone")
}
