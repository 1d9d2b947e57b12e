package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.JWTSecret = testSecret
	cfg.DatabaseFile = filepath.Join(dir, "iamcore.db")
	cfg.PepperFile = filepath.Join(dir, "secrets", "pepper")
	cfg.PasswordHasher = "bcrypt"
	cfg.LogLevel = "error"
	return cfg
}

func TestNewWiresServices(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.TFASecretKey = "sealing-key"

	app, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.closeAll(ctx) })

	require.NotNil(t, app.housekeeping, "store ledger is swept")
	require.NotNil(t, app.authService.Secrets)
	require.Nil(t, app.authService.Google)
	require.FileExists(t, cfg.PepperFile)

	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	id, err := app.authService.SignUp(ctx, "a@x.com", "Password1234!")
	require.NoError(t, err)
	_, err = app.authService.SignIn(ctx, "a@x.com", "Password1234!", "")
	require.NoError(t, err)
	require.NotZero(t, id)
}

func TestNewMemoryLedgerAndGoogle(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.LedgerBackend = LedgerMemory
	cfg.GoogleClientID = "client.apps.googleusercontent.com"

	app, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.closeAll(ctx) })

	require.NotNil(t, app.housekeeping)
	require.NotNil(t, app.authService.Google)
	require.Nil(t, app.authService.Secrets)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = ""
	_, err := New(context.Background(), cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMigrate(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, Migrate(context.Background(), cfg))
	// Re-running is a no-op.
	require.NoError(t, Migrate(context.Background(), cfg))
	require.FileExists(t, cfg.DatabaseFile)
}
