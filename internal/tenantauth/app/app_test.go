package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/service"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		Env:          "dev",
		Log:          LogConfig{Level: "debug", Format: "text"},
		Database:     DatabaseConfig{File: filepath.Join(dir, "tenantauth.db")},
		Security:     SecurityConfig{Cipher: "aes-256-cbc", BootstrapToken: "bootstrap-me"},
		Tokens:       TokensConfig{Issuer: "tenantauth-test", AccessTTL: time.Hour, ValidationTTL: 24 * time.Hour},
		Auth:         AuthConfig{AttemptsPerMinute: 5, Burst: 5},
		Signals:      SignalsConfig{MaxAge: time.Hour},
		Housekeeping: HousekeepingConfig{Interval: time.Hour},
		Metrics:      MetricsConfig{Textfile: filepath.Join(dir, "tenantauth.prom")},
	}
}

func TestApplication_DevMasterSecretSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := New(cfg, WithLogOutput(io.Discard))
	require.NoError(t, err)
	res, err := first.Bootstrap.Bootstrap(first.Context(ctx), "bootstrap-me", service.BootstrapData{})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	_, err = os.Stat(filepath.Join(filepath.Dir(cfg.Database.File), DevMasterFile))
	require.NoError(t, err)

	second, err := New(cfg, WithLogOutput(io.Discard))
	require.NoError(t, err)
	defer second.Close()

	pair, err := second.Clients.Login(second.Context(ctx), res.Client.ID, res.Client.Secret)
	require.NoError(t, err)
	require.Equal(t, int64(3600), pair.ExpiresIn)

	caller, err := second.Sessions.Authorize(ctx, pair.AccessToken, "")
	require.NoError(t, err)
	require.True(t, caller.Account.IsSuperAdmin())
	require.True(t, caller.Client.IsReadWrite())
}

func TestApplication_FlushMetrics(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(cfg, WithLogOutput(io.Discard))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "go_goroutines"))
}

func TestApplication_RequiresMasterSecretOutsideDev(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "prod"

	_, err := New(cfg, WithLogOutput(io.Discard))
	require.Error(t, err)

	cfg.Security.MasterSecret = "short"
	_, err = New(cfg, WithLogOutput(io.Discard))
	require.Error(t, err)
}
