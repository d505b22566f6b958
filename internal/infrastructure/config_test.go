package infra

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("learnhub", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfig(t *testing.T) {
	fs := newFlagSet(t,
		"--app_id", "learnhub-test",
		"--database.username", "root",
		"--database.password", "root",
		"--database.schema", "learnhub",
		"--security.jwt_secret", "secret",
		"--kv.password", "redis",
		"--port", "9000",
	)

	cfg, err := LoadConfig(viper.New(), fs)
	require.NoError(t, err)
	assert.Equal(t, "learnhub-test", cfg.AppID)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.SessionTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 2*time.Hour, cfg.Cache.RoleTTL)
	assert.Equal(t, "learnhub_token", cfg.Security.TokenName)
	assert.Equal(t, []string{"*"}, cfg.Security.AllowOrigins)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LEARNHUB_APP_ID", "from-env")
	t.Setenv("LEARNHUB_DATABASE_USERNAME", "root")
	t.Setenv("LEARNHUB_DATABASE_PASSWORD", "root")
	t.Setenv("LEARNHUB_DATABASE_SCHEMA", "learnhub")
	t.Setenv("LEARNHUB_SECURITY_JWT_SECRET", "secret")
	t.Setenv("LEARNHUB_KV_PASSWORD", "redis")

	cfg, err := LoadConfig(viper.New(), newFlagSet(t))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.AppID)
	assert.Equal(t, "learnhub", cfg.Database.Schema)
}

func TestLoadConfigValidation(t *testing.T) {
	fs := newFlagSet(t,
		"--database.driver", "sqlite",
		"--security.id_length", "4",
	)

	_, err := LoadConfig(viper.New(), fs)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "app_id is required")
	assert.Contains(t, msg, "database.driver must be one of (postgres)")
	assert.Contains(t, msg, "security.id_length must be at least 8")
	assert.Contains(t, msg, "security.jwt_secret is required")
}
