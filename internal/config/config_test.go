package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "demo"
log_level = "debug"

[database]
host = "db.internal"
database = "market"

[server]
port = 9000
rate_limit = 10
rate_limit_window = "2s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "market", cfg.Database.Database)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.RateLimitWindow.Duration)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `mode = "demo"`)

	t.Setenv("NFTMARKET_MODE", "server")
	t.Setenv("NFTMARKET_CUSTODY_PRIVATE_KEY", "deadbeef")
	t.Setenv("NFTMARKET_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("NFTMARKET_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("NFTMARKET_DATABASE_RUN_MIGRATIONS", "false")
	t.Setenv("NFTMARKET_ENGINE_CONTRACTS",
		"0x0000000000000000000000000000000000000721:erc721, 0x0000000000000000000000000000000000001155:erc1155")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "deadbeef", cfg.Custody.PrivateKey)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Database.RunMigrations)
	require.Len(t, cfg.Engine.Contracts, 2)
	assert.Equal(t, "0x0000000000000000000000000000000000000721", cfg.Engine.Contracts[0].Address)
	assert.Equal(t, "erc721", cfg.Engine.Contracts[0].Kind)
	assert.Equal(t, "erc1155", cfg.Engine.Contracts[1].Kind)
}

func TestLoadContracts(t *testing.T) {
	path := writeConfig(t, `
mode = "demo"

[[engine.contracts]]
address = "0x0000000000000000000000000000000000000721"
kind = "erc721"

[[engine.contracts]]
address = "0x0000000000000000000000000000000000001155"
kind = "erc1155"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Engine.Contracts, 2)
	assert.Equal(t, "erc721", cfg.Engine.Contracts[0].Kind)
	assert.Equal(t, "erc1155", cfg.Engine.Contracts[1].Kind)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Defaults()
		cfg.Mode = "demo"
		return cfg
	}

	t.Run("defaults in demo mode pass", func(t *testing.T) {
		cfg := valid()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("server mode requires a custody key", func(t *testing.T) {
		cfg := Defaults()
		cfg.Mode = "server"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "custody")
	})

	t.Run("encrypted key path requires password", func(t *testing.T) {
		cfg := Defaults()
		cfg.Mode = "server"
		cfg.Custody.EncryptedKeyPath = "/keys/custody.enc"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key_password")
	})

	t.Run("unknown mode rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Mode = "trade"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad owner address rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Engine.OwnerAddress = "not-an-address"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad contract entries rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Engine.Contracts = []ContractConfig{
			{Address: "not-an-address", Kind: "erc721"},
			{Address: "0x0000000000000000000000000000000000000721", Kind: "erc20"},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "contracts[0]")
		assert.Contains(t, err.Error(), "contracts[1]")
	})

	t.Run("archive mode requires s3", func(t *testing.T) {
		cfg := valid()
		cfg.Mode = "archive"
		cfg.Custody.PrivateKey = "deadbeef"
		cfg.S3.Bucket = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket")
	})

	t.Run("errors are combined", func(t *testing.T) {
		cfg := valid()
		cfg.Redis.Addr = ""
		cfg.LogLevel = "verbose"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis")
		assert.Contains(t, err.Error(), "log_level")
	})
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Custody.PrivateKey = "secret-key"
	cfg.Database.Password = "hunter2"
	cfg.Server.APIKey = "api-secret"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Custody.PrivateKey)
	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Original untouched.
	assert.Equal(t, "secret-key", cfg.Custody.PrivateKey)

	// Non-secret fields pass through.
	assert.Equal(t, cfg.Redis.Addr, red.Redis.Addr)
}
