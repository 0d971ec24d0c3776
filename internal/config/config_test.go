package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  http_addr: ":9000"
database:
  driver: sqlite
  dsn: "file:test.db"
auth:
  jwt_secret: from-yaml
rate_limit:
  per_minute: 10
  burst: 2
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("AI_TIMEOUT", "5s")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.HTTPAddr)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.Equal(t, float64(10), cfg.RateLimit.PerMinute)
	assert.Equal(t, 2, cfg.RateLimit.Burst)
}

func TestLoadEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "GEMINI_API_KEY=dotenv-key\nS3_BUCKET=photos\n")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("S3_BUCKET", "")
	require.NoError(t, os.Unsetenv("GEMINI_API_KEY"))
	require.NoError(t, os.Unsetenv("S3_BUCKET"))

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.AI.APIKey)
	assert.Equal(t, "photos", cfg.Storage.Bucket)
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	_, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	cfg := Default()
	err := applyEnv(&cfg, func(key string) (string, bool) {
		if key == "REDIS_DB" {
			return "two", true
		}
		return "", false
	})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "jwt secret required")

	cfg.Auth.JWTSecret = "s"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())
}

func TestDefaultLeavesAICallUnbounded(t *testing.T) {
	assert.Zero(t, Default().AI.Timeout)
}
