package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("OTP_TTL", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("MEDIA_LEDGER", "")

	cfg := config.Load()
	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 5*time.Minute, cfg.OtpTTL)
	assert.Equal(t, 3, cfg.OtpMaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "postgres", cfg.MediaLedger)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("OTP_MAX_ATTEMPTS", "5")
	t.Setenv("SESSION_TTL", "10m")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("PORT", "not-a-number")

	cfg := config.Load()
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 5, cfg.OtpMaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# local settings\n" +
		"export KYC_TEST_A=alpha\n" +
		"KYC_TEST_B=\"quoted # kept\"\n" +
		"KYC_TEST_C=plain # trailing\n" +
		"KYC_TEST_D=from-file\n" +
		"not a pair\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("KYC_TEST_D", "from-env")
	for _, k := range []string{"KYC_TEST_A", "KYC_TEST_B", "KYC_TEST_C"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	require.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "alpha", os.Getenv("KYC_TEST_A"))
	assert.Equal(t, "quoted # kept", os.Getenv("KYC_TEST_B"))
	assert.Equal(t, "plain", os.Getenv("KYC_TEST_C"))
	assert.Equal(t, "from-env", os.Getenv("KYC_TEST_D"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
