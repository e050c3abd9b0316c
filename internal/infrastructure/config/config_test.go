package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"ROAST_APP_NAME":                  os.Getenv("ROAST_APP_NAME"),
		"ROAST_APP_ENV":                   os.Getenv("ROAST_APP_ENV"),
		"ROAST_APP_PORT":                  os.Getenv("ROAST_APP_PORT"),
		"ROAST_DATABASE_HOST":             os.Getenv("ROAST_DATABASE_HOST"),
		"ROAST_DATABASE_PORT":             os.Getenv("ROAST_DATABASE_PORT"),
		"ROAST_DATABASE_USER":             os.Getenv("ROAST_DATABASE_USER"),
		"ROAST_DATABASE_PASSWORD":         os.Getenv("ROAST_DATABASE_PASSWORD"),
		"ROAST_DATABASE_DBNAME":           os.Getenv("ROAST_DATABASE_DBNAME"),
		"ROAST_DATABASE_SSLMODE":          os.Getenv("ROAST_DATABASE_SSLMODE"),
		"ROAST_DATABASE_MAX_OPEN_CONNS":   os.Getenv("ROAST_DATABASE_MAX_OPEN_CONNS"),
		"ROAST_DATABASE_MAX_IDLE_CONNS":   os.Getenv("ROAST_DATABASE_MAX_IDLE_CONNS"),
		"ROAST_BILLING_MAX_RETRIES":       os.Getenv("ROAST_BILLING_MAX_RETRIES"),
		"ROAST_BILLING_CREDIT_PACK_SIZE":  os.Getenv("ROAST_BILLING_CREDIT_PACK_SIZE"),
		"ROAST_SCHEDULER_ENABLED":         os.Getenv("ROAST_SCHEDULER_ENABLED"),
		"ROAST_SCHEDULER_CHECK_INTERVAL":  os.Getenv("ROAST_SCHEDULER_CHECK_INTERVAL"),
		"ROAST_STRIPE_SECRET_KEY":         os.Getenv("ROAST_STRIPE_SECRET_KEY"),
		"ROAST_STRIPE_WEBHOOK_SECRET":     os.Getenv("ROAST_STRIPE_WEBHOOK_SECRET"),
		"ROAST_STRIPE_IS_TEST_MODE":       os.Getenv("ROAST_STRIPE_IS_TEST_MODE"),
		"ROAST_TELEMETRY_ENABLED":         os.Getenv("ROAST_TELEMETRY_ENABLED"),
		"ROAST_TELEMETRY_EXPORT_INTERVAL": os.Getenv("ROAST_TELEMETRY_EXPORT_INTERVAL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "resumeroast-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "resumeroast", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 3, cfg.Billing.MaxRetries)
		assert.Equal(t, int64(200), cfg.Billing.CreditPackSize)
		assert.Equal(t, time.Hour, cfg.Scheduler.CheckInterval)
		assert.Equal(t, 30*time.Minute, cfg.Scheduler.RunTimeout)
		assert.Equal(t, time.Minute, cfg.Telemetry.ExportInterval)
	})

	t.Run("loads values from environment variables with ROAST prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("ROAST_APP_NAME", "test-app")
		os.Setenv("ROAST_DATABASE_HOST", "testdb.local")
		os.Setenv("ROAST_DATABASE_PORT", "5433")
		os.Setenv("ROAST_BILLING_MAX_RETRIES", "5")
		os.Setenv("ROAST_BILLING_CREDIT_PACK_SIZE", "500")
		os.Setenv("ROAST_SCHEDULER_ENABLED", "true")
		os.Setenv("ROAST_SCHEDULER_CHECK_INTERVAL", "10m")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 5, cfg.Billing.MaxRetries)
		assert.Equal(t, int64(500), cfg.Billing.CreditPackSize)
		assert.True(t, cfg.Scheduler.Enabled)
		assert.Equal(t, 10*time.Minute, cfg.Scheduler.CheckInterval)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("ROAST_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("ROAST_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("ROAST_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("validates CreditPackSize cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("ROAST_BILLING_CREDIT_PACK_SIZE", "-10")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credit_pack_size cannot be negative")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"ROAST_APP_ENV":               os.Getenv("ROAST_APP_ENV"),
		"ROAST_DATABASE_PASSWORD":     os.Getenv("ROAST_DATABASE_PASSWORD"),
		"ROAST_DATABASE_SSLMODE":      os.Getenv("ROAST_DATABASE_SSLMODE"),
		"ROAST_STRIPE_SECRET_KEY":     os.Getenv("ROAST_STRIPE_SECRET_KEY"),
		"ROAST_STRIPE_WEBHOOK_SECRET": os.Getenv("ROAST_STRIPE_WEBHOOK_SECRET"),
		"ROAST_STRIPE_IS_TEST_MODE":   os.Getenv("ROAST_STRIPE_IS_TEST_MODE"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	setValidProductionBase := func() {
		os.Setenv("ROAST_APP_ENV", "production")
		os.Setenv("ROAST_DATABASE_PASSWORD", "secure-password")
		os.Setenv("ROAST_DATABASE_SSLMODE", "require")
		os.Setenv("ROAST_STRIPE_SECRET_KEY", "sk_live_example")
		os.Setenv("ROAST_STRIPE_WEBHOOK_SECRET", "whsec_example")
		os.Setenv("ROAST_STRIPE_IS_TEST_MODE", "false")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("ROAST_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("ROAST_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires stripe.secret_key in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("ROAST_STRIPE_SECRET_KEY")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stripe.secret_key is required in production")
	})

	t.Run("rejects stripe test mode in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("ROAST_STRIPE_IS_TEST_MODE", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stripe.is_test_mode must be false in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		// URL-encoded password should be in the DSN
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}
