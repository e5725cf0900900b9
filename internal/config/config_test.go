package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")

	cfg := Load()
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "usd", cfg.Currency)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("NOTIFIER_WORKERS", "not-a-number")

	cfg := Load()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, 4, cfg.NotifierWorkers)
}

func TestValidate(t *testing.T) {
	cfg := Config{}
	err := cfg.ValidateAPI()
	require.Error(t, err)
	assert.Equal(t, "missing required settings: JWT_SECRET, STRIPE_SECRET_KEY", err.Error())

	cfg.JWTSecret, cfg.StripeSecretKey = "s", "sk_test"
	assert.NoError(t, cfg.ValidateAPI())

	cfg.MailFrom = "shop@example.com"
	err = cfg.ValidateNotifier()
	require.Error(t, err)
	assert.Equal(t, "missing required settings: MAIL_PASSWORD, MAIL_USERNAME", err.Error())
}
