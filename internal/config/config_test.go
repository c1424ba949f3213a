package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.OrderTTL)
	assert.Equal(t, 60*time.Second, cfg.SweepInterval)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ORDER_TTL", "10m")
	t.Setenv("SWEEP_INTERVAL", "5s")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")

	cfg := Load()
	assert.Equal(t, 10*time.Minute, cfg.OrderTTL)
	assert.Equal(t, 5*time.Second, cfg.SweepInterval)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("ORDER_TTL", "soon")
	cfg := Load()
	assert.Equal(t, 30*time.Minute, cfg.OrderTTL)
}
