package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/suministros-api/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, int32(25), cfg.DB.MaxConns)
	assert.Equal(t, 7, cfg.Inventory.DeleteWindowDays)
	assert.Equal(t, 30, cfg.Inventory.ReversalWindowDays)
	assert.Equal(t, 365, cfg.Inventory.HistoryMaxDays)
	assert.Equal(t, time.Hour, cfg.Inventory.LowStockScanEvery)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CACHE_TTL_SECONDS", "15")
	t.Setenv("LEDGER_DELETE_WINDOW_DAYS", "3")
	t.Setenv("LOW_STOCK_SCAN_INTERVAL_MINUTES", "0")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 15*time.Second, cfg.Redis.TTL)
	assert.Equal(t, 3, cfg.Inventory.DeleteWindowDays)
	assert.Zero(t, cfg.Inventory.LowStockScanEvery)
}

func TestLoad_VentanaInvalida(t *testing.T) {
	t.Setenv("LEDGER_REVERSAL_WINDOW_DAYS", "0")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSN(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "suministros", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/suministros?sslmode=disable", c.DSN())
	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
