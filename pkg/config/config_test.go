package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, StoreDriverPostgres, cfg.Ledger.StoreDriver)
	assert.Equal(t, 5, cfg.Ledger.TxMaxAttempts)
	assert.Equal(t, 5, cfg.Cache.StockTTLSeconds)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 1000, cfg.Loyalty.AmountPerPoint)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "MEMORY")
	v.Set("LEDGER_TX_MAX_ATTEMPTS", "8")
	v.Set("KAFKA_BROKERS", "k1:9092, k2:9092,")
	v.Set("DB_PORT", "x")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.Ledger.StoreDriver)
	assert.Equal(t, 8, cfg.Ledger.TxMaxAttempts)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5432, cfg.DB.Port, "valor no numérico cae al default")
}

func TestFromViper_Invalid(t *testing.T) {
	cases := map[string]map[string]any{
		"driver desconocido": {"STORE_DRIVER": "mongo"},
		"intentos en cero":   {"LEDGER_TX_MAX_ATTEMPTS": 0},
		"produccion sin jwt": {"APP_ENV": "production"},
		"puntos en cero":     {"LOYALTY_AMOUNT_PER_POINT": "0"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			for k, val := range values {
				v.Set(k, val)
			}
			_, err := fromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "x", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/x?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://other"
	assert.Equal(t, "postgres://other", c.ConnectionString())
}
