package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8082, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "AP", cfg.Tax.HomeStateCode)
	assert.Equal(t, "1999", cfg.Shipping.FreeShippingThreshold.String())
	assert.Equal(t, "99", cfg.Shipping.FlatShippingFee.String())
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Features.ChargeShippingAtCheckout)
	assert.True(t, cfg.Features.EnableOrderCaching)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("TAX_HOME_STATE_CODE", "ka")
	t.Setenv("FREE_SHIPPING_THRESHOLD", "2499.50")
	t.Setenv("FLAT_SHIPPING_FEE", "-5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("CHARGE_SHIPPING_AT_CHECKOUT", "true")
	t.Setenv("ENABLE_ORDER_EVENTS", "nope")

	cfg := Load()

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "KA", cfg.Tax.HomeStateCode)
	assert.Equal(t, "2499.5", cfg.Shipping.FreeShippingThreshold.String())
	assert.Equal(t, "99", cfg.Shipping.FlatShippingFee.String())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Features.ChargeShippingAtCheckout)
	assert.True(t, cfg.Features.EnableOrderEvents)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", d.ConnectionString())
}
