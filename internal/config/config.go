package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server              ServerConfig
	Database            DatabaseConfig
	Redis               RedisConfig
	Kafka               KafkaConfig
	PaymentService      ServiceConfig
	NotificationService ServiceConfig
	Tax                 TaxConfig
	Shipping            ShippingConfig
	Features            FeatureFlags
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	AutoMigrate  bool
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
	CartTTL  time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	OrdersTopic   string
	PaymentsTopic string
	ConsumerGroup string
}

type ServiceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// TaxConfig controls GST resolution. HomeStateCode is the ISO code of the
// state whose buyers pay local GST. RatesFile seeds missing rows into
// whichever settings store is in use; it is required only when
// UseMemorySettings is on.
type TaxConfig struct {
	HomeStateCode string
	RatesFile     string
}

type ShippingConfig struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// FeatureFlags toggles optional behaviour. ChargeShippingAtCheckout charges
// subtotal+shipping+tax instead of subtotal+tax.
type FeatureFlags struct {
	EnableOrderCaching       bool
	EnableOrderEvents        bool
	EnablePaymentConsumer    bool
	ChargeShippingAtCheckout bool
	UseMemorySettings        bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 8082),
			ReadTimeout:     time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout:    time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
			ShutdownTimeout: time.Duration(getEnvInt("SERVER_SHUTDOWN_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "storefront"),
			Password:     getEnvString("DB_PASSWORD", "storefront"),
			Name:         getEnvString("DB_NAME", "storefront"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME", 300)) * time.Second,
			AutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_ORDER_TTL", 300)) * time.Second,
			CartTTL:  time.Duration(getEnvInt("REDIS_CART_TTL", 7*24*3600)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrdersTopic:   getEnvString("KAFKA_ORDERS_TOPIC", "storefront.orders"),
			PaymentsTopic: getEnvString("KAFKA_PAYMENTS_TOPIC", "storefront.payments"),
			ConsumerGroup: getEnvString("KAFKA_CONSUMER_GROUP", "storefront-orders"),
		},
		PaymentService: ServiceConfig{
			BaseURL: getEnvString("PAYMENT_SERVICE_URL", "http://localhost:8083"),
			APIKey:  getEnvString("PAYMENT_SERVICE_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("PAYMENT_SERVICE_TIMEOUT", 30)) * time.Second,
		},
		NotificationService: ServiceConfig{
			BaseURL: getEnvString("NOTIFICATION_SERVICE_URL", "http://localhost:8085"),
			APIKey:  getEnvString("NOTIFICATION_SERVICE_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("NOTIFICATION_SERVICE_TIMEOUT", 10)) * time.Second,
		},
		Tax: TaxConfig{
			HomeStateCode: strings.ToUpper(getEnvString("TAX_HOME_STATE_CODE", "AP")),
			RatesFile:     getEnvString("TAX_RATES_FILE", "configs/gst_rates.yaml"),
		},
		Shipping: ShippingConfig{
			FreeShippingThreshold: getEnvDecimal("FREE_SHIPPING_THRESHOLD", decimal.NewFromInt(1999)),
			FlatShippingFee:       getEnvDecimal("FLAT_SHIPPING_FEE", decimal.NewFromInt(99)),
		},
		Features: FeatureFlags{
			EnableOrderCaching:       getEnvBool("ENABLE_ORDER_CACHING", true),
			EnableOrderEvents:        getEnvBool("ENABLE_ORDER_EVENTS", true),
			EnablePaymentConsumer:    getEnvBool("ENABLE_PAYMENT_CONSUMER", true),
			ChargeShippingAtCheckout: getEnvBool("CHARGE_SHIPPING_AT_CHECKOUT", false),
			UseMemorySettings:        getEnvBool("USE_MEMORY_SETTINGS", false),
		},
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil && !d.IsNegative() {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
