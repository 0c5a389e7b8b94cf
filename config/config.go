package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Storage backend: mongo, postgres or memory.
	Store        string `mapstructure:"STORE"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`
	PostgresDSN  string `mapstructure:"POSTGRES_DSN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Payments.
	StripeKey          string  `mapstructure:"STRIPE_KEY"`
	StripeSuccessURL   string  `mapstructure:"STRIPE_SUCCESS_URL"`
	StripeCancelURL    string  `mapstructure:"STRIPE_CANCEL_URL"`
	Currency           string  `mapstructure:"CURRENCY"`
	PlatformFeePercent float64 `mapstructure:"PLATFORM_FEE_PERCENT"`

	// Booking rules.
	Timezone                 string `mapstructure:"TIMEZONE"`
	HoldTTLMinutes           int    `mapstructure:"HOLD_TTL_MINUTES"`
	UnpaidTimeoutMinutes     int    `mapstructure:"UNPAID_TIMEOUT_MINUTES"`
	CancelOnPaymentFailure   bool   `mapstructure:"CANCEL_ON_PAYMENT_FAILURE"`
	AvailabilityCacheSeconds int    `mapstructure:"AVAILABILITY_CACHE_SECONDS"`

	// Background sweeps: asynq (Redis-backed scheduler) or ticker (in-process).
	Scheduler           string        `mapstructure:"SCHEDULER"`
	ExpirySweepInterval time.Duration `mapstructure:"EXPIRY_SWEEP_INTERVAL"`
	HoldSweepInterval   time.Duration `mapstructure:"HOLD_SWEEP_INTERVAL"`

	// Lifecycle events.
	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`
}

var AppConfig Config

func LoadConfig() {
	// A local .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	viper.SetDefault("STORE", "mongo")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "groundbook")
	viper.SetDefault("POSTGRES_DSN", "")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 3)
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("STRIPE_SUCCESS_URL", "http://localhost:3000/booking/success")
	viper.SetDefault("STRIPE_CANCEL_URL", "http://localhost:3000/booking/cancel")
	viper.SetDefault("CURRENCY", "inr")
	viper.SetDefault("PLATFORM_FEE_PERCENT", 0)
	viper.SetDefault("TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("HOLD_TTL_MINUTES", 5)
	viper.SetDefault("UNPAID_TIMEOUT_MINUTES", 5)
	viper.SetDefault("CANCEL_ON_PAYMENT_FAILURE", false)
	viper.SetDefault("AVAILABILITY_CACHE_SECONDS", 15)
	viper.SetDefault("SCHEDULER", "asynq")
	viper.SetDefault("EXPIRY_SWEEP_INTERVAL", "1m")
	viper.SetDefault("HOLD_SWEEP_INTERVAL", "2m")
	viper.SetDefault("AMQP_URL", "")
	viper.SetDefault("AMQP_EXCHANGE", "groundbook.events")
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// Location returns the operating timezone for "today" and refund windows.
func Location() *time.Location {
	loc, err := time.LoadLocation(AppConfig.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HoldTTL is how long a hold blocks its slot.
func HoldTTL() time.Duration {
	return minutesOr(AppConfig.HoldTTLMinutes, 5)
}

// UnpaidTimeout is how long a pending booking may wait for payment.
func UnpaidTimeout() time.Duration {
	return minutesOr(AppConfig.UnpaidTimeoutMinutes, 5)
}

func minutesOr(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Minute
}
