package config // package config loads application configuration from environment variables

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify JWTs

	AccessTTLMin   int           // lifetime of tokens minted by utils.NewAccessToken
	TxMaxRetries   int           // retries after a deadlock or lock wait timeout
	TxRetryBackoff time.Duration // base backoff between retries, multiplied by attempt
	AutoMigrate    bool          // apply embedded migrations at startup

	AMQPURL         string // RabbitMQ connection URL
	EventsEnabled   bool   // publish booking events after commit
	ConsumerEnabled bool   // run the booking log consumers in-process
	BookingLogDir   string // directory for booking.log
}

// Load reads an optional .env file and then the environment.  Required
// variables are enforced by must() and missing values cause the program to
// exit with a fatal log message.
func Load() Config {
	loadDotEnv(envStr("ENV_FILE", ".env"))
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		TxMaxRetries:   envInt("TX_MAX_RETRIES", 3),
		TxRetryBackoff: envDur("TX_RETRY_BACKOFF", 50*time.Millisecond),
		AutoMigrate:    envBool("DB_AUTO_MIGRATE", true),

		AMQPURL:         amqpURL(),
		EventsEnabled:   envBool("EVENTS_ENABLED", true),
		ConsumerEnabled: envBool("BOOKING_CONSUMER_ENABLED", false),
		BookingLogDir:   envStr("BOOKING_LOG_DIR", "logs"),
	}
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set.  A missing file is not an error.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: load %s failed: %v", path, err)
	}
}

// amqpURL prefers RABBITMQ_URL and falls back to AMQP_URL.  Empty means the
// local default broker.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
