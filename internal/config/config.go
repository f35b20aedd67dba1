package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort string

	// Persistencia: SQLite por defecto, Postgres si hay DSN.
	SQLitePath  string
	PostgresDSN string

	RedisAddr string
	CacheTTL  time.Duration

	// Bus de eventos: Kafka si UseKafka, bus en memoria en caso contrario.
	UseKafka       bool
	KafkaBrokers   []string
	KafkaTopicTask string

	// Directorio de usuarios (réplica del proveedor de identidad).
	MongoURI string
	MongoDB  string

	// Analítica de cierres (opcional).
	ClickHouseAddr string
	ClickHouseDB   string

	// Correo saliente (opcional, si falta se notifica solo al log).
	SMTPAddr string
	SMTPFrom string
	SMTPUser string
	SMTPPass string

	OutboxPeriod time.Duration
	OutboxLimit  int
}

func LoadConfig() *Config {
	// .env es opcional: en producción las variables llegan del entorno.
	_ = godotenv.Load()

	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	getBool := func(key string, fallback bool) bool {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err == nil {
				return b
			}
		}
		return fallback
	}
	getInt := func(key string, fallback int) int {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err == nil {
				return n
			}
		}
		return fallback
	}

	kafkaBrokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")

	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		SQLitePath:  getEnv("SQLITE_PATH", "./taskboard.db"),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:  time.Duration(getInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		UseKafka:       getBool("USE_KAFKA", false),
		KafkaBrokers:   kafkaBrokers,
		KafkaTopicTask: getEnv("KAFKA_TOPIC", "task-events"),

		MongoURI: getEnv("MONGO_URI", ""),
		MongoDB:  getEnv("MONGO_DB", "taskboard"),

		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "taskboard"),

		SMTPAddr: getEnv("SMTP_ADDR", ""),
		SMTPFrom: getEnv("SMTP_FROM", "taskboard@localhost"),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),

		OutboxPeriod: time.Duration(getInt("OUTBOX_PERIOD_MS", 1000)) * time.Millisecond,
		OutboxLimit:  getInt("OUTBOX_LIMIT", 10),
	}
}
