package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string

	Auth     AuthConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Audit    AuditConfig
	Access   AccessConfig
	Realtime RealtimeConfig
	Limits   RateLimitConfig

	LogLevel string
}

// AuthConfig configures token issuance and validation.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	TokenTTL      time.Duration

	// Seeded at startup when both are set; admins cannot self-register.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// DatabaseConfig configures Postgres. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the optional Redis client used for the token
// revocation list and the realtime event bus.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit stream mirror.
type KafkaConfig struct {
	Brokers          []string
	AuditTopic       string
	ClientID         string
	TopicPartitions  int32
	TopicReplication int16
}

// AuditConfig configures the audit recorder.
type AuditConfig struct {
	BufferSize int
}

// AccessConfig configures authorization responses.
type AccessConfig struct {
	// OpaqueDenials turns ownership denials into 404 so the existence of a
	// resource is not revealed to non-owners. Audit is written either way.
	OpaqueDenials bool
}

// RealtimeConfig configures the websocket push channel.
type RealtimeConfig struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	BusChannel     string
	AllowedOrigins []string
}

// RateLimitConfig configures the sliding window limiter. Limits are per minute.
type RateLimitConfig struct {
	Disabled     bool
	AuthPerMin   int
	WritesPerMin int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:     getEnv("PETCARE_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Auth: AuthConfig{
			JWTSigningKey: jwtSigningKey,
			JWTIssuer:     getEnv("JWT_ISSUER", "petcare"),
			JWTAudience:   getEnv("JWT_AUDIENCE", "petcare-api"),
			TokenTTL:      getDuration("TOKEN_TTL", 15*time.Minute),

			BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxIdleTime: getDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:          splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:       getEnv("KAFKA_AUDIT_TOPIC", "petcare.audit"),
			ClientID:         getEnv("KAFKA_CLIENT_ID", "petcare-server"),
			TopicPartitions:  int32(getInt("KAFKA_AUDIT_TOPIC_PARTITIONS", 3)),
			TopicReplication: int16(getInt("KAFKA_AUDIT_TOPIC_REPLICATION", 1)),
		},
		Audit: AuditConfig{
			BufferSize: getInt("AUDIT_BUFFER_SIZE", 1024),
		},
		Access: AccessConfig{
			OpaqueDenials: getBool("ACCESS_OPAQUE_DENIALS", false),
		},
		Realtime: RealtimeConfig{
			SendBuffer:     getInt("REALTIME_SEND_BUFFER", 32),
			WriteTimeout:   getDuration("REALTIME_WRITE_TIMEOUT", 5*time.Second),
			BusChannel:     getEnv("REALTIME_BUS_CHANNEL", "petcare:events"),
			AllowedOrigins: splitList(os.Getenv("REALTIME_ALLOWED_ORIGINS")),
		},
		Limits: RateLimitConfig{
			Disabled:     getBool("RATELIMIT_DISABLED", false),
			AuthPerMin:   getInt("RATELIMIT_AUTH_PER_MIN", 10),
			WritesPerMin: getInt("RATELIMIT_WRITES_PER_MIN", 50),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
