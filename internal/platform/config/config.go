// Package config reads server configuration from EKYC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "ekyc/pkg/platform/strings"
)

// Ledger backends.
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Trace exporters.
const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
	TraceExporterOTLP   = "otlp"
)

// Audit sinks the outbox relay can deliver to.
const (
	AuditSinkMemory   = "memory"
	AuditSinkPostgres = "postgres"
	AuditSinkKafka    = "kafka"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	LogFormat       string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	AdminTokenHash  string
	AllowSelfRevoke bool
	SeedFile        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	Ledger          LedgerConfig
	Redis           RedisConfig
	Audit           AuditConfig
	Kafka           KafkaConfig
	Tracing         TracingConfig
}

// LedgerConfig selects and locates the record store.
type LedgerConfig struct {
	Backend   string
	Path      string
	DSN       string
	Namespace string
	TxTimeout time.Duration
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig configures the outbox relay and its sink.
type AuditConfig struct {
	Sink           string
	PostgresDSN    string
	RelayInterval  time.Duration
	RelayBatchSize int
	OpsSampleRate  float64
	ConsumeToStore bool
}

// KafkaConfig configures the audit stream.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
	GroupID     string
}

// TracingConfig selects where operation spans are exported.
type TracingConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
	SampleRatio  float64
	ServiceName  string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:      getEnv("EKYC_ADDR", ":8080"),
		LogLevel:  getEnv("EKYC_LOG_LEVEL", "info"),
		LogFormat: getEnv("EKYC_LOG_FORMAT", "json"),
		// Use a default for development - should be overridden in production
		JWTSigningKey:   getEnv("EKYC_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:       getEnv("EKYC_JWT_ISSUER", "ekyc"),
		JWTAudience:     getEnv("EKYC_JWT_AUDIENCE", "ekyc-api"),
		AdminTokenHash:  os.Getenv("EKYC_ADMIN_TOKEN_HASH"),
		AllowSelfRevoke: getBool("EKYC_ALLOW_SELF_REVOKE", true),
		SeedFile:        os.Getenv("EKYC_SEED_FILE"),
		RequestTimeout:  getDuration("EKYC_REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("EKYC_SHUTDOWN_TIMEOUT", 15*time.Second),
		Ledger: LedgerConfig{
			Backend:   getEnv("EKYC_LEDGER_BACKEND", BackendMemory),
			Path:      getEnv("EKYC_LEDGER_PATH", "./data/ledger"),
			DSN:       os.Getenv("EKYC_LEDGER_DSN"),
			Namespace: getEnv("EKYC_LEDGER_NAMESPACE", "ekyc"),
			TxTimeout: getDuration("EKYC_LEDGER_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("EKYC_REDIS_URL"),
			PoolSize:     getInt("EKYC_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("EKYC_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("EKYC_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("EKYC_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("EKYC_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: AuditConfig{
			Sink:           getEnv("EKYC_AUDIT_SINK", AuditSinkMemory),
			PostgresDSN:    os.Getenv("EKYC_AUDIT_POSTGRES_DSN"),
			RelayInterval:  getDuration("EKYC_AUDIT_RELAY_INTERVAL", time.Second),
			RelayBatchSize: getInt("EKYC_AUDIT_RELAY_BATCH", 100),
			OpsSampleRate:  getFloat("EKYC_AUDIT_OPS_SAMPLE_RATE", 1),
			ConsumeToStore: getBool("EKYC_AUDIT_CONSUME", false),
		},
		Kafka: KafkaConfig{
			Brokers:     pstrings.SplitList(os.Getenv("EKYC_KAFKA_BROKERS")),
			TopicPrefix: getEnv("EKYC_KAFKA_TOPIC_PREFIX", "ekyc.audit"),
			GroupID:     getEnv("EKYC_KAFKA_GROUP_ID", "ekyc-audit-materializer"),
		},
		Tracing: TracingConfig{
			Exporter:     getEnv("EKYC_TRACE_EXPORTER", TraceExporterNone),
			OTLPEndpoint: getEnv("EKYC_OTLP_ENDPOINT", "localhost:4317"),
			OTLPInsecure: getBool("EKYC_OTLP_INSECURE", true),
			SampleRatio:  getFloat("EKYC_TRACE_SAMPLE_RATIO", 1),
			ServiceName:  getEnv("EKYC_SERVICE_NAME", "ekyc"),
		},
	}
}

// Validate reports every inconsistent setting at once.
func (s Server) Validate() error {
	var errs []error
	if s.Addr == "" {
		errs = append(errs, errors.New("EKYC_ADDR must not be empty"))
	}
	switch s.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("EKYC_LOG_FORMAT must be json or text, got %q", s.LogFormat))
	}
	if s.JWTSigningKey == "" {
		errs = append(errs, errors.New("EKYC_JWT_SIGNING_KEY must not be empty"))
	}

	switch s.Ledger.Backend {
	case BackendMemory:
	case BackendBadger, BackendSQLite:
		if s.Ledger.Path == "" {
			errs = append(errs, fmt.Errorf("EKYC_LEDGER_PATH is required for the %s backend", s.Ledger.Backend))
		}
	case BackendPostgres:
		if s.Ledger.DSN == "" {
			errs = append(errs, errors.New("EKYC_LEDGER_DSN is required for the postgres backend"))
		}
	case BackendRedis:
		if s.Redis.URL == "" {
			errs = append(errs, errors.New("EKYC_REDIS_URL is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EKYC_LEDGER_BACKEND %q", s.Ledger.Backend))
	}

	switch s.Audit.Sink {
	case AuditSinkMemory:
	case AuditSinkPostgres:
		if s.Audit.PostgresDSN == "" {
			errs = append(errs, errors.New("EKYC_AUDIT_POSTGRES_DSN is required for the postgres audit sink"))
		}
	case AuditSinkKafka:
		if len(s.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("EKYC_KAFKA_BROKERS is required for the kafka audit sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EKYC_AUDIT_SINK %q", s.Audit.Sink))
	}
	if s.Audit.ConsumeToStore && (len(s.Kafka.Brokers) == 0 || s.Audit.PostgresDSN == "") {
		errs = append(errs, errors.New("EKYC_AUDIT_CONSUME needs both EKYC_KAFKA_BROKERS and EKYC_AUDIT_POSTGRES_DSN"))
	}
	if s.Audit.OpsSampleRate < 0 || s.Audit.OpsSampleRate > 1 {
		errs = append(errs, fmt.Errorf("EKYC_AUDIT_OPS_SAMPLE_RATE must be within [0,1], got %v", s.Audit.OpsSampleRate))
	}

	switch s.Tracing.Exporter {
	case TraceExporterNone, TraceExporterStdout:
	case TraceExporterOTLP:
		if s.Tracing.OTLPEndpoint == "" {
			errs = append(errs, errors.New("EKYC_OTLP_ENDPOINT is required for the otlp trace exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EKYC_TRACE_EXPORTER %q", s.Tracing.Exporter))
	}
	if s.Tracing.SampleRatio < 0 || s.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("EKYC_TRACE_SAMPLE_RATIO must be within [0,1], got %v", s.Tracing.SampleRatio))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
