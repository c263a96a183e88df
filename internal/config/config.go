package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OracleKind selects what answers the confidence questions.
type OracleKind string

const (
	OraclePrompt OracleKind = "prompt" // a person at this terminal
	OracleGemini OracleKind = "gemini" // a Gemini model
	OracleNATS   OracleKind = "nats"   // a remote responder over NATS request/reply
	OracleAlways OracleKind = "always" // always confident, for demos
	OracleNever  OracleKind = "never"  // never confident, for demos
)

type Config struct {
	HTTPAddr      string
	CORSOrigins   []string
	LogRequests   bool
	SessionTTL    time.Duration
	HTTPTimeout   time.Duration
	AssessTimeout time.Duration // server-side /assess runs

	LogLevel  string
	LogFormat string // text|json

	Oracle            OracleKind
	OracleRetries     int
	OracleTimeout     time.Duration
	AssessConcurrency int
	SecuredPolicy     string // skip|commit

	GeminiAPIKey string
	GeminiModel  string

	NATSURL     string
	NATSSubject string

	AuditDBDriver string // sqlite|postgres, empty disables the audit log
	AuditDBDSN    string
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	return Config{
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		CORSOrigins:   csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:9002"),
		LogRequests:   envBool("LOG_REQUESTS", true),
		SessionTTL:    envDuration("SESSION_TTL", 2*time.Hour),
		HTTPTimeout:   envDuration("HTTP_TIMEOUT", 30*time.Second),
		AssessTimeout: envDuration("ASSESS_TIMEOUT", 10*time.Minute),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),

		Oracle:            OracleKind(envOr("ORACLE", string(OraclePrompt))),
		OracleRetries:     envInt("ORACLE_RETRIES", 1),
		OracleTimeout:     envDuration("ORACLE_TIMEOUT", 30*time.Second),
		AssessConcurrency: envInt("ASSESS_CONCURRENCY", 1),
		SecuredPolicy:     envOr("SECURED_POLICY", "skip"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  envOr("GEMINI_MODEL", "gemini-1.5-flash"),

		NATSURL:     envOr("NATS_URL", "nats://127.0.0.1:4222"),
		NATSSubject: envOr("NATS_SUBJECT", "gradevision.confidence"),

		AuditDBDriver: os.Getenv("AUDIT_DB_DRIVER"),
		AuditDBDSN:    os.Getenv("AUDIT_DB_DSN"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
