package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// devJWTSecret só é usado com APP_ENV=development quando JWT_SECRET falta ou é curto.
const devJWTSecret = "default-secret-min-32-chars-required!!"

var ErrWeakJWTSecret = errors.New("JWT_SECRET must have at least 32 characters")

type Config struct {
	Env      string
	Version  string
	Port     string
	LogLevel string

	DatabaseURL       string
	DBMaxConns        int
	DBMinConns        int
	DBMaxConnLifetime time.Duration

	JWTSecret []byte
	// Senha da psicóloga: hash bcrypt tem prioridade; a senha em texto é hasheada na subida.
	PsicologaPassword     string
	PsicologaPasswordHash string
	// Provedor externo (RS256 via JWKS). Vazio desativa.
	JWKSURI      string
	AuthAudience string
	AuthIssuer   string

	CORSOrigins       []string
	RequestTimeoutSec int
	RateLimitRPS      float64
	RateLimitBurst    int

	DataEncryptionKeys string
	CurrentDataKeyVer  string

	SMTPHost      string
	SMTPPort      string
	SMTPUser      string
	SMTPPass      string
	SMTPFromName  string
	SMTPFromEmail string
	AppPublicURL  string

	// WhatsApp (Twilio) para lembretes de consulta
	TwilioAccountSid   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string

	RedisURL string
	CacheTTL time.Duration

	ReminderCron string
	ReminderTZ   string
}

// Load lê a configuração do ambiente. Um arquivo .env no diretório atual, se existir,
// é carregado antes sem sobrescrever variáveis já definidas.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "production"),
		Version:  getEnv("APP_VERSION", "1.0.0"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DBMaxConns:        getInt("DB_MAX_CONNS", 10),
		DBMinConns:        getInt("DB_MIN_CONNS", 0),
		DBMaxConnLifetime: time.Duration(getInt("DB_MAX_CONN_LIFETIME_MIN", 30)) * time.Minute,

		JWTSecret:             []byte(os.Getenv("JWT_SECRET")),
		PsicologaPassword:     os.Getenv("PSICOLOGA_PASSWORD"),
		PsicologaPasswordHash: os.Getenv("PSICOLOGA_PASSWORD_HASH"),
		JWKSURI:               os.Getenv("JWKS_URI"),
		AuthAudience:          os.Getenv("AUTH_AUDIENCE"),
		AuthIssuer:            os.Getenv("AUTH_ISSUER"),

		CORSOrigins:       splitTrim(getEnv("CORS_ORIGINS", "http://localhost:5173"), ","),
		RequestTimeoutSec: getInt("REQUEST_TIMEOUT_SEC", 30),
		RateLimitRPS:      getFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst:    getInt("RATE_LIMIT_BURST", 5),

		DataEncryptionKeys: os.Getenv("DATA_ENCRYPTION_KEYS"),
		CurrentDataKeyVer:  getEnv("CURRENT_DATA_KEY_VERSION", "v1"),

		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),
		SMTPFromName:  getEnv("SMTP_FROM_NAME", "Equipe de Psicologia"),
		SMTPFromEmail: getEnv("SMTP_FROM_EMAIL", "noreply@localhost"),
		AppPublicURL:  getEnv("APP_PUBLIC_URL", "http://localhost:5173"),

		TwilioAccountSid:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom: os.Getenv("TWILIO_WHATSAPP_FROM"),

		RedisURL: os.Getenv("REDIS_URL"),
		CacheTTL: time.Duration(getInt("CACHE_TTL_SEC", 30)) * time.Second,

		ReminderCron: os.Getenv("REMINDER_CRON"),
		ReminderTZ:   getEnv("REMINDER_TZ", "America/Sao_Paulo"),
	}
	if len(cfg.JWTSecret) < 32 && cfg.IsDevelopment() {
		cfg.JWTSecret = []byte(devJWTSecret)
	}
	return cfg
}

// Validate checks the settings the HTTP server cannot run without.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return ErrWeakJWTSecret
	}
	return nil
}

// IsDevelopment reports whether APP_ENV selects the development profile.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

// SMTPConfigured reports whether outgoing e-mail can be attempted.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFromEmail != ""
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return d
}

func getFloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return d
}

func splitTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
