package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	OAuth      OAuthConfig
	Cloudinary CloudinaryConfig
	Payment    PaymentConfig
	Mail       MailConfig
	Firebase   FirebaseConfig
	OTel       OTelConfig
	OTP        OTPConfig
	Exam       ExamConfig
	Admin      AdminSeedConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    int
	RateWindow   time.Duration
	// AllowedOrigins lists browser origins for CORS and WebSocket upgrades.
	AllowedOrigins []string
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	FrontendURL        string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// PaymentConfig holds the checkout vendor credentials. An empty KeySecret
// switches to the stub provider.
type PaymentConfig struct {
	Provider      string
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Currency      string
}

// MailConfig configures outbound SMTP. With no Host set mail is written to the log.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

func (c OTelConfig) Enabled() bool { return c.Endpoint != "" }

type OTPConfig struct {
	TTL            time.Duration
	ResendInterval time.Duration
	MaxAttempts    int
}

type ExamConfig struct {
	DefaultMaxAttempts int
	DefaultPassPercent int
}

type AdminSeedConfig struct {
	Email    string
	Password string
	Name     string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	frontend := getEnv("FRONTEND_URL", "http://localhost:5173")
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            getEnv("APP_ENV", "development"),
			ReadTimeout:    getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			RateLimit:      getInt("RATE_LIMIT", 120),
			RateWindow:     getDuration("RATE_WINDOW", time.Minute),
			AllowedOrigins: getList("CORS_ORIGINS", []string{frontend}),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", "root:@tcp(localhost:3306)/learnhub?charset=utf8mb4&parseTime=True&loc=UTC"),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  getDuration("JWT_ACCESS_EXPIRY", 30*time.Minute),
			RefreshExpiry: getDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
			Issuer:        getEnv("JWT_ISSUER", "learnhub"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/v1/auth/google/callback"),
			FrontendURL:        frontend,
		},
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		},
		Payment: PaymentConfig{
			Provider:      getEnv("PAYMENT_PROVIDER", "razorpay"),
			BaseURL:       getEnv("PAYMENT_BASE_URL", "https://api.razorpay.com/v1"),
			KeyID:         os.Getenv("PAYMENT_KEY_ID"),
			KeySecret:     os.Getenv("PAYMENT_KEY_SECRET"),
			WebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
			Currency:      getEnv("PAYMENT_CURRENCY", "INR"),
		},
		Mail: MailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("MAIL_FROM", "no-reply@learnhub.local"),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"),
		},
		OTel: OTelConfig{
			Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Headers:        os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "learnhub-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		OTP: OTPConfig{
			TTL:            getDuration("OTP_TTL", 10*time.Minute),
			ResendInterval: getDuration("OTP_RESEND_INTERVAL", time.Minute),
			MaxAttempts:    getInt("OTP_MAX_ATTEMPTS", 5),
		},
		Exam: ExamConfig{
			DefaultMaxAttempts: getInt("EXAM_MAX_ATTEMPTS", 3),
			DefaultPassPercent: getInt("EXAM_PASS_PERCENT", 60),
		},
		Admin: AdminSeedConfig{
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
			Name:     getEnv("ADMIN_NAME", "Administrator"),
		},
	}
}

func (c *Config) IsProduction() bool  { return strings.EqualFold(c.Server.Env, "production") }
func (c *Config) IsDevelopment() bool { return strings.EqualFold(c.Server.Env, "development") }

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: %s=%q is not an integer, using %d", key, v, def)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: %s=%q is not a duration, using %s", key, v, def)
		return def
	}
	return d
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
