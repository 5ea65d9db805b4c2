package config

import (
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName      string
	AppEnv       string
	AppURL       string
	Port         string
	SupportEmail string
	ContentPath  string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret                string
	JWTExpiry                time.Duration
	TokenMagicLinkExpiry     time.Duration
	UploadTokenDefaultExpiry time.Duration
	UploadTokenMaxExpiry     time.Duration
	AuthRateLimit            int
	AuthRateLimitWindow      time.Duration
	TrustedProxies           []netip.Prefix

	// OAuth
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookAppID        string
	FacebookAppSecret    string
	FacebookGraphURL     string
	FacebookGraphVersion string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Payment
	PaymentProvider string // "polar" or "stripe"
	// Payment - Polar
	PolarAPIKey                 string
	PolarWebhookSecret          string
	PolarSandboxMode            bool
	PolarProductIDProMonthly    string
	PolarProductIDProYearly     string
	PolarProductIDAgencyMonthly string
	PolarProductIDAgencyYearly  string
	// Payment - Stripe
	StripeSecretKey            string
	StripeWebhookSecret        string
	StripePriceIDProMonthly    string
	StripePriceIDProYearly     string
	StripePriceIDAgencyMonthly string
	StripePriceIDAgencyYearly  string

	// AI (OpenAI-compatible API for text, images and transcription)
	AIAPIURL          string
	AIAPIKey          string
	AITextModel       string
	AIImageModel      string
	AITranscribeModel string
	AITimeout         time.Duration

	// Video platform
	VideoAPIURL    string
	VideoAccountID string
	VideoAPIToken  string

	// Observability (optional)
	SentryDSN string

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
	S3PublicURL string // Optional: CDN or custom domain in front of the bucket
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:      envString("APP_NAME", "EstateDesk"),
		AppEnv:       envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:       envRequired("APP_URL"), // Required: base URL for public listing links and OAuth redirects
		Port:         envString("PORT", "8090"),
		SupportEmail: envString("SUPPORT_EMAIL", "hello@example.com"),
		ContentPath:  envString("CONTENT_PATH", "content"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/estatedesk.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),

		// Security
		JWTSecret:                envRequired("JWT_SECRET"),
		JWTExpiry:                envDuration("JWT_EXPIRY", 168*time.Hour),               // 7 days
		TokenMagicLinkExpiry:     envDuration("TOKEN_MAGIC_LINK_EXPIRY", 15*time.Minute), // 15 minutes
		UploadTokenDefaultExpiry: envDuration("UPLOAD_TOKEN_DEFAULT_EXPIRY", 72*time.Hour),
		UploadTokenMaxExpiry:     envDuration("UPLOAD_TOKEN_MAX_EXPIRY", 720*time.Hour), // 30 days
		AuthRateLimit:            envInt("AUTH_RATE_LIMIT", 5),
		AuthRateLimitWindow:      envDuration("AUTH_RATE_LIMIT_WINDOW", 15*time.Minute),
		TrustedProxies:           envPrefixes("TRUSTED_PROXIES"),

		// OAuth
		GoogleClientID:       envString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   envString("GOOGLE_CLIENT_SECRET", ""),
		FacebookAppID:        envString("FACEBOOK_APP_ID", ""),
		FacebookAppSecret:    envString("FACEBOOK_APP_SECRET", ""),
		FacebookGraphURL:     envString("FACEBOOK_GRAPH_URL", ""),
		FacebookGraphVersion: envString("FACEBOOK_GRAPH_VERSION", "v19.0"),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Payment (provider selection and configuration)
		PaymentProvider:             envString("PAYMENT_PROVIDER", "stripe"),
		PolarAPIKey:                 envString("POLAR_API_KEY", ""),
		PolarWebhookSecret:          envString("POLAR_WEBHOOK_SECRET", ""),
		PolarSandboxMode:            envBool("POLAR_SANDBOX_MODE", envString("APP_ENV", "development") == "development"),
		PolarProductIDProMonthly:    envString("POLAR_PRODUCT_ID_PRO_MONTHLY", ""),
		PolarProductIDProYearly:     envString("POLAR_PRODUCT_ID_PRO_YEARLY", ""),
		PolarProductIDAgencyMonthly: envString("POLAR_PRODUCT_ID_AGENCY_MONTHLY", ""),
		PolarProductIDAgencyYearly:  envString("POLAR_PRODUCT_ID_AGENCY_YEARLY", ""),
		StripeSecretKey:             envString("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:         envString("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceIDProMonthly:     envString("STRIPE_PRICE_ID_PRO_MONTHLY", ""),
		StripePriceIDProYearly:      envString("STRIPE_PRICE_ID_PRO_YEARLY", ""),
		StripePriceIDAgencyMonthly:  envString("STRIPE_PRICE_ID_AGENCY_MONTHLY", ""),
		StripePriceIDAgencyYearly:   envString("STRIPE_PRICE_ID_AGENCY_YEARLY", ""),

		// AI
		AIAPIURL:          envString("AI_API_URL", "https://api.openai.com/v1"),
		AIAPIKey:          envString("AI_API_KEY", ""),
		AITextModel:       envString("AI_TEXT_MODEL", "gpt-4o-mini"),
		AIImageModel:      envString("AI_IMAGE_MODEL", "gpt-image-1"),
		AITranscribeModel: envString("AI_TRANSCRIBE_MODEL", "whisper-1"),
		AITimeout:         envDuration("AI_TIMEOUT", 120*time.Second),

		// Video
		VideoAPIURL:    envString("VIDEO_API_URL", "https://api.cloudflare.com/client/v4"),
		VideoAccountID: envString("VIDEO_ACCOUNT_ID", ""),
		VideoAPIToken:  envString("VIDEO_API_TOKEN", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage (S3-compatible - required for photo, logo and audio uploads)
		S3Region:    envRequired("S3_REGION"),
		S3Bucket:    envRequired("S3_BUCKET"),
		S3AccessKey: envRequired("S3_ACCESS_KEY"),
		S3SecretKey: envRequired("S3_SECRET_KEY"),
		S3Endpoint:  envString("S3_ENDPOINT", ""),   // Optional: for non-AWS providers
		S3PublicURL: envString("S3_PUBLIC_URL", ""), // Optional: CDN in front of the bucket
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows some services (like email) to use fallback modes for easier local testing.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if cfg.AIAPIKey == "" {
		slog.Warn("AI_API_KEY not set, AI descriptions, marketing images and transcription are disabled")
	}
}

// Database reads only the database settings, for tools that do not need the
// rest of the configuration.
func Database() (driver, connection string) {
	_ = godotenv.Load()
	return envString("DB_DRIVER", "sqlite"),
		envString("DB_CONNECTION", "./data/estatedesk.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// envPrefixes parses a comma-separated list of CIDRs or single addresses.
func envPrefixes(key string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(part)
		if err != nil {
			addr, addrErr := netip.ParseAddr(part)
			if addrErr != nil {
				slog.Warn("config invalid proxy address, skipping", "key", key, "value", part)
				continue
			}
			prefix = netip.PrefixFrom(addr, addr.BitLen())
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and sensitive data are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:      c.AppName,
		AppEnv:       c.AppEnv,
		AppURL:       c.AppURL,
		Port:         c.Port,
		SupportEmail: c.SupportEmail,

		EmailFrom: c.EmailFrom,

		GoogleClientID: c.GoogleClientID,
		FacebookAppID:  c.FacebookAppID,

		S3Endpoint:  c.S3Endpoint, // Needed for CSP policies
		S3PublicURL: c.S3PublicURL,
	}
}
