package config

import (
	"errors"
	"flag"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
)

const (
	defaultServerAddress    = ":8080"
	defaultDatabaseDSN      = ""
	defaultLogLevel         = "debug"
	defaultEnv              = "development"
	defaultShopName         = "BundleHub"
	defaultSMTPPort         = 587
	defaultUploadDir        = "./uploads"
	defaultFilesBaseURL     = "/files"
	defaultPaymentQRContent = "bundlehub:payment"
	defaultRateLimit        = 20
	defaultRateWindow       = time.Minute
	defaultOTPSweepInterval = 5 * time.Minute
	defaultShutdownTimeout  = 10 * time.Second

	envProduction = "production"
)

type Config struct {
	ServerAddr  string `env:"RUN_ADDRESS"`
	DatabaseDSN string `env:"DATABASE_URI"`
	LogLevel    string `env:"LOG_LEVEL"`
	Env         string `env:"ENV"`

	// TokenKey is hex encoded HS256 key of admin tokens
	TokenKey      string `env:"TOKEN_KEY"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	ShopName     string `env:"SHOP_NAME"`
	ShopInbox    string `env:"SHOP_INBOX"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	UploadDir        string `env:"UPLOAD_DIR"`
	FilesBaseURL     string `env:"FILES_BASE_URL"`
	PaymentQRContent string `env:"PAYMENT_QR_CONTENT"`

	// TrustProxy enables client address from X-Forwarded-For / X-Real-IP
	TrustProxy bool `env:"TRUST_PROXY"`

	RateLimit        int           `env:"RATE_LIMIT"`
	RateWindow       time.Duration `env:"RATE_WINDOW"`
	OTPSweepInterval time.Duration `env:"OTP_SWEEP_INTERVAL"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

var (
	once      sync.Once
	singleton *Config
	loadErr   error
)

// New returns new Config. It parses command line and environment variables only once.
func New() (*Config, error) {
	once.Do(func() {
		singleton, loadErr = load(flag.CommandLine, os.Args[1:])
	})

	return singleton, loadErr
}

// IsProduction reports whether service runs in production environment
func (c *Config) IsProduction() bool {
	return c.Env == envProduction
}

// load parses flags with defaults, set environment variables override them
func load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Config{}

	// initialize flags
	fs.StringVar(&cfg.ServerAddr, "a", defaultServerAddress, "server address")
	fs.StringVar(&cfg.DatabaseDSN, "d", defaultDatabaseDSN, "database DSN")
	fs.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")
	fs.StringVar(&cfg.Env, "env", defaultEnv, "environment name")
	fs.StringVar(&cfg.TokenKey, "k", "", "hex encoded token key")
	fs.StringVar(&cfg.ShopName, "shop", defaultShopName, "shop name used in emails")
	fs.StringVar(&cfg.ShopInbox, "inbox", "", "shop inbox for contact messages")
	fs.StringVar(&cfg.SMTPHost, "smtp-host", "", "SMTP host, emails are logged when empty")
	fs.IntVar(&cfg.SMTPPort, "smtp-port", defaultSMTPPort, "SMTP port")
	fs.StringVar(&cfg.SMTPFrom, "smtp-from", "", "sender address")
	fs.StringVar(&cfg.UploadDir, "u", defaultUploadDir, "upload directory")
	fs.StringVar(&cfg.FilesBaseURL, "files-url", defaultFilesBaseURL, "base URL of uploaded files")
	fs.StringVar(&cfg.PaymentQRContent, "qr", defaultPaymentQRContent, "payment QR content")
	fs.BoolVar(&cfg.TrustProxy, "trust-proxy", false, "take client address from proxy headers")
	fs.IntVar(&cfg.RateLimit, "rate-limit", defaultRateLimit, "requests per window per client")
	fs.DurationVar(&cfg.RateWindow, "rate-window", defaultRateWindow, "rate limit window")
	fs.DurationVar(&cfg.OTPSweepInterval, "otp-sweep", defaultOTPSweepInterval, "expired otp sweep interval")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// if environment variable is set, then using it
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	if cfg.TokenKey == "" {
		return nil, errors.New("token key is required, set TOKEN_KEY or -k")
	}
	if cfg.RateLimit < 1 || cfg.RateWindow <= 0 {
		return nil, errors.New("rate limit and window must be positive")
	}
	if cfg.OTPSweepInterval <= 0 {
		return nil, errors.New("otp sweep interval must be positive")
	}

	return &cfg, nil
}
