package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server     Server
	Database   Database
	Token      Token
	Admin      Admin
	LTI        LTI
	Submission Submission
	Batch      Batch
	Metrics    Metrics
	RateLimit  RateLimit
	Log        Log
	CORS       CORS
}

type Server struct {
	Port    string
	GinMode string
}

// Database selects the document store. Driver is postgres, sqlite or badger;
// Path is the sqlite file or the badger directory.
type Database struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	DSN      string
	Path     string
}

type Token struct {
	Secret string
}

type Admin struct {
	Token string
}

type LTI struct {
	ConsumerKey        string
	ConsumerSecret     string
	VerifyLaunch       bool
	MaxGrade           float64
	Timeout            time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
	LaunchRedirectURL  string
	// NonceStore is memory or redis; redis reuses the REDIS_* settings.
	NonceStore string
}

type Submission struct {
	FileStorePath string
	UserInfoURL   string
}

type Batch struct {
	Concurrency int
}

type Metrics struct {
	Enabled bool
}

type RateLimit struct {
	RequestsPerMinute int
	Store             string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
}

type Log struct {
	Level  string
	Pretty bool
}

type CORS struct {
	AllowOrigins []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_PATH", "gradebridge.db")
	v.SetDefault("LTI_VERIFY_LAUNCH", true)
	v.SetDefault("LTI_MAX_GRADE", 1.0)
	v.SetDefault("LTI_TIMEOUT", "10s")
	v.SetDefault("LTI_BREAKER_MAX_FAILURES", 5)
	v.SetDefault("LTI_BREAKER_OPEN_TIMEOUT", "30s")
	v.SetDefault("LTI_NONCE_STORE", "memory")
	v.SetDefault("FILE_STORE_PATH", "submissions")
	v.SetDefault("BATCH_CONCURRENCY", 8)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("RATE_LIMIT_REQUESTS_PER_MINUTE", 120)
	v.SetDefault("RATE_LIMIT_STORE", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	config, err := load(v)
	if err != nil {
		return nil, err
	}

	log.Info().Interface("config", config.Redacted()).Msg("Config loaded")
	return config, nil
}

func load(v *viper.Viper) (*Config, error) {
	var config Config

	config.Server.Port = v.GetString("SERVER_PORT")
	config.Server.GinMode = v.GetString("GIN_MODE")

	config.Database.Driver = strings.ToLower(v.GetString("DATABASE_DRIVER"))
	config.Database.Host = v.GetString("DATABASE_HOST")
	config.Database.Port = v.GetString("DATABASE_PORT")
	config.Database.User = v.GetString("DATABASE_USER")
	config.Database.Password = v.GetString("DATABASE_PASSWORD")
	config.Database.Name = v.GetString("DATABASE_NAME")
	config.Database.SSLMode = v.GetString("DATABASE_SSLMODE")
	config.Database.DSN = v.GetString("DATABASE_DSN")
	config.Database.Path = v.GetString("DATABASE_PATH")

	config.Token.Secret = v.GetString("TOKEN_SECRET")
	config.Admin.Token = v.GetString("ADMIN_TOKEN")

	config.LTI.ConsumerKey = v.GetString("LTI_CONSUMER_KEY")
	config.LTI.ConsumerSecret = v.GetString("LTI_CONSUMER_SECRET")
	config.LTI.VerifyLaunch = v.GetBool("LTI_VERIFY_LAUNCH")
	config.LTI.MaxGrade = v.GetFloat64("LTI_MAX_GRADE")
	config.LTI.Timeout = v.GetDuration("LTI_TIMEOUT")
	config.LTI.BreakerMaxFailures = v.GetUint32("LTI_BREAKER_MAX_FAILURES")
	config.LTI.BreakerOpenTimeout = v.GetDuration("LTI_BREAKER_OPEN_TIMEOUT")
	config.LTI.LaunchRedirectURL = v.GetString("LAUNCH_REDIRECT_URL")
	config.LTI.NonceStore = strings.ToLower(v.GetString("LTI_NONCE_STORE"))

	config.Submission.FileStorePath = v.GetString("FILE_STORE_PATH")
	config.Submission.UserInfoURL = v.GetString("USERINFO_URL")

	config.Batch.Concurrency = v.GetInt("BATCH_CONCURRENCY")
	config.Metrics.Enabled = v.GetBool("METRICS_ENABLED")

	config.RateLimit.RequestsPerMinute = v.GetInt("RATE_LIMIT_REQUESTS_PER_MINUTE")
	config.RateLimit.Store = v.GetString("RATE_LIMIT_STORE")
	config.RateLimit.RedisAddr = v.GetString("REDIS_ADDR")
	config.RateLimit.RedisPassword = v.GetString("REDIS_PASSWORD")
	config.RateLimit.RedisDB = v.GetInt("REDIS_DB")

	config.Log.Level = v.GetString("LOG_LEVEL")
	config.Log.Pretty = v.GetBool("LOG_PRETTY")

	for _, origin := range strings.Split(v.GetString("CORS_ALLOW_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			config.CORS.AllowOrigins = append(config.CORS.AllowOrigins, origin)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the bridge cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Token.Secret == "" {
		errs = append(errs, errors.New("TOKEN_SECRET must be set"))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite", "badger":
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver))
	}
	switch c.LTI.NonceStore {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unsupported LTI_NONCE_STORE %q", c.LTI.NonceStore))
	}
	if c.LTI.MaxGrade <= 0 {
		errs = append(errs, fmt.Errorf("LTI_MAX_GRADE must be positive, got %v", c.LTI.MaxGrade))
	}
	if c.Batch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("BATCH_CONCURRENCY must be at least 1, got %d", c.Batch.Concurrency))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Redacted returns a copy that is safe to log.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.Database.Password = mask(c.Database.Password)
	c.Database.DSN = mask(c.Database.DSN)
	c.Token.Secret = mask(c.Token.Secret)
	c.Admin.Token = mask(c.Admin.Token)
	c.LTI.ConsumerSecret = mask(c.LTI.ConsumerSecret)
	c.RateLimit.RedisPassword = mask(c.RateLimit.RedisPassword)
	return c
}
