package config

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppEnv            string        `mapstructure:"APP_ENV"`
	Port              string        `mapstructure:"PORT"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	RedisPassword     string        `mapstructure:"REDIS_PASSWORD"`
	RegistryCacheTTL  time.Duration `mapstructure:"REGISTRY_CACHE_TTL"`
	AdminCredentials  string        `mapstructure:"ADMIN_CREDENTIALS"`
	BaseURL           string        `mapstructure:"BASE_URL"`
	GeoAPIURL         string        `mapstructure:"GEO_API_URL"`
	GeoTimeout        time.Duration `mapstructure:"GEO_TIMEOUT"`
	MaxMindAccountID  string        `mapstructure:"MAXMIND_ACCOUNT_ID"`
	MaxMindLicenseKey string        `mapstructure:"MAXMIND_LICENSE_KEY"`
	MaxMindEditionIDs string        `mapstructure:"MAXMIND_EDITION_IDS"`
	MaxMindDBPath     string        `mapstructure:"GEOIP_DB_PATH"`
	AuditQueueSize    int           `mapstructure:"AUDIT_QUEUE_SIZE"`
	AuditWorkers      int           `mapstructure:"AUDIT_WORKERS"`
}

func LoadConfig() (config Config, err error) {
	v := viper.New()
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "sqlite://qr_verification.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REGISTRY_CACHE_TTL", "10m")
	v.SetDefault("ADMIN_CREDENTIALS", "")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("GEO_API_URL", "https://ipapi.co")
	v.SetDefault("GEO_TIMEOUT", "5s")
	v.SetDefault("MAXMIND_ACCOUNT_ID", "")
	v.SetDefault("MAXMIND_LICENSE_KEY", "")
	v.SetDefault("MAXMIND_EDITION_IDS", "GeoLite2-City")
	v.SetDefault("GEOIP_DB_PATH", "./geoip/GeoLite2-City.mmdb")
	v.SetDefault("AUDIT_QUEUE_SIZE", 1000)
	v.SetDefault("AUDIT_WORKERS", 2)

	// A local .env is optional; real environment variables win.
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if readErr := v.ReadInConfig(); readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) && !errors.Is(readErr, fs.ErrNotExist) {
			log.Printf("unable to read .env, %v", readErr)
		}
	}

	v.AutomaticEnv()

	err = v.Unmarshal(&config)
	if err != nil {
		log.Printf("unable to decode into struct, %v", err)
		return
	}

	if config.AuditQueueSize <= 0 {
		config.AuditQueueSize = 1000
	}
	if config.AuditWorkers <= 0 {
		config.AuditWorkers = 1
	}
	if config.GeoTimeout <= 0 {
		config.GeoTimeout = 5 * time.Second
	}

	return
}
