package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration, loaded from environment variables
// with an optional .env file for local development.
type Config struct {
	Port               string
	AppEnv             string
	WorkerPoolSize     int
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTExpirationHours int
	BillingMode        string
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	AlertEmail         string
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	if err := viper.ReadInConfig(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("WORKER_POOL_SIZE", 3)
	viper.SetDefault("JWT_EXPIRATION_HOURS", 24)
	viper.SetDefault("BILLING_MODE", "daily")
	viper.SetDefault("SMTP_PORT", 587)

	return &Config{
		Port:               viper.GetString("PORT"),
		AppEnv:             viper.GetString("APP_ENV"),
		WorkerPoolSize:     viper.GetInt("WORKER_POOL_SIZE"),
		DatabaseURL:        viper.GetString("DATABASE_URL"),
		RedisURL:           viper.GetString("REDIS_URL"),
		JWTSecret:          viper.GetString("JWT_SECRET"),
		JWTExpirationHours: viper.GetInt("JWT_EXPIRATION_HOURS"),
		BillingMode:        viper.GetString("BILLING_MODE"),
		SMTPHost:           viper.GetString("SMTP_HOST"),
		SMTPPort:           viper.GetInt("SMTP_PORT"),
		SMTPUser:           viper.GetString("SMTP_USER"),
		SMTPPassword:       viper.GetString("SMTP_PASSWORD"),
		AlertEmail:         viper.GetString("ALERT_EMAIL"),
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
