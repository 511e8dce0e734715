package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env              string
	Port             string
	DatabaseURL      string
	RedisURL         string
	JWTSecret        string
	JWTExpiry        time.Duration
	FrontendURL      string
	ImageHostURL     string
	ImageHostAPIKey  string
	SendinblueAPIKey string // SENDINBLUE_API_KEY for transactional emails (Brevo)
	MailFrom         string // MAIL_FROM sender email
	RateLimitMax     int
	RateLimitWindow  time.Duration
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "5000"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	jwtHours := viper.GetInt("JWT_EXPIRES_HOURS")
	if jwtHours <= 0 {
		jwtHours = 24 * 7
	}

	rlMax := viper.GetInt("RATE_LIMIT_MAX")
	if rlMax <= 0 {
		rlMax = 100
	}
	rlWindow := viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")
	if rlWindow <= 0 {
		rlWindow = 900
	}

	return &Config{
		Env:              env,
		Port:             port,
		DatabaseURL:      viper.GetString("DATABASE_URL"),
		RedisURL:         viper.GetString("REDIS_URL"),
		JWTSecret:        viper.GetString("JWT_SECRET"),
		JWTExpiry:        time.Duration(jwtHours) * time.Hour,
		FrontendURL:      frontendURL(viper.GetString("FRONTEND_URL")),
		ImageHostURL:     viper.GetString("IMAGE_HOST_URL"),
		ImageHostAPIKey:  viper.GetString("IMAGE_HOST_API_KEY"),
		SendinblueAPIKey: viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:         viper.GetString("MAIL_FROM"),
		RateLimitMax:     rlMax,
		RateLimitWindow:  time.Duration(rlWindow) * time.Second,
	}, nil
}

func frontendURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "http://localhost:3000"
	}
	return strings.TrimRight(s, "/")
}
