package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/usersecrets/internal/timex"
)

// JsonConfig mirrors Config for decoding configuration files. Durations use
// timex.Duration so both "10m" and integer nanoseconds are accepted.
// Zero values are treated as "not set" and leave the target untouched.
type JsonConfig struct {
	HTTPAddr        string         `json:"http_addr"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
	LogLevel        string         `json:"log_level"`

	StorageDriver string `json:"storage_driver"`
	DatabaseDSN   string `json:"database_dsn"`

	SessionSecret string         `json:"session_secret"`
	SessionTTL    timex.Duration `json:"session_ttl"`
	SessionStore  string         `json:"session_store"`
	CookieSecure  *bool          `json:"cookie_secure"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       *int   `json:"redis_db"`

	PasswordHasher string `json:"password_hasher"`
	BcryptCost     int    `json:"bcrypt_cost"`

	OAuthClientID     string         `json:"oauth_client_id"`
	OAuthClientSecret string         `json:"oauth_client_secret"`
	OAuthRedirectURL  string         `json:"oauth_redirect_url"`
	OAuthScopes       []string       `json:"oauth_scopes"`
	OAuthAuthURL      string         `json:"oauth_auth_url"`
	OAuthTokenURL     string         `json:"oauth_token_url"`
	OAuthUserInfoURL  string         `json:"oauth_userinfo_url"`
	OAuthPendingTTL   timex.Duration `json:"oauth_pending_ttl"`

	AllowedOrigins []string `json:"allowed_origins"`
}

// parseJson overlays values from the JSON file at path onto config.
// An empty path is a no-op.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.StorageDriver, c.StorageDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SessionSecret, c.SessionSecret)
	setDuration(&config.SessionTTL, c.SessionTTL)
	setString(&config.SessionStore, c.SessionStore)
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setString(&config.PasswordHasher, c.PasswordHasher)
	if c.BcryptCost > 0 {
		config.BcryptCost = c.BcryptCost
	}
	setString(&config.OAuthClientID, c.OAuthClientID)
	setString(&config.OAuthClientSecret, c.OAuthClientSecret)
	setString(&config.OAuthRedirectURL, c.OAuthRedirectURL)
	if len(c.OAuthScopes) > 0 {
		config.OAuthScopes = c.OAuthScopes
	}
	setString(&config.OAuthAuthURL, c.OAuthAuthURL)
	setString(&config.OAuthTokenURL, c.OAuthTokenURL)
	setString(&config.OAuthUserInfoURL, c.OAuthUserInfoURL)
	setDuration(&config.OAuthPendingTTL, c.OAuthPendingTTL)
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
