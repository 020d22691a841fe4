package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "STOWAGE"
	defaultHTTPAddress   = "0.0.0.0:8080"
	defaultDatabasePath  = "stowage.db"
	defaultLogLevel      = "info"
	defaultCookieName    = "stowage_session"
	defaultTokenTTL      = 60
	defaultIdentityJWKS  = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	defaultIdentityHosts = "lh3.googleusercontent.com,firebasestorage.googleapis.com"
	defaultMediaRegion   = "auto"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress   string
	DatabasePath  string
	LogLevel      string
	SigningSecret string
	CookieName    string
	TokenTTL      time.Duration

	IdentityAudience string
	IdentityJWKSURL  string
	IdentityAdminURL string
	IdentityAdminKey string
	IdentityCDNHosts []string

	MediaEndpoint      string
	MediaAccessKey     string
	MediaSecretKey     string
	MediaBucket        string
	MediaRegion        string
	MediaPublicBaseURL string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.cookie_name", defaultCookieName)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTL)
	configViper.SetDefault("identity.jwks_url", defaultIdentityJWKS)
	configViper.SetDefault("identity.cdn_hosts", defaultIdentityHosts)
	configViper.SetDefault("media.region", defaultMediaRegion)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		DatabasePath:  configViper.GetString("database.path"),
		LogLevel:      configViper.GetString("log.level"),
		SigningSecret: configViper.GetString("auth.signing_secret"),
		CookieName:    configViper.GetString("auth.cookie_name"),
		TokenTTL:      time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,

		IdentityAudience: configViper.GetString("identity.audience"),
		IdentityJWKSURL:  configViper.GetString("identity.jwks_url"),
		IdentityAdminURL: configViper.GetString("identity.admin_url"),
		IdentityAdminKey: configViper.GetString("identity.admin_key"),
		IdentityCDNHosts: splitHosts(configViper.GetString("identity.cdn_hosts")),

		MediaEndpoint:      configViper.GetString("media.endpoint"),
		MediaAccessKey:     configViper.GetString("media.access_key"),
		MediaSecretKey:     configViper.GetString("media.secret_key"),
		MediaBucket:        configViper.GetString("media.bucket"),
		MediaRegion:        configViper.GetString("media.region"),
		MediaPublicBaseURL: configViper.GetString("media.public_base_url"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.CookieName) == "" {
		return fmt.Errorf("auth.cookie_name is required")
	}
	if strings.TrimSpace(c.IdentityAudience) == "" {
		return fmt.Errorf("identity.audience is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	return nil
}

func splitHosts(raw string) []string {
	parts := strings.Split(raw, ",")
	hosts := make([]string, 0, len(parts))
	for _, part := range parts {
		host := strings.TrimSpace(part)
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}
