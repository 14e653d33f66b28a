package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Backends
const (
	BackendREST   = "rest"   // hosted PostgREST + GoTrue
	BackendSQL    = "sql"    // local database + local auth
	BackendMemory = "memory" // in-memory store + local auth
)

type (
	DatabaseConfig struct {
		Engine     string // postgres | sqlite3
		Host       string
		Port       int
		User       string
		Password   string
		Name       string
		DisableTLS bool
		Path       string // sqlite3 only
	}

	ServerConfig struct {
		Host            string
		Address         string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	AuthConfig struct {
		SecretKey                 string
		JWTExpirationDelta        time.Duration
		PasswordResetTimeoutDelta time.Duration
		RedirectURL               string
	}

	Config struct {
		AppName  string
		Env      string
		Build    string
		Debug    bool
		TestMode bool
		WorkDir  string

		Backend         string
		SupabaseURL     string
		SupabaseAnonKey string

		CacheStaleTime       time.Duration
		SessionFile          string
		SessionCheckInterval time.Duration
		NotificationTTL      time.Duration

		FrontendBaseURL  string
		DefaultFromEmail string
		SendgridApiKey   string
		RollbarToken     string
		LogLevel         string
		LogFormat        string

		Database DatabaseConfig
		Server   ServerConfig
		Auth     AuthConfig
	}
)

func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// DefaultFrom parses DefaultFromEmail, falling back to a bare address when it is not RFC 5322.
func (c *Config) DefaultFrom() mail.Address {
	addr, err := mail.ParseAddress(c.DefaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
	}
	return *addr
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "English Prep Companion")
	v.SetDefault("build", "dev")
	v.SetDefault("backend", BackendREST)
	v.SetDefault("supabaseURL", "http://localhost:54321")
	v.SetDefault("supabaseAnonKey", "")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", "text")

	v.SetDefault("cache.staleTime", time.Minute)
	v.SetDefault("session.file", filepath.Join(userConfigDir(), "english-prep", "session.json"))
	v.SetDefault("session.checkInterval", time.Minute)
	v.SetDefault("notifications.ttl", 5*time.Second)

	v.SetDefault("database.engine", "sqlite3")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "englishprep")
	v.SetDefault("database.disableTLS", false)
	v.SetDefault("database.path", filepath.Join(userConfigDir(), "english-prep", "data.db"))

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("auth.secretKey", "r8n!w2k$4x)vq+m=ez7&d0p9(t#l*g3(h^s5yf1bc6jo")
	v.SetDefault("auth.jwtExpirationDelta", time.Hour)
	v.SetDefault("auth.passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("auth.redirectURL", "http://localhost:8080/reset-password")
}

// NewConfig reads the configuration from the environment (and the matching `config/.env.<env>`
// file when it exists) on top of the defaults. A nil viper instance gets a fresh one.
func NewConfig(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:  v.GetString("appName"),
		Env:      env,
		Build:    v.GetString("build"),
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		WorkDir:  wd,

		Backend:         strings.ToLower(v.GetString("backend")),
		SupabaseURL:     strings.TrimRight(v.GetString("supabaseURL"), "/"),
		SupabaseAnonKey: v.GetString("supabaseAnonKey"),

		CacheStaleTime:       v.GetDuration("cache.staleTime"),
		SessionFile:          v.GetString("session.file"),
		SessionCheckInterval: v.GetDuration("session.checkInterval"),
		NotificationTTL:      v.GetDuration("notifications.ttl"),

		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		LogLevel:         v.GetString("logLevel"),
		LogFormat:        v.GetString("logFormat"),

		Database: DatabaseConfig{
			Engine:     v.GetString("database.engine"),
			Host:       v.GetString("database.host"),
			Port:       v.GetInt("database.port"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			Name:       v.GetString("database.name"),
			DisableTLS: v.GetBool("database.disableTLS"),
			Path:       v.GetString("database.path"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Auth: AuthConfig{
			SecretKey:                 v.GetString("auth.secretKey"),
			JWTExpirationDelta:        v.GetDuration("auth.jwtExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("auth.passwordResetTimeoutDelta"),
			RedirectURL:               v.GetString("auth.redirectURL"),
		},
	}

	switch conf.Backend {
	case BackendREST, BackendSQL, BackendMemory:
	default:
		return nil, errors.Errorf("unknown backend %q", conf.Backend)
	}
	if conf.Backend == BackendREST && conf.SupabaseAnonKey == "" && !conf.TestMode {
		return nil, errors.New("supabaseAnonKey is required with the rest backend")
	}
	return conf, nil
}

func userConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return dir
}
