package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppName          string
	Env              string // DEV (local; default), TEST, QA, PROD
	Build            string
	Debug            bool
	TestMode         bool
	WorkDir          string
	SecretKey        string
	FrontendBaseURL  string
	RollbarToken     string
	SendgridApiKey   string
	defaultFromEmail string

	Server struct {
		Host            string
		Address         string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
		PageCacheTTL    time.Duration // 0: pages stay cached until revalidated
	}

	Session struct {
		CookieName  string
		MaxAge      time.Duration
		Secure      bool
		TokenSecret string
	}

	Database struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	Storage struct {
		Endpoint  string
		Region    string
		Bucket    string
		AccessKey string
		SecretKey string
	}
}

// NewConfig loads the configuration for the current ENV from defaults,
// config/.env.<env> (when present) and prefixed environment variables.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("app_name", "Mwalimu")
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("test_mode", false)
	v.SetDefault("secret_key", "z7t!(0q3m@wl-4v$k1o#b2^c9xae_pr8dfn6gy5hj*us%ic+")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("default_from_email", "Mwalimu <noreply@localhost>")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.disable_req_logs", false)
	v.SetDefault("server.page_cache_ttl", time.Minute)
	v.SetDefault("session.cookie_name", "session")
	v.SetDefault("session.max_age", 7*24*time.Hour)
	v.SetDefault("session.secure", false)
	v.SetDefault("session.token_secret", "")
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "mwalimu")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.admin_user", "")
	v.SetDefault("database.admin_password", "")
	v.SetDefault("database.disable_tls", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("test_mode", true)
		v.SetDefault("debug", false)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:          v.GetString("app_name"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("test_mode"),
		WorkDir:          wd,
		SecretKey:        v.GetString("secret_key"),
		FrontendBaseURL:  strings.TrimSuffix(v.GetString("frontend_base_url"), "/"),
		RollbarToken:     v.GetString("rollbar_token"),
		SendgridApiKey:   v.GetString("sendgrid_api_key"),
		defaultFromEmail: v.GetString("default_from_email"),
	}

	conf.Server.Host = v.GetString("server.host")
	conf.Server.Address = v.GetString("server.address")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")
	conf.Server.DisableReqLogs = v.GetBool("server.disable_req_logs")
	conf.Server.PageCacheTTL = v.GetDuration("server.page_cache_ttl")

	conf.Session.CookieName = v.GetString("session.cookie_name")
	conf.Session.MaxAge = v.GetDuration("session.max_age")
	conf.Session.Secure = v.GetBool("session.secure")
	conf.Session.TokenSecret = v.GetString("session.token_secret")
	if conf.Session.TokenSecret == "" {
		conf.Session.TokenSecret = conf.SecretKey
	}

	conf.Database.Engine = v.GetString("database.engine")
	conf.Database.Host = v.GetString("database.host")
	conf.Database.Port = v.GetString("database.port")
	conf.Database.Name = v.GetString("database.name")
	conf.Database.User = v.GetString("database.user")
	conf.Database.Password = v.GetString("database.password")
	conf.Database.AdminUser = v.GetString("database.admin_user")
	conf.Database.AdminPassword = v.GetString("database.admin_password")
	conf.Database.DisableTLS = v.GetBool("database.disable_tls")

	conf.Storage.Endpoint = v.GetString("storage.endpoint")
	conf.Storage.Region = v.GetString("storage.region")
	conf.Storage.Bucket = v.GetString("storage.bucket")
	conf.Storage.AccessKey = v.GetString("storage.access_key")
	conf.Storage.SecretKey = v.GetString("storage.secret_key")

	return conf
}

// DefaultFromEmail parses the configured sender. It falls back to the bare value as address.
func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	return *addr
}

func (conf *Config) SetDefaultFromEmail(s string) {
	conf.defaultFromEmail = s
}

func (conf *Config) IsProd() bool {
	return conf.Env == "PROD"
}

func (conf *Config) DatabaseAddress() string {
	return fmt.Sprintf("%s:%s", conf.Database.Host, conf.Database.Port)
}
