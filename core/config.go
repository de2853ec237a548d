package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Debug            bool
	TestMode         bool
	AppName          string
	SecretKey        string
	Env              string
	Build            string
	RollbarToken     string
	SendgridApiKey   string
	DefaultFromEmail string
	FrontendBaseURL  string
	WorkDir          string

	Server struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	Database struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	Storage struct {
		URL     string // gocloud bucket URL (file:///..., mem://); empty: a file bucket under Dir
		Dir     string
		BaseURL string
	}

	Broker struct {
		URL      string // empty: events are only logged
		Exchange string
	}

	Payment struct {
		MerchantUPI  string
		MerchantName string
	}
}

func (c *Config) DefaultFromAddress() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

func (c *Config) DatabaseAddress() string {
	return net.JoinHostPort(c.Database.Host, c.Database.Port)
}

// NewConfig loads the config from `config/.env.<env>` (if it exists) and the environment.
// Env vars are prefixed with ACADEMY_, e.g. ACADEMY_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Mahima Academy")
	v.SetDefault("secretKey", "8ub$-zq)m4!k1x=ps&2+w0c(h!e)#*n7(#rf4^$ldj9amt")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "academy")
	v.SetDefault("database.password", "academy")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.name", "academy")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("storage.url", "")
	v.SetDefault("storage.dir", "media")
	v.SetDefault("storage.baseURL", "http://localhost:8000/media")

	v.SetDefault("broker.url", "")
	v.SetDefault("broker.exchange", "academy.events")

	v.SetDefault("payment.merchantUPI", "mahimaacademy@okaxis")
	v.SetDefault("payment.merchantName", "Mahima Academy")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}

	v.SetEnvPrefix("academy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	workDir := Getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		Env:              env,
		Build:            v.GetString("build"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		WorkDir:          workDir,
	}

	conf.Server.Host = v.GetString("server.host")
	conf.Server.DebugHost = v.GetString("server.debugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("server.jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("server.jwtRefreshExpirationDelta")

	conf.Database.Engine = v.GetString("database.engine")
	conf.Database.Host = v.GetString("database.host")
	conf.Database.Port = v.GetString("database.port")
	conf.Database.User = v.GetString("database.user")
	conf.Database.Password = v.GetString("database.password")
	conf.Database.AdminUser = v.GetString("database.adminUser")
	conf.Database.AdminPassword = v.GetString("database.adminPassword")
	conf.Database.Name = v.GetString("database.name")
	conf.Database.DisableTLS = v.GetBool("database.disableTLS")

	conf.Storage.URL = v.GetString("storage.url")
	conf.Storage.Dir = v.GetString("storage.dir")
	if !filepath.IsAbs(conf.Storage.Dir) {
		conf.Storage.Dir = filepath.Join(workDir, conf.Storage.Dir)
	}
	conf.Storage.BaseURL = strings.TrimRight(v.GetString("storage.baseURL"), "/")

	conf.Broker.URL = v.GetString("broker.url")
	conf.Broker.Exchange = v.GetString("broker.exchange")

	conf.Payment.MerchantUPI = v.GetString("payment.merchantUPI")
	conf.Payment.MerchantName = v.GetString("payment.merchantName")

	return conf
}
