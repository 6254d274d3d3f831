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

var Conf *Config

type Config struct {
	Debug            bool
	TestMode         bool
	Env              string // DEV (local; default), TEST, QA, PROD
	Build            string
	AppName          string
	SecretKey        string
	FrontendBaseURL  string
	DefaultFromEmail mail.Address
	SendgridAPIKey   string
	RollbarToken     string

	PasswordResetTimeoutDelta time.Duration

	Server struct {
		Host                      string
		Port                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	Database struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}
}

func (conf *Config) ServerAddress() string {
	return net.JoinHostPort(conf.Server.Host, conf.Server.Port)
}

func (conf *Config) DatabaseAddress() string {
	return net.JoinHostPort(conf.Database.Host, conf.Database.Port)
}

func init() {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Mahudhurio")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "mahudhurio")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.disableTls", true)

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		Env:                       env,
		Build:                     v.GetString("build"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseUrl"),
		DefaultFromEmail:          mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridAPIKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
	}
	Conf.Server.Host = v.GetString("server.host")
	Conf.Server.Port = v.GetString("server.port")
	Conf.Server.JWTExpirationDelta = v.GetDuration("server.jwtExpirationDelta")
	Conf.Server.JWTRefreshExpirationDelta = v.GetDuration("server.jwtRefreshExpirationDelta")
	Conf.Database.Engine = v.GetString("database.engine")
	Conf.Database.Name = v.GetString("database.name")
	Conf.Database.User = v.GetString("database.user")
	Conf.Database.Password = v.GetString("database.password")
	Conf.Database.AdminUser = v.GetString("database.adminUser")
	Conf.Database.AdminPassword = v.GetString("database.adminPassword")
	Conf.Database.Host = v.GetString("database.host")
	Conf.Database.Port = v.GetString("database.port")
	Conf.Database.DisableTLS = v.GetBool("database.disableTls")
}
