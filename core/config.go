package core

import (
	"log"
	"net/mail"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Addr               string
		JWTExpirationDelta time.Duration
	}

	SessionConfig struct {
		ExpirationDelta   time.Duration // default login lifetime
		RememberMeDelta   time.Duration // "remember me" login lifetime
		RefreshLead       time.Duration // auto-refresh fires this long before expiry
		RefreshMinDelay   time.Duration // auto-refresh never fires sooner than this
		HeartbeatInterval time.Duration
	}

	StorageConfig struct {
		Backend     string // memory | file | redis | postgres
		FileDir     string
		RedisAddr   string
		RedisDB     int
		DatabaseURL string
	}

	Config struct {
		AppName           string
		Env               string
		Debug             bool
		TestMode          bool
		Build             string
		SecretKey         []byte
		PasswordMinLength int
		DefaultFromEmail  mail.Address
		SendgridApiKey    string
		RollbarToken      string
		Server            ServerConfig
		Session           SessionConfig
		Storage           StorageConfig
	}
)

var Conf *Config

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Madrasa")
	v.SetDefault("secretKey", "h2(h!x)#*c2(#yg4h^$cegm2emypoq5-wer)enb$+57=dz&uox")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("jwtExpirationDelta", 8*time.Hour)
	v.SetDefault("sessionExpirationDelta", 8*time.Hour)
	v.SetDefault("sessionRememberMeDelta", 30*24*time.Hour)
	v.SetDefault("sessionRefreshLead", 10*time.Minute)
	v.SetDefault("sessionRefreshMinDelay", time.Minute)
	v.SetDefault("sessionHeartbeatInterval", 5*time.Minute)
	v.SetDefault("passwordMinLength", 6)
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("storageBackend", "memory")
	v.SetDefault("storageFileDir", "data")
	v.SetDefault("redisAddr", "localhost:6379")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Fatalf("config.godotenv: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat: %v", err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		AppName:           v.GetString("appName"),
		Env:               env,
		Debug:             v.GetBool("debug"),
		TestMode:          v.GetBool("testMode"),
		Build:             v.GetString("build"),
		SecretKey:         []byte(v.GetString("secretKey")),
		PasswordMinLength: v.GetInt("passwordMinLength"),
		DefaultFromEmail:  mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:    v.GetString("sendgridApiKey"),
		RollbarToken:      v.GetString("rollbarToken"),
		Server: ServerConfig{
			Addr:               v.GetString("serverAddr"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		},
		Session: SessionConfig{
			ExpirationDelta:   v.GetDuration("sessionExpirationDelta"),
			RememberMeDelta:   v.GetDuration("sessionRememberMeDelta"),
			RefreshLead:       v.GetDuration("sessionRefreshLead"),
			RefreshMinDelay:   v.GetDuration("sessionRefreshMinDelay"),
			HeartbeatInterval: v.GetDuration("sessionHeartbeatInterval"),
		},
		Storage: StorageConfig{
			Backend:     v.GetString("storageBackend"),
			FileDir:     v.GetString("storageFileDir"),
			RedisAddr:   v.GetString("redisAddr"),
			RedisDB:     v.GetInt("redisDB"),
			DatabaseURL: v.GetString("databaseURL"),
		},
	}
}
