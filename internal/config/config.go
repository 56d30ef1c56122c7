package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetDataFolder() string
	GetLogLevel() string
	GetLogFile() string
}

type APIConfig interface {
	GetBaseURL() string
	GetRegisterURL() string
	GetRequestTimeout() time.Duration
}

type SessionConfig interface {
	GetStorageKey() string
	GetCredentialBackend() string
	GetRedisURL() string
	GetLogoutTimeout() time.Duration
	GetPreemptiveRefresh() bool
}

type mainConfig struct {
	EnvVars
	API
	Session
}

// New builds a Config from defaults, STOREFRONT_* environment variables and an
// optional storefront.yaml found in the working directory or data folder.
func New() Config {
	return NewFromViper(load())
}

// NewFromViper wraps an already populated viper instance. Missing keys fall back
// to the package defaults.
func NewFromViper(v *viper.Viper) Config {
	setDefaults(v)
	return mainConfig{
		EnvVars: EnvVars{v: v},
		API:     API{v: v},
		Session: Session{v: v},
	}
}

func load() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetConfigName("storefront")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(v.GetString(dataFolderKey))
	// A missing config file is fine, env and defaults still apply
	_ = v.ReadInConfig()
	return v
}
