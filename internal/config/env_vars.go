package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "STOREFRONT"

const (
	appNameKey           = "app_name"
	envKey               = "env"
	dataFolderKey        = "data_folder"
	logLevelKey          = "log_level"
	logFileKey           = "log_file"
	baseURLKey           = "base_url"
	registerURLKey       = "register_url"
	requestTimeoutKey    = "request_timeout"
	storageKeyKey        = "storage_key"
	credentialBackendKey = "credential_backend"
	redisURLKey          = "redis_url"
	logoutTimeoutKey     = "logout_timeout"
	preemptiveRefreshKey = "preemptive_refresh"
)

const (
	DefaultBaseURL     = "https://pacomprarserver.onrender.com/api"
	DefaultRegisterURL = "https://das-p2-backend.onrender.com/api/users/register/"
	DefaultStorageKey  = "pacomprarUser"

	CredentialBackendFile  = "file"
	CredentialBackendRedis = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(appNameKey, "Storefront")
	v.SetDefault(envKey, "DEV")
	v.SetDefault(dataFolderKey, "./data")
	v.SetDefault(logLevelKey, "info")
	v.SetDefault(logFileKey, "")
	v.SetDefault(baseURLKey, DefaultBaseURL)
	v.SetDefault(registerURLKey, DefaultRegisterURL)
	v.SetDefault(requestTimeoutKey, 30*time.Second)
	v.SetDefault(storageKeyKey, DefaultStorageKey)
	v.SetDefault(credentialBackendKey, CredentialBackendFile)
	v.SetDefault(redisURLKey, "redis://localhost:6379/0")
	v.SetDefault(logoutTimeoutKey, 5*time.Second)
	v.SetDefault(preemptiveRefreshKey, false)
}

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(appNameKey)
}

func (e EnvVars) GetEnv() string {
	return e.v.GetString(envKey)
}

func (e EnvVars) GetDataFolder() string {
	return e.v.GetString(dataFolderKey)
}

func (e EnvVars) GetLogLevel() string {
	return e.v.GetString(logLevelKey)
}

// GetLogFile returns the rotating log file path, empty means console only
func (e EnvVars) GetLogFile() string {
	return e.v.GetString(logFileKey)
}

type API struct {
	v *viper.Viper
}

var _ APIConfig = API{}

// GetBaseURL returns the REST API base (e.g., "https://pacomprarserver.onrender.com/api")
// All resource routes are built relative to it, see routes.New
func (a API) GetBaseURL() string {
	return a.v.GetString(baseURLKey)
}

// GetRegisterURL returns the registration endpoint, which lives on a different origin
func (a API) GetRegisterURL() string {
	return a.v.GetString(registerURLKey)
}

func (a API) GetRequestTimeout() time.Duration {
	return a.v.GetDuration(requestTimeoutKey)
}

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

func (s Session) GetStorageKey() string {
	return s.v.GetString(storageKeyKey)
}

func (s Session) GetCredentialBackend() string {
	return s.v.GetString(credentialBackendKey)
}

func (s Session) GetRedisURL() string {
	return s.v.GetString(redisURLKey)
}

func (s Session) GetLogoutTimeout() time.Duration {
	return s.v.GetDuration(logoutTimeoutKey)
}

func (s Session) GetPreemptiveRefresh() bool {
	return s.v.GetBool(preemptiveRefreshKey)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
