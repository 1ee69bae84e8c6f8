package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	portEnvVar   = "PORT"
	appNameVar   = "APP_NAME"
	logLevelVar  = "LOG_LEVEL"
	apiURLVar    = "API_URL"
	wsURLVar     = "WS_URL"
	basePathVar  = "BASE_PATH"
	folderEnvVar = "FOLDER"
	storeKeyVar  = "STORE_SECRET"
)

// LoadDotEnv loads a .env file if one exists next to the binary. A missing
// file is not an error.
func LoadDotEnv() {
	_ = godotenv.Load()
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8085")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "DentaTrack Console")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

type API struct{}

var _ APIConfig = API{}

func (API) GetAPIBaseURL() string {
	return GetEnv(apiURLVar, "http://localhost:8080/api")
}

func (API) GetWebSocketURL() string {
	return GetEnv(wsURLVar, "ws://localhost:8080/ws")
}

func (API) GetBasePath() string {
	return GetEnv(basePathVar, "/dentatrack")
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetStoreSecret returns the passphrase used to seal the on-disk token store.
// An empty value makes the file store fall back to a machine-local default.
func (Store) GetStoreSecret() string {
	return GetEnv(storeKeyVar, "")
}

// GetEnv reads an environment variable, returning fallback when unset.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
