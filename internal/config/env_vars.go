package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	envVar            = "ENV"
	baseDomainVar     = "BASE_DOMAIN"
	logLevelVar       = "LOG_LEVEL"
	storeDSNVar       = "STORE_DSN"
	seedAdminEmailVar = "SEED_ADMIN_EMAIL"
	seedAdminPassVar  = "SEED_ADMIN_PASSWORD"
	trustProxyVar     = "TRUST_PROXY_HEADERS"
	configFileVar     = "CONFIG_FILE"
)

// fileValues holds settings read from the optional YAML file. Process env always wins.
var (
	fileValues   = map[string]string{}
	fileValuesMu sync.RWMutex
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

// Load reads a .env file from the working directory when present, then the YAML file
// named by CONFIG_FILE. The YAML file is a flat map keyed by env var name:
//
//	JWT_SECRET: change-me
//	LOGIN_MAX_ATTEMPTS: 5
func Load() error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("config.Load godotenv: %w", err)
		}
	}
	if path := os.Getenv(configFileVar); path != "" {
		if err := LoadFile(path); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile merges the YAML file at path into the file-backed settings.
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config.LoadFile read %s: %w", path, err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("config.LoadFile parse %s: %w", path, err)
	}

	fileValuesMu.Lock()
	defer fileValuesMu.Unlock()
	for k, v := range values {
		fileValues[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return nil
}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "MasApp")
}

func (EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv(envVar, "DEV"))
}

// GetBaseDomain is the host that restaurant subdomains hang off, e.g. "masapp.com"
// so that "kebab-house.masapp.com" resolves to the restaurant with subdomain "kebab-house".
func (EnvVars) GetBaseDomain() string {
	return GetEnv(baseDomainVar, "localhost")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetStoreDSN selects the shared Postgres store. Empty means process memory.
func (EnvVars) GetStoreDSN() string {
	return GetEnv(storeDSNVar, "")
}

func (EnvVars) GetSeedAdminEmail() string {
	return GetEnv(seedAdminEmailVar, "admin@masapp.com")
}

func (EnvVars) GetSeedAdminPassword() string {
	return GetEnv(seedAdminPassVar, "")
}

func (EnvVars) GetTrustProxyHeaders() bool {
	return GetBool(trustProxyVar, false)
}

func GetEnv(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	fileValuesMu.RLock()
	defer fileValuesMu.RUnlock()
	if value, ok := fileValues[envVar]; ok && value != "" {
		return value
	}
	return defaultValue
}

func GetInt(envVar string, defaultValue int) int {
	v, err := strconv.Atoi(GetEnv(envVar, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func GetBool(envVar string, defaultValue bool) bool {
	v, err := strconv.ParseBool(GetEnv(envVar, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// GetDuration parses Go duration strings such as "15m" or "168h".
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(envVar, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
