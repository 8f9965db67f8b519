package config

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseDomain() string
	GetLogLevel() string
	GetStoreDSN() string
	GetSeedAdminEmail() string
	GetSeedAdminPassword() string
	GetTrustProxyHeaders() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Tokens
	Security
}

func New() Config {
	return mainConfig{}
}
