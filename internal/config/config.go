package config

import "github.com/spf13/viper"

type Config interface {
	EnvConfig
	CorsConfig
	SecurityConfig
	ProviderConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetLogLevel() string
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpPassword() string
	GetSmtpAccount() string
	GetSmtpSender() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Security
	Provider
	Store
}

// New builds a Config over an already populated viper instance.
func New(v *viper.Viper) Config {
	s := settings{v: v}
	return mainConfig{
		EnvVars:  EnvVars{s},
		Cors:     Cors{s},
		Security: Security{s},
		Provider: Provider{s},
		Store:    Store{s},
	}
}

// settings is the shared lookup used by every config section.
type settings struct {
	v *viper.Viper
}

func (s settings) get(key, defaultValue string) string {
	if s.v == nil {
		return defaultValue
	}
	value := s.v.GetString(key)
	if value == "" {
		return defaultValue
	}
	return value
}
