package config

import (
	platformenv "github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// ErrInsecureSecret is returned outside DEV when JWT_ACCESS_SECRET was left at its built-in default.
var ErrInsecureSecret = errors.New("JWT_ACCESS_SECRET must be set outside the DEV environment")

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDBPath() string
	GetHomePage() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
	GetCorsMaxAge() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
}

// New loads every configuration section from the environment.
func New() (Config, error) {
	c := mainConfig{}
	sections := map[string]any{
		"env":      &c.EnvVars,
		"cors":     &c.Cors,
		"oauth":    &c.OAuth,
		"security": &c.Security,
	}
	for name, section := range sections {
		if err := platformenv.Parse(section); err != nil {
			return nil, errors.Wrapf(err, "config.New parse %s", name)
		}
	}
	if c.GetEnv() != DevEnv && c.UsesInsecureSecret() {
		return nil, ErrInsecureSecret
	}
	return c, nil
}

// Compose builds a Config from already populated sections.
func Compose(env EnvVars, cors Cors, oauth OAuth, security Security) Config {
	return mainConfig{EnvVars: env, Cors: cors, OAuth: oauth, Security: security}
}
