package config

import "strings"

type Cors struct {
	Origins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	MaxAge  string   `env:"CORS_MAX_AGE" envDefault:"86400"`
}

var _ CorsConfig = Cors{}

// AllowedOrigins is the set of browser origins permitted to call the API. "*" admits any origin without credentials.
type AllowedOrigins map[string]struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

// Match returns the Access-Control-Allow-Origin value for origin and whether cookies may be sent.
// An empty result means the origin is refused.
func (a AllowedOrigins) Match(origin string) (allow string, credentials bool) {
	switch {
	case origin == "":
		return "", false
	case a.IsAllowedOrigin(origin):
		return origin, true
	case a.IsAllowedOrigin("*"):
		return "*", false
	}
	return "", false
}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	origins := make(AllowedOrigins, len(c.Origins))
	for _, o := range c.Origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins[o] = struct{}{}
		}
	}
	return origins
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, PATCH, DELETE, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}

func (c Cors) GetCorsMaxAge() string {
	return c.MaxAge
}
