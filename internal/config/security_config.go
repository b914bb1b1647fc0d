package config

type SecurityConfig interface {
	GetRelayRequireAuth() bool
}

type Security struct {
	RelayRequireAuth bool `env:"RELAY_REQUIRE_AUTH" envDefault:"false"`
}

var _ SecurityConfig = Security{}

// GetRelayRequireAuth reports whether websocket upgrades must carry a valid access token.
func (s Security) GetRelayRequireAuth() bool {
	return s.RelayRequireAuth
}
