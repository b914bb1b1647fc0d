package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Social login
	RouteAuthProvider         = "/auth/{provider}"
	RouteAuthProviderCallback = "/auth/{provider}/callback"
	RouteAuthRefreshToken     = "/auth/refresh-token"

	// Current user
	RouteUsersMe     = "/users/me"
	RouteUsersLogout = "/users/logout"

	// Other users
	RouteProfile = "/profile/{userId}"

	// Realtime relay
	RouteChat = "/chat"

	// Liveness
	RouteUp = "/up"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)
