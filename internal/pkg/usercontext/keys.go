package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	KeyUserContext = "USER_CONTEXT"
	KeyUserID      = "user_id"
	KeyEmail       = "email"
	KeyUsername    = "username"
)

// Authentication methods recorded on UserContext.AuthMethod.
const (
	AuthMethodSession = "session"
	AuthMethodAPIKey  = "api_key"
)
