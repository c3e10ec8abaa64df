package auth

// TokenVerifier defines the interface for resolving a bearer credential
// to a caller identity. This abstraction keeps the HTTP layer independent
// of the token format, so a hosted identity provider (opaque tokens,
// remote introspection, etc.) can replace local JWT verification without
// touching the handlers.
type TokenVerifier interface {
	// Verify validates the raw token string and returns the claims it
	// carries. Returns an error if the token is invalid or expired.
	Verify(token string) (*Claims, error)
}
