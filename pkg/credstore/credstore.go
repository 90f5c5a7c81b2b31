// Package credstore provides durable storage for the session credentials.
package credstore

// Fixed keys for the two persisted credentials. They are written and
// removed together except for access-token rotation on refresh.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Tokens is the persisted credential pair. Empty strings mean absent.
type Tokens struct {
	Access  string
	Refresh string
}

// Store abstracts the durable key-value storage for tokens. Implementations
// must survive process restarts except where documented otherwise.
type Store interface {
	// Tokens loads the persisted pair. Missing entries come back empty,
	// not as an error.
	Tokens() (Tokens, error)
	// SetTokens persists both credentials.
	SetTokens(tokens Tokens) error
	// SetAccessToken rotates only the access token, leaving the refresh
	// token untouched.
	SetAccessToken(access string) error
	// Clear removes both credentials. Clearing an empty store is not an error.
	Clear() error
}
