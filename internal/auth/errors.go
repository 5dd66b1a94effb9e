package auth

import "errors"

// Expected failure modes of the token lifecycle. Callers map these to HTTP
// statuses with errors.Is; anything not in this list is an infrastructure
// fault and must surface as a 500, never as an auth failure.
var (
	// ErrUserDisabled is returned when the account exists but is disabled.
	ErrUserDisabled = errors.New("account disabled")
	// ErrAccessInvalid means the access token failed signature or shape checks.
	ErrAccessInvalid = errors.New("invalid access token")
	// ErrAccessExpired means the access token was valid but is past its expiry.
	ErrAccessExpired = errors.New("access token expired")
	// ErrRefreshMissing means no refresh token was presented at all.
	ErrRefreshMissing = errors.New("refresh token missing")
	// ErrRefreshInvalid means the refresh token failed signature or shape checks.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshExpired means the refresh token is past its own expiry.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrTokenRevoked means the refresh token embeds a stale token version;
	// the user logged out (or was force-revoked) after it was minted.
	ErrTokenRevoked = errors.New("refresh token revoked")
	// ErrUserInactive means the subject no longer resolves to an active user.
	ErrUserInactive = errors.New("account missing or inactive")
)
