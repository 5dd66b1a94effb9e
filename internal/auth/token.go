// Package auth implements the token lifecycle: minting access/refresh pairs,
// stateless verification, and refresh rotation with token-version revocation.
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/harborhq/harbor/internal/model"
)

// AccessClaims is the payload of an access token. Verification is signature
// plus expiry only; no store lookup happens on the request path.
type AccessClaims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim into the numeric user id.
func (c *AccessClaims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// RefreshClaims is the payload of a refresh token. Version pins the token to
// the user's token_version at issue time; a logout bumps the counter and
// strands every previously minted refresh token.
type RefreshClaims struct {
	Version uint64 `json:"ver"`
	jwt.RegisteredClaims
}

// TokenPair is one issuance result: a short-lived access token for the
// Authorization header and a long-lived refresh token for the cookie.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Config carries the signing material and lifetimes shared by the issuer and
// verifier. Access and refresh secrets must differ so one leaked token class
// cannot forge the other.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Issuer mints signed token pairs. Pure: it never touches the user store.
type Issuer struct {
	cfg Config
}

func NewIssuer(cfg Config) *Issuer { return &Issuer{cfg: cfg} }

// IssuePair mints an access+refresh pair for the given user snapshot.
// Disabled accounts never receive tokens.
func (i *Issuer) IssuePair(u model.User) (TokenPair, error) {
	if !u.IsActive {
		return TokenPair{}, ErrUserDisabled
	}

	now := time.Now().UTC()
	sub := strconv.FormatUint(u.ID, 10)

	accessExp := now.Add(i.cfg.AccessTTL)
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Roles: u.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}).SignedString(i.cfg.AccessSecret)
	if err != nil {
		return TokenPair{}, err
	}

	refreshExp := now.Add(i.cfg.RefreshTTL)
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		Version: u.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	}).SignedString(i.cfg.RefreshSecret)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
