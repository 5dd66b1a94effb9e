package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates presented tokens. Both checks are O(1) and do no I/O;
// the price is that a revoked user keeps a working access token until it
// expires, which is why the access TTL stays in minutes.
type Verifier struct {
	cfg Config
}

func NewVerifier(cfg Config) *Verifier { return &Verifier{cfg: cfg} }

// VerifyAccess checks signature and expiry of an access token and returns
// its claims. Failures collapse into ErrAccessExpired or ErrAccessInvalid.
func (v *Verifier) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := v.parse(token, claims, v.cfg.AccessSecret); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessExpired
		}
		return nil, ErrAccessInvalid
	}
	return claims, nil
}

// VerifyRefresh checks signature and expiry of a refresh token. The token
// version embedded in the claims is NOT compared here; that needs the user's
// current counter and belongs to the rotator.
func (v *Verifier) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := v.parse(token, claims, v.cfg.RefreshSecret); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrRefreshExpired
		}
		return nil, ErrRefreshInvalid
	}
	return claims, nil
}

func (v *Verifier) parse(token string, claims jwt.Claims, secret []byte) error {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return err
	}
	if !tok.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}
