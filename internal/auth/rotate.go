package auth

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/harborhq/harbor/internal/model"
)

// UserSource is the slice of the user store the rotator needs. Lookups that
// find nothing must return sql.ErrNoRows; any other error is treated as an
// infrastructure fault and passed through untouched.
type UserSource interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Rotator exchanges a valid refresh token for a brand-new token pair. This
// is the only place the embedded token version meets the user's current
// counter, which is what turns a logout into revocation of every refresh
// token minted before it.
type Rotator struct {
	verifier *Verifier
	issuer   *Issuer
	users    UserSource
}

func NewRotator(v *Verifier, i *Issuer, users UserSource) *Rotator {
	return &Rotator{verifier: v, issuer: i, users: users}
}

// Rotate validates the presented refresh token, re-resolves the user, checks
// the token version, and mints a fresh pair. A successful rotation does not
// invalidate the old refresh token by itself; only a version bump does.
func (r *Rotator) Rotate(ctx context.Context, refreshToken string) (model.User, TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return model.User{}, TokenPair{}, ErrRefreshMissing
	}

	claims, err := r.verifier.VerifyRefresh(refreshToken)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return model.User{}, TokenPair{}, ErrRefreshInvalid
	}

	u, err := r.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, TokenPair{}, ErrUserInactive
		}
		return model.User{}, TokenPair{}, err
	}
	if !u.IsActive {
		return model.User{}, TokenPair{}, ErrUserInactive
	}

	if claims.Version != u.TokenVersion {
		return model.User{}, TokenPair{}, ErrTokenRevoked
	}

	pair, err := r.issuer.IssuePair(u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}
