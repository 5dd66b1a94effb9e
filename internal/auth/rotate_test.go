package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/harborhq/harbor/internal/model"
)

type fakeUsers struct {
	users map[uint64]model.User
	err   error
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	if f.err != nil {
		return model.User{}, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func newTestRotator(users *fakeUsers) (*Rotator, *Issuer, *Verifier) {
	cfg := testConfig()
	issuer := NewIssuer(cfg)
	verifier := NewVerifier(cfg)
	return NewRotator(verifier, issuer, users), issuer, verifier
}

func TestRotateSuccess(t *testing.T) {
	u := testUser()
	users := &fakeUsers{users: map[uint64]model.User{u.ID: u}}
	rot, issuer, verifier := newTestRotator(users)

	pair, err := issuer.IssuePair(u)
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	got, next, err := rot.Rotate(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("user id = %d, want %d", got.ID, u.ID)
	}
	// The freshly minted access token must verify on its own.
	claims, err := verifier.VerifyAccess(next.AccessToken)
	if err != nil {
		t.Fatalf("new access token does not verify: %v", err)
	}
	if claims.Subject != "42" {
		t.Fatalf("sub = %q, want 42", claims.Subject)
	}
}

// A refresh token minted before a version bump must be rejected as revoked
// even though its signature and expiry are still fine.
func TestRotateAfterRevoke(t *testing.T) {
	u := testUser()
	users := &fakeUsers{users: map[uint64]model.User{u.ID: u}}
	rot, issuer, _ := newTestRotator(users)

	pair, err := issuer.IssuePair(u)
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	bumped := u
	bumped.TokenVersion++
	users.users[u.ID] = bumped

	if _, _, err := rot.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v, want ErrTokenRevoked", err)
	}
}

func TestRotateMissingToken(t *testing.T) {
	rot, _, _ := newTestRotator(&fakeUsers{})
	if _, _, err := rot.Rotate(context.Background(), "  "); !errors.Is(err, ErrRefreshMissing) {
		t.Fatalf("err = %v, want ErrRefreshMissing", err)
	}
}

func TestRotateGarbageToken(t *testing.T) {
	rot, _, _ := newTestRotator(&fakeUsers{})
	if _, _, err := rot.Rotate(context.Background(), "garbage"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("err = %v, want ErrRefreshInvalid", err)
	}
}

func TestRotateExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTTL = -time.Hour
	u := testUser()
	pair, err := NewIssuer(cfg).IssuePair(u)
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	rot, _, _ := newTestRotator(&fakeUsers{users: map[uint64]model.User{u.ID: u}})
	if _, _, err := rot.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrRefreshExpired) {
		t.Fatalf("err = %v, want ErrRefreshExpired", err)
	}
}

func TestRotateUserGoneOrDisabled(t *testing.T) {
	u := testUser()
	users := &fakeUsers{users: map[uint64]model.User{u.ID: u}}
	rot, issuer, _ := newTestRotator(users)

	pair, err := issuer.IssuePair(u)
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	delete(users.users, u.ID)
	if _, _, err := rot.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("gone: err = %v, want ErrUserInactive", err)
	}

	disabled := u
	disabled.IsActive = false
	users.users[u.ID] = disabled
	if _, _, err := rot.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("disabled: err = %v, want ErrUserInactive", err)
	}
}

// Store outages must not look like auth failures.
func TestRotatePassesThroughStoreErrors(t *testing.T) {
	u := testUser()
	rot, issuer, _ := newTestRotator(&fakeUsers{users: map[uint64]model.User{u.ID: u}})
	pair, err := issuer.IssuePair(u)
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	boom := errors.New("store down")
	rot.users = &fakeUsers{err: boom}
	if _, _, err := rot.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want passthrough of store error", err)
	}
}

// The reference behavior allows refresh replay: rotating does not invalidate
// the token that was just used as long as the version still matches.
func TestRotateAllowsReplayUntilRevoke(t *testing.T) {
	u := testUser()
	users := &fakeUsers{users: map[uint64]model.User{u.ID: u}}
	rot, issuer, _ := newTestRotator(users)

	pair, err := issuer.IssuePair(u)
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, _, err := rot.Rotate(context.Background(), pair.RefreshToken); err != nil {
			t.Fatalf("replay %d failed: %v", i, err)
		}
	}
}
