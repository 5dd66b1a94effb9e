package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns a bcrypt hash. Costs outside bcrypt's supported
// range are clamped so a misconfigured BCRYPT_COST degrades the work factor
// instead of breaking registration.
func HashPassword(plain string, cost int) (string, error) {
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.DefaultCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash. The
// comparison is constant-time inside bcrypt.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
