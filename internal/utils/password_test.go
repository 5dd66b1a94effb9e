package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !VerifyPassword(hash, "correct horse") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "wrong horse") {
		t.Fatal("wrong password accepted")
	}
}

// Costs below bcrypt's minimum must clamp to the default work factor, not
// fail or silently hash with a weak one.
func TestHashPasswordClampsLowCost(t *testing.T) {
	for _, cost := range []int{-1, 0, bcrypt.MinCost - 1} {
		hash, err := HashPassword("pw", cost)
		if err != nil {
			t.Fatalf("cost %d: HashPassword failed: %v", cost, err)
		}
		if !VerifyPassword(hash, "pw") {
			t.Fatalf("cost %d: hash does not verify", cost)
		}
		if c, err := bcrypt.Cost([]byte(hash)); err != nil || c != bcrypt.DefaultCost {
			t.Fatalf("cost %d: hashed at %d (err %v), want DefaultCost", cost, c, err)
		}
	}
}
