package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for stored credentials.
const DefaultCost = 12

type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: failed to hash password: %v", ErrCredential, err)
	}
	return string(hashedBytes), nil
}

// Verify reports whether password matches the stored hash. The comparison is
// constant-time.
func (h *PasswordHasher) Verify(hashedPassword, password string) bool {
	return CheckPassword(hashedPassword, password) == nil
}

func HashPassword(password string) (string, error) {
	return NewPasswordHasher(DefaultCost).Hash(password)
}

func CheckPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
