package bookingref

import (
	"crypto/rand"
)

// Length of a booking reference. References are human-shareable, so they
// stay short, uppercase and digit-only.
const Length = 10

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// New returns a random booking reference of Length characters drawn from
// uppercase letters and digits. Uniqueness is enforced by the database;
// callers retry on conflict.
func New() (string, error) {
	code := make([]byte, Length)
	if _, err := rand.Read(code); err != nil {
		return "", err
	}
	for i := range code {
		code[i] = charset[int(code[i])%len(charset)]
	}
	return string(code), nil
}
