package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// ShortID returns the first n characters of a new UUID.
func ShortID(n int) string {
	id := uuid.New().String()
	if n <= 0 || n > len(id) {
		return id
	}
	return id[:n]
}

// MaskSecret hides the middle of a credential for display. Values of 16
// characters or fewer are returned unchanged.
func MaskSecret(secret string) string {
	if len(secret) <= 16 {
		return secret
	}
	return secret[:8] + strings.Repeat("*", len(secret)-16) + secret[len(secret)-8:]
}
