package auth

import (
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// User represents a credential record. The password hash is opaque to every
// layer above the store and is never logged or returned to callers.
type User struct {
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Roles recognised by the platform, one per dashboard domain.
const (
	RoleAdmin = "admin"
	RoleCyber = "cyber"
	RoleData  = "data"
	RoleIT    = "it"
)

// AllowedRoles lists every valid role.
func AllowedRoles() []string {
	return []string{RoleAdmin, RoleCyber, RoleData, RoleIT}
}

// ValidRole reports whether role belongs to the fixed allowed set.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCyber, RoleData, RoleIT:
		return true
	}
	return false
}

const (
	usernameMinLen = 3
	usernameMaxLen = 20
	passwordMinLen = 6
	passwordMaxLen = 50
)

// NormalizeUsername applies NFC normalization so visually identical
// usernames compare equal before the uniqueness check.
func NormalizeUsername(username string) string {
	return norm.NFC.String(username)
}

// ValidUsername reports whether username is 3-20 alphanumeric characters.
func ValidUsername(username string) bool {
	runes := []rune(username)
	if len(runes) < usernameMinLen || len(runes) > usernameMaxLen {
		return false
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ValidPassword reports whether the password length is within bounds.
func ValidPassword(password string) bool {
	n := len([]rune(password))
	return n >= passwordMinLen && n <= passwordMaxLen
}
