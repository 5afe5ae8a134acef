package users

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return errors.New("username must be 3-32 characters of letters, digits, '_', '.', or '-'")
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return errors.New("invalid email address")
	}
	return nil
}

// ValidateRole parses a role string, rejecting unknown values.
func ValidateRole(s string) (models.Role, error) {
	switch s {
	case "admin", "manager", "viewer":
		return models.Role(s), nil
	default:
		return "", fmt.Errorf("role must be 'admin', 'manager', or 'viewer'")
	}
}
