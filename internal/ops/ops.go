package ops

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/bssh/internal/errors"
)

// Limits for list-style operations.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500
	StatsRecentLimit    = 10
	MaxPort             = 65535
)

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewID returns a fresh ULID for records created outside this package.
func NewID() (string, error) {
	id, err := generateULID()
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return id, nil
}

// cleanOptionalString trims s and maps blank values to nil.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// validateName rejects blank names and names that would be ambiguous on the
// command line.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.NewInvalidRequest("name is required")
	}
	if strings.ContainsAny(name, "\n\r\t") {
		return "", errors.NewInvalidRequest("name must not contain control whitespace")
	}
	return name, nil
}

func validateHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", errors.NewInvalidRequest("host is required")
	}
	if strings.ContainsAny(host, " \t\n\r") {
		return "", errors.NewInvalidRequest("host must not contain whitespace")
	}
	return host, nil
}

func validatePort(port int) error {
	if port < 1 || port > MaxPort {
		return errors.NewInvalidRequest("port must be between 1 and 65535")
	}
	return nil
}
