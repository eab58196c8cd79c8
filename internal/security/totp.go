package security

import (
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// CheckTOTP validates a one-time code against a base32 secret. An empty secret
// means the identity has no second factor and any code is accepted.
func CheckTOTP(secret, code string) bool {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return true
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	return totp.Validate(code, secret)
}

// GenerateTOTPCode returns the current code for secret.
func GenerateTOTPCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCode(strings.TrimSpace(secret), at)
}
