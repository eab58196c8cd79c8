// Package util holds small helpers shared by the logging paths.
package util

import (
	"net/url"
	"strings"
)

// MaskSecret keeps only the edges of a credential so it can appear in logs.
func MaskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	switch n := len(secret); {
	case n == 0:
		return ""
	case n > 8:
		return secret[:4] + "..." + secret[n-4:]
	case n > 4:
		return secret[:2] + "..." + secret[n-2:]
	default:
		return "***"
	}
}

// MaskQuery masks credential-looking parameters in a raw query string and
// leaves the rest untouched.
func MaskQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	for i, part := range parts {
		name, value, _ := strings.Cut(part, "=")
		decoded, err := url.QueryUnescape(name)
		if err != nil {
			decoded = name
		}
		if !sensitiveParam(decoded) {
			continue
		}
		plain, err := url.QueryUnescape(value)
		if err != nil {
			plain = value
		}
		parts[i] = name + "=" + url.QueryEscape(MaskSecret(plain))
	}
	return strings.Join(parts, "&")
}

func sensitiveParam(name string) bool {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), "[]")
	if name == "" {
		return false
	}
	if name == "key" || name == "code" {
		return true
	}
	for _, marker := range []string{"token", "secret", "password", "api-key", "api_key", "apikey"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
