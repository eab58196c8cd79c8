package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single outcome for every token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Role distinguishes the two admin identities.
type Role string

const (
	// RoleSuper is the owner identity. Bulk operations require it.
	RoleSuper Role = "super"
	// RoleSite administers day to day content.
	RoleSite Role = "site"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleSuper || r == RoleSite }

// Token encodings.
const (
	TokenFormatJWT     = "jwt"
	TokenFormatCompact = "compact"
)

// allowedClockSkew bounds how far in the future an issue time may be.
const allowedClockSkew = time.Minute

// Identity is the verified content of a token.
type Identity struct {
	Subject        string `json:"sub"`
	Role           Role   `json:"role"`
	IssuedAtMillis int64  `json:"iat_ms"`
}

// tokenClaims is the JWT-shaped payload.
type tokenClaims struct {
	Role           Role  `json:"role"`
	IssuedAtMillis int64 `json:"iat_ms"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HMAC-SHA256 signed admin tokens.
type TokenCodec struct {
	secret []byte
	format string
	maxAge time.Duration
	now    func() time.Time
}

// NewTokenCodec constructs a codec. maxAge <= 0 disables the age check.
func NewTokenCodec(secret, format string, maxAge time.Duration) *TokenCodec {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != TokenFormatCompact {
		format = TokenFormatJWT
	}
	return &TokenCodec{
		secret: []byte(secret),
		format: format,
		maxAge: maxAge,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue signs a token for subject with the given role.
func (c *TokenCodec) Issue(subject string, role Role) (string, error) {
	if c == nil || len(c.secret) == 0 {
		return "", errors.New("token codec: missing secret")
	}
	if strings.TrimSpace(subject) == "" || !role.Valid() {
		return "", errors.New("token codec: subject and role are required")
	}
	issuedAt := c.now().UnixMilli()

	if c.format == TokenFormatCompact {
		payload, errMarshal := json.Marshal(Identity{Subject: subject, Role: role, IssuedAtMillis: issuedAt})
		if errMarshal != nil {
			return "", errMarshal
		}
		encoded := base64.StdEncoding.EncodeToString(payload)
		return encoded + "." + c.compactSignature(encoded), nil
	}

	claims := tokenClaims{
		Role:             role,
		IssuedAtMillis:   issuedAt,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks the token signature and returns its identity. Every failure
// returns ErrInvalidToken.
func (c *TokenCodec) Verify(token string) (Identity, error) {
	if c == nil || len(c.secret) == 0 {
		return Identity{}, ErrInvalidToken
	}
	token = strings.TrimSpace(token)
	var (
		identity Identity
		ok       bool
	)
	switch strings.Count(token, ".") {
	case 1:
		identity, ok = c.verifyCompact(token)
	case 2:
		identity, ok = c.verifyJWT(token)
	}
	if !ok || !c.acceptable(identity) {
		return Identity{}, ErrInvalidToken
	}
	return identity, nil
}

func (c *TokenCodec) verifyCompact(token string) (Identity, bool) {
	encoded, signature, found := strings.Cut(token, ".")
	if !found || encoded == "" || signature == "" {
		return Identity{}, false
	}
	expected := c.compactSignature(encoded)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return Identity{}, false
	}
	payload, errDecode := base64.StdEncoding.Strict().DecodeString(encoded)
	if errDecode != nil {
		return Identity{}, false
	}
	var identity Identity
	if errUnmarshal := json.Unmarshal(payload, &identity); errUnmarshal != nil {
		return Identity{}, false
	}
	return identity, true
}

func (c *TokenCodec) verifyJWT(token string) (Identity, bool) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithStrictDecoding())
	if err != nil || !parsed.Valid {
		return Identity{}, false
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok {
		return Identity{}, false
	}
	return Identity{Subject: claims.Subject, Role: claims.Role, IssuedAtMillis: claims.IssuedAtMillis}, true
}

// acceptable applies the payload checks shared by both encodings.
func (c *TokenCodec) acceptable(identity Identity) bool {
	if strings.TrimSpace(identity.Subject) == "" || !identity.Role.Valid() || identity.IssuedAtMillis <= 0 {
		return false
	}
	issuedAt := time.UnixMilli(identity.IssuedAtMillis)
	now := c.now()
	if issuedAt.After(now.Add(allowedClockSkew)) {
		return false
	}
	if c.maxAge > 0 && now.Sub(issuedAt) > c.maxAge {
		return false
	}
	return true
}

func (c *TokenCodec) compactSignature(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil))
}
