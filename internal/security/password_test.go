package security

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

func TestCheckPasswordPlaintext(t *testing.T) {
	if !CheckPassword("hunter2", "hunter2") {
		t.Fatalf("expected plaintext match")
	}
	if CheckPassword("hunter2", "hunter3") {
		t.Fatalf("expected plaintext mismatch")
	}
	if CheckPassword("", "") {
		t.Fatalf("expected empty password to fail")
	}
}

func TestCheckPasswordBcrypt(t *testing.T) {
	hash, errHash := bcrypt.GenerateFromPassword([]byte("grace"), bcrypt.MinCost)
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	if !CheckPassword(string(hash), "grace") {
		t.Fatalf("expected bcrypt match")
	}
	if CheckPassword(string(hash), "mercy") {
		t.Fatalf("expected bcrypt mismatch")
	}
	if CheckPassword(string(hash), string(hash)) {
		t.Fatalf("hash must not match itself as plaintext")
	}
}

func TestCheckTOTP(t *testing.T) {
	key, errGenerate := totp.Generate(totp.GenerateOpts{Issuer: "ministry", AccountName: "pastor"})
	if errGenerate != nil {
		t.Fatalf("generate key: %v", errGenerate)
	}
	code, errCode := GenerateTOTPCode(key.Secret(), time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	if !CheckTOTP(key.Secret(), code) {
		t.Fatalf("expected current code to validate")
	}
	if CheckTOTP(key.Secret(), "") {
		t.Fatalf("expected missing code to fail when secret is set")
	}
	if !CheckTOTP("", "") {
		t.Fatalf("expected no second factor when secret is empty")
	}
}

func TestGenerateRandomString(t *testing.T) {
	for _, length := range []int{1, 7, 8, 32} {
		value, errGenerate := GenerateRandomString(length)
		if errGenerate != nil {
			t.Fatalf("generate %d: %v", length, errGenerate)
		}
		if len(value) != length {
			t.Fatalf("expected length %d, got %d", length, len(value))
		}
	}
	if _, errGenerate := GenerateRandomString(0); errGenerate == nil {
		t.Fatalf("expected error for zero length")
	}
}
