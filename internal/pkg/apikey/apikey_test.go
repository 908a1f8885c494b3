package apikey_test

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/loyaltyhub/loyalty-api/internal/pkg/apikey"
)

func TestVerifier(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	v, err := apikey.NewVerifier(string(hash))
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	if !v.Verify("s3cret") {
		t.Fatal("expected key to verify")
	}
	if !v.Verify("s3cret") {
		t.Fatal("expected cached key to verify")
	}
	if v.Verify("wrong") {
		t.Fatal("expected wrong key to be rejected")
	}
	if v.Verify("") {
		t.Fatal("expected empty key to be rejected")
	}
}

func TestNewVerifierRejectsBadHash(t *testing.T) {
	if _, err := apikey.NewVerifier(""); err != apikey.ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := apikey.NewVerifier("not-a-bcrypt-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}
