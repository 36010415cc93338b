package auth

import (
	"errors"
	"testing"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := ComparePasswordAndHash("correct horse battery staple", hash); err != nil {
		t.Errorf("expected match, got %v", err)
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestComparePasswordAndHash_Mismatch(t *testing.T) {
	hash, err := HashPassword("right password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ComparePasswordAndHash("wrong password", hash); !errors.Is(err, ErrMismatchedHashAndPassword) {
		t.Errorf("expected ErrMismatchedHashAndPassword, got %v", err)
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password must differ")
	}
}
