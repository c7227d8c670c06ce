package cips

import "testing"

func TestHashPassword_GeneratesTwoCharSalt(t *testing.T) {
	hash, err := HashPassword("hunter2", "")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if len(hash) < saltLen {
		t.Fatalf("hash %q shorter than salt", hash)
	}
	salt := hash[:saltLen]
	for _, c := range []byte(salt) {
		if !isSaltChar(c) {
			t.Errorf("salt byte %q not in salt alphabet", c)
		}
	}
}

func TestHashPassword_Deterministic(t *testing.T) {
	h1, err := HashPassword("hunter2", "ab")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("hunter2", "ab")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 != h2 {
		t.Errorf("same password+salt produced different hashes: %q vs %q", h1, h2)
	}
	if h1[:saltLen] != "ab" {
		t.Errorf("hash %q does not begin with supplied salt", h1)
	}
}

func TestVerifyPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", "")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Error("VerifyPassword should succeed for the correct password")
	}

	ok, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Error("VerifyPassword should fail for the wrong password")
	}
}

func TestVerifyPassword_RejectsShortHash(t *testing.T) {
	if _, err := VerifyPassword("x", "a"); err == nil {
		t.Error("expected an error for a too-short stored hash")
	}
}
