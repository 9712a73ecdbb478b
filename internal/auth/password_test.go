package auth

import "testing"

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("MyPassword123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "MyPassword123" {
		t.Error("hash equals plaintext")
	}

	if _, err := HashPassword(""); err == nil {
		t.Error("empty password should be rejected")
	}

	// Same password hashes differently each time (random salt).
	hash2, err := HashPassword("MyPassword123")
	if err != nil {
		t.Fatalf("second hash: %v", err)
	}
	if hash == hash2 {
		t.Error("expected distinct hashes for the same password")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("TestPass456")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if !VerifyPassword("TestPass456", hash) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("WrongPass", hash) {
		t.Error("wrong password accepted")
	}
	if VerifyPassword("", hash) {
		t.Error("empty password accepted")
	}
}
