package backup

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}

	plaintext := []byte("sqlite page data goes here")
	ciphertext, err := Encrypt(plaintext, "correct horse", salt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Fatal("ciphertext contains the plaintext")
	}

	got, err := Decrypt(ciphertext, "correct horse")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("decrypted = %q, want %q", got, plaintext)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	ciphertext, err := Encrypt([]byte("secret"), "right", salt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := Decrypt(ciphertext, "wrong"); err == nil {
		t.Error("decrypt with the wrong passphrase should fail")
	}
}

func TestDecryptTruncated(t *testing.T) {
	if _, err := Decrypt([]byte("too short"), "any"); err == nil {
		t.Error("decrypt of truncated data should fail")
	}
}

func TestEncryptBadSalt(t *testing.T) {
	if _, err := Encrypt([]byte("secret"), "pass", []byte("short")); err == nil {
		t.Error("encrypt with a wrong-size salt should fail")
	}
}

func TestSaltsAreUnique(t *testing.T) {
	a, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	b, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two generated salts should differ")
	}
}
