package application

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := CreatePasswordHash("open sesame", DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Errorf("hash = %q", hash)
	}

	if err := VerifyPassword(hash, "open sesame"); err != nil {
		t.Errorf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "close sesame"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", err)
	}
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	cases := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong algorithm", "$scrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"},
		{"missing sections", "$argon2id$v=19$m=65536,t=3,p=2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := VerifyPassword(tc.hash, "whatever"); !errors.Is(err, ErrInvalidPasswordHash) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestVerifyPasswordRejectsForeignVersion(t *testing.T) {
	hash := "$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA"
	if err := VerifyPassword(hash, "whatever"); !errors.Is(err, ErrIncompatiblePasswordVersion) {
		t.Errorf("err = %v", err)
	}
}
