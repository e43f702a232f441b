package kdf

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func TestFromSHA256(t *testing.T) {
	// sha256("password") = 5e884898da28047151d0e56f8dc62927...
	want, _ := hex.DecodeString("5e884898da28047151d0e56f8dc62927")
	got := FromSHA256([]byte("password"))
	if !bytes.Equal(got, want) {
		t.Errorf("FromSHA256() = %x, want %x", got, want)
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name    string
		alg     Algorithm
		pass    string
		salt    string
		wantErr error
	}{
		{"sha256", SHA256, "password", "", nil},
		{"default algorithm", "", "password", "", nil},
		{"argon2id", Argon2ID, "password", "pointerd-salt", nil},
		{"argon2id short salt", Argon2ID, "password", "abc", ErrSaltTooShort},
		{"empty password", SHA256, "", "", ErrEmptyPassword},
		{"unknown", "scrypt", "password", "", ErrUnknownAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := Derive(tt.alg, []byte(tt.pass), []byte(tt.salt))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Derive() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Derive() error = %v", err)
			}
			if len(key) != KeyLength {
				t.Errorf("len(Derive()) = %d, want %d", len(key), KeyLength)
			}
		})
	}
}

func TestFromArgon2ID_Deterministic(t *testing.T) {
	a, err := FromArgon2ID([]byte("password"), []byte("saltsalt"))
	if err != nil {
		t.Fatalf("FromArgon2ID() error = %v", err)
	}
	b, _ := FromArgon2ID([]byte("password"), []byte("saltsalt"))
	c, _ := FromArgon2ID([]byte("password"), []byte("saltsalu"))

	if !bytes.Equal(a, b) {
		t.Error("FromArgon2ID() not deterministic")
	}
	if bytes.Equal(a, c) {
		t.Error("FromArgon2ID() ignores the salt")
	}
	if bytes.Equal(a, FromSHA256([]byte("password"))) {
		t.Error("argon2id and sha256 keys should differ")
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", SHA256, false},
		{"sha256", SHA256, false},
		{" ARGON2ID ", Argon2ID, false},
		{"md5", "", true},
	}

	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseHexKey(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantLen int
		wantErr bool
	}{
		{"aes-128", "000102030405060708090a0b0c0d0e0f", 16, false},
		{"aes-192", "000102030405060708090a0b0c0d0e0f1011121314151617", 24, false},
		{"aes-256", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", 32, false},
		{"bad length", "0001", 0, true},
		{"bad hex", "zz0102030405060708090a0b0c0d0e0f", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseHexKey(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHexKey) {
					t.Fatalf("ParseHexKey() error = %v, want ErrInvalidHexKey", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHexKey() error = %v", err)
			}
			if len(key) != tt.wantLen {
				t.Errorf("len(ParseHexKey()) = %d, want %d", len(key), tt.wantLen)
			}
		})
	}
}

func TestZeroKey(t *testing.T) {
	key := []byte{1, 2, 3}
	ZeroKey(key)
	if !bytes.Equal(key, []byte{0, 0, 0}) {
		t.Errorf("ZeroKey() left %v", key)
	}
}
