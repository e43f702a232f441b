package domain

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateSessionID(t *testing.T) {
	id, err := GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID() error = %v", err)
	}
	if !strings.HasPrefix(id, SessionIDPrefix) {
		t.Errorf("GenerateSessionID() = %q, missing prefix %q", id, SessionIDPrefix)
	}
	if len(id) != 29 {
		t.Errorf("len(GenerateSessionID()) = %d, want 29", len(id))
	}
	if id != strings.ToLower(id) {
		t.Errorf("GenerateSessionID() = %q, want lowercase", id)
	}
	if !IsValidSessionID(id) {
		t.Errorf("IsValidSessionID(%q) = false", id)
	}

	other, _ := GenerateSessionID()
	if other == id {
		t.Error("GenerateSessionID() returned duplicate IDs")
	}
}

func TestIsValidSessionID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"pd-01arz3ndektsv4rrffq69g5fav", true},
		{"PD-01ARZ3NDEKTSV4RRFFQ69G5FAV", true},
		{"xx-01arz3ndektsv4rrffq69g5fav", false},
		{"pd-01arz3ndektsv4rrffq69g5fa", false},
		{"pd-01arz3ndektsv4rrffq69g5fa!", false},
		{"pd-01arz3ndektsv4rrffq69g5fau", false},
		{"pd-81arz3ndektsv4rrffq69g5fav", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidSessionID(tt.id); got != tt.want {
			t.Errorf("IsValidSessionID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestSessionIDTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id, err := GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID() error = %v", err)
	}

	ts, ok := SessionIDTime(id)
	if !ok {
		t.Fatalf("SessionIDTime(%q) ok = false", id)
	}
	if ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Errorf("SessionIDTime() = %v, outside generation window", ts)
	}

	if _, ok := SessionIDTime("bogus"); ok {
		t.Error("SessionIDTime(bogus) ok = true")
	}
}
