package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	tokens := NewTokenService("test-secret")

	token, expiresAt, err := tokens.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	wantExpiry := time.Now().Add(tokenTTL)
	if diff := wantExpiry.Sub(expiresAt); diff < 0 || diff > 2*time.Second {
		t.Errorf("expected expiry about 7 days out, got %v", expiresAt)
	}

	// Replaying the token resolves to the same user every time.
	for i := 0; i < 3; i++ {
		userID, err := tokens.Verify(token)
		if err != nil {
			t.Fatalf("Verify() error: %v", err)
		}
		if userID != "user-123" {
			t.Errorf("expected user-123, got %q", userID)
		}
	}
}

func TestTokenService_Expired(t *testing.T) {
	tokens := NewTokenService("test-secret")
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	token, expiresAt, err := tokens.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	tests := []struct {
		name    string
		now     time.Time
		wantErr error
	}{
		{"just issued", issued, nil},
		{"one second before expiry", expiresAt.Add(-time.Second), nil},
		{"one second after expiry", expiresAt.Add(time.Second), ErrTokenExpired},
		{"long after expiry", expiresAt.Add(30 * 24 * time.Hour), ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens.now = func() time.Time { return tt.now }
			_, err := tokens.Verify(token)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Verify() error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTokenService_Invalid(t *testing.T) {
	tokens := NewTokenService("test-secret")

	valid, _, err := tokens.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	otherSecret, _, _ := NewTokenService("other-secret").Issue("user-123")

	parts := strings.Split(valid, ".")
	forged, _, _ := NewTokenService("test-secret").Issue("admin")
	forgedParts := strings.Split(forged, ".")
	// Payload from another token spliced onto this token's signature.
	tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-123",
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong secret", otherSecret},
		{"tampered payload", tampered},
		{"alg none", unsigned},
		{"missing subject", noSubject},
		{"missing expiry", noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, err := tokens.Verify(tt.token)
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("expected ErrTokenInvalid, got %v (user %q)", err, userID)
			}
		})
	}
}
