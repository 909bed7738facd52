package auth

import (
	"testing"
	"time"
)

func TestNewAccessToken_ParseAndInspect(t *testing.T) {
	tok, err := NewAccessToken("7", "admin@example.com", "ADMIN", "secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := Parse(tok, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "7" || claims.Role != "ADMIN" || claims.Subject != "admin@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := Parse(tok, "other-secret"); err == nil {
		t.Fatal("expected signature mismatch to fail")
	}

	inspected, err := Inspect(tok)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if inspected.Role != "ADMIN" {
		t.Fatalf("inspect returned %+v", inspected)
	}

	exp := ExpiresAt(tok)
	if exp.Before(time.Now().Add(59*time.Minute)) || exp.After(time.Now().Add(61*time.Minute)) {
		t.Fatalf("unexpected expiry %v", exp)
	}
}

func TestParse_Expired(t *testing.T) {
	tok, err := NewAccessToken("1", "user@example.com", "CUSTOMER", "secret", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(tok, "secret"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
	if _, err := Inspect(tok); err != nil {
		t.Fatalf("inspect must not validate expiry: %v", err)
	}
}

func TestExpiresAt_Opaque(t *testing.T) {
	if !ExpiresAt("not-a-jwt").IsZero() {
		t.Fatal("expected zero time for opaque token")
	}
}
