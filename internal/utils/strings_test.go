package utils

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"  User@Example.COM ", true},
		{"", false},
		{"user", false},
		{"user@", false},
		{"@example.com", false},
		{"a@b@example.com", false},
		{"user@localhost", false},
		{"user@.com", false},
	}
	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Admin@Example.com "); got != "admin@example.com" {
		t.Errorf("got %q", got)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" wifi, ,desk,")
	if len(got) != 2 || got[0] != "wifi" || got[1] != "desk" {
		t.Errorf("SplitList = %q", got)
	}
	if SplitList("") != nil {
		t.Error("empty input should give nil")
	}
}
