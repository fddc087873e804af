package auth

import (
	"net/url"
	"testing"
)

func TestLoadCredentials(t *testing.T) {
	creds, err := LoadCredentials("hunter2")
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if creds.Key != "hunter2" {
		t.Errorf("Key = %q, want %q", creds.Key, "hunter2")
	}

	if _, err := LoadCredentials(""); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestCredentials_Verify(t *testing.T) {
	creds := &Credentials{Key: "hunter2"}

	tests := []struct {
		name      string
		presented string
		want      bool
	}{
		{"match", "hunter2", true},
		{"mismatch", "hunter3", false},
		{"prefix", "hunter", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := creds.Verify(tt.presented); got != tt.want {
				t.Errorf("Verify(%q) = %v, want %v", tt.presented, got, tt.want)
			}
		})
	}
}

func TestCredentials_VerifyUnset(t *testing.T) {
	var creds *Credentials
	if creds.Verify("") {
		t.Error("nil credentials should reject everything")
	}
	if (&Credentials{}).Verify("") {
		t.Error("empty key should reject everything")
	}
}

func TestCredentials_SignURL(t *testing.T) {
	creds := &Credentials{Key: "a b&c"}

	u, _ := url.Parse("http://localhost:3000/last/a?x=1")
	creds.SignURL(u)

	if got := u.Query().Get(QueryParam); got != "a b&c" {
		t.Errorf("key = %q, want %q", got, "a b&c")
	}
	if got := u.Query().Get("x"); got != "1" {
		t.Errorf("x = %q, want %q", got, "1")
	}

	var none *Credentials
	u2, _ := url.Parse("http://localhost/last/a")
	none.SignURL(u2)
	if u2.RawQuery != "" {
		t.Errorf("RawQuery = %q, want empty", u2.RawQuery)
	}
}
