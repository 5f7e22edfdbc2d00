package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func clearAuthEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SENTIENT_ADMIN_USER", "SENTIENT_ADMIN_PASS",
		"SENTIENT_EDITOR_USER", "SENTIENT_EDITOR_PASS",
	} {
		t.Setenv(key, "")
		t.Setenv(key+"_FILE", "")
	}
}

func withCredentials(t *testing.T) {
	t.Helper()
	clearAuthEnv(t)
	t.Setenv("SENTIENT_ADMIN_USER", "admin")
	t.Setenv("SENTIENT_ADMIN_PASS", "secret")
	t.Setenv("SENTIENT_EDITOR_USER", "editor")
	t.Setenv("SENTIENT_EDITOR_PASS", "edsecret")
	if err := InitAuth(); err != nil {
		t.Fatalf("InitAuth: %v", err)
	}
	t.Cleanup(func() { auth = nil })
}

func okHandler(called *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}
}

func TestAuthDisabledWhenNoEnvVars(t *testing.T) {
	clearAuthEnv(t)
	if err := InitAuth(); err != nil {
		t.Fatalf("InitAuth: %v", err)
	}
	defer func() { auth = nil }()

	if IsAuthEnabled() {
		t.Error("auth should be disabled when no env vars are set")
	}

	called := false
	req := httptest.NewRequest("POST", "/intents", nil)
	w := httptest.NewRecorder()
	RequireAdmin(okHandler(&called))(w, req)

	if !called || w.Code != http.StatusOK {
		t.Errorf("handler should run when auth is disabled, got %d", w.Code)
	}
}

func TestEditorAloneDoesNotEnableAuth(t *testing.T) {
	clearAuthEnv(t)
	t.Setenv("SENTIENT_EDITOR_USER", "editor")
	t.Setenv("SENTIENT_EDITOR_PASS", "edsecret")
	if err := InitAuth(); err != nil {
		t.Fatalf("InitAuth: %v", err)
	}
	defer func() { auth = nil }()

	if IsAuthEnabled() {
		t.Error("auth needs admin credentials to be enabled")
	}
}

func TestAuthFromFiles(t *testing.T) {
	clearAuthEnv(t)
	dir := t.TempDir()
	userFile := filepath.Join(dir, "user")
	passFile := filepath.Join(dir, "pass")
	if err := os.WriteFile(userFile, []byte("admin\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(passFile, []byte("filesecret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENTIENT_ADMIN_USER_FILE", userFile)
	t.Setenv("SENTIENT_ADMIN_PASS_FILE", passFile)

	if err := InitAuth(); err != nil {
		t.Fatalf("InitAuth: %v", err)
	}
	defer func() { auth = nil }()

	req := httptest.NewRequest("GET", "/test", nil)
	req.SetBasicAuth("admin", "filesecret")
	if authenticate(req) != RoleAdmin {
		t.Error("expected admin from file-based credentials")
	}
}

func TestRoleChecks(t *testing.T) {
	withCredentials(t)

	tests := []struct {
		name       string
		wrap       func(http.HandlerFunc) http.HandlerFunc
		user, pass string
		wantCode   int
	}{
		{"any role, no credentials", RequireAnyRole, "", "", http.StatusUnauthorized},
		{"any role, admin", RequireAnyRole, "admin", "secret", http.StatusOK},
		{"any role, editor", RequireAnyRole, "editor", "edsecret", http.StatusOK},
		{"any role, wrong password", RequireAnyRole, "admin", "wrong", http.StatusUnauthorized},
		{"admin only, admin", RequireAdmin, "admin", "secret", http.StatusOK},
		{"admin only, editor", RequireAdmin, "editor", "edsecret", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest("POST", "/intents", nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			w := httptest.NewRecorder()

			tt.wrap(okHandler(&called))(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, w.Code)
			}
			if called != (tt.wantCode == http.StatusOK) {
				t.Errorf("handler called=%v with status %d", called, w.Code)
			}
			if tt.wantCode == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}
}

func TestSecureCompare(t *testing.T) {
	if !secureCompare("test", "test") {
		t.Error("identical strings should match")
	}
	if secureCompare("test", "Test") {
		t.Error("different case should not match")
	}
	if secureCompare("", "test") {
		t.Error("empty vs non-empty should not match")
	}
}

func TestAuthRejectsHalfConfiguredPair(t *testing.T) {
	clearAuthEnv(t)
	t.Setenv("SENTIENT_ADMIN_USER", "admin")
	defer func() { auth = nil }()

	if err := InitAuth(); err == nil {
		t.Error("expected an error when the admin password is missing")
	}
}
