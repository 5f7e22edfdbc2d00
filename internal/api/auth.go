package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/AaronLay10/SentientBlocks/internal/config"
)

// Role represents an authorization role.
type Role string

const (
	// RoleAdmin may do everything, including reading the persisted event log.
	RoleAdmin Role = "admin"
	// RoleEditor may edit scripts and start or stop runs.
	RoleEditor Role = "editor"
)

type credential struct {
	user string
	pass string
	role Role
}

// authConfig holds credentials loaded from environment variables.
type authConfig struct {
	creds   []credential
	enabled bool
}

var auth *authConfig

// InitAuth loads credentials from SENTIENT_ADMIN_USER/PASS and
// SENTIENT_EDITOR_USER/PASS, each also readable from a *_FILE path.
// Authentication is enabled only when admin credentials are set.
func InitAuth() error {
	vars := []struct {
		role       Role
		user, pass string
	}{
		{RoleAdmin, "SENTIENT_ADMIN_USER", "SENTIENT_ADMIN_PASS"},
		{RoleEditor, "SENTIENT_EDITOR_USER", "SENTIENT_EDITOR_PASS"},
	}

	cfg := &authConfig{}
	for _, v := range vars {
		cred, err := config.ResolveCredential(v.user, v.pass)
		if err != nil {
			return fmt.Errorf("failed to resolve %s credentials: %w", v.role, err)
		}
		if !cred.Complete() {
			continue
		}
		cfg.creds = append(cfg.creds, credential{user: cred.User, pass: cred.Password, role: v.role})
		if v.role == RoleAdmin {
			cfg.enabled = true
		}
	}

	auth = cfg
	return nil
}

// IsAuthEnabled returns true if authentication is configured.
func IsAuthEnabled() bool {
	return auth != nil && auth.enabled
}

// authenticate checks basic auth credentials and returns the role if valid.
// Returns empty string if credentials are invalid.
func authenticate(r *http.Request) Role {
	if !IsAuthEnabled() {
		return RoleAdmin // No auth configured = full access
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}

	for _, c := range auth.creds {
		if secureCompare(user, c.user) && secureCompare(pass, c.pass) {
			return c.role
		}
	}
	return ""
}

// secureCompare performs constant-time string comparison.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// requireAuth returns 401 Unauthorized with WWW-Authenticate header.
func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="Sentient Blocks"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// RequireRole wraps a handler and requires one of the specified roles.
func RequireRole(handler http.HandlerFunc, allowedRoles ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := authenticate(r)
		if role == "" {
			requireAuth(w)
			return
		}

		for _, allowed := range allowedRoles {
			if role == allowed {
				handler(w, r)
				return
			}
		}

		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// RequireAnyRole wraps a handler requiring admin OR editor role.
func RequireAnyRole(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin, RoleEditor)
}

// RequireAdmin wraps a handler requiring admin role only.
func RequireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin)
}
