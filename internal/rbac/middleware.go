package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/societyhub/societyhub/internal/shared"
)

// PermissionSource resolves the capabilities of a user in a society.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID, societyID int64) ([]string, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service PermissionSource
	Logger  *slog.Logger
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...shared.Capability) func(http.Handler) http.Handler {
	return m.require("rbac require any", normalizePermissions(perms), hasAnyPermission)
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...shared.Capability) func(http.Handler) http.Handler {
	return m.require("rbac require all", normalizePermissions(perms), hasAllPermissions)
}

// Allowed reports whether the current user holds perm. Lookup failures deny.
func (m Middleware) Allowed(r *http.Request, perm shared.Capability) bool {
	granted, ok, err := m.granted(r)
	if err != nil || !ok {
		return false
	}
	return hasAnyPermission(granted, normalizePermissions([]shared.Capability{perm}))
}

func (m Middleware) require(op string, normalized []string, check func(granted, required []string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, ok, err := m.granted(r)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error(op, slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if ok && check(granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// granted loads the caller's permissions. ok is false for anonymous requests.
func (m Middleware) granted(r *http.Request) ([]string, bool, error) {
	sess := shared.SessionFromContext(r.Context())
	userID, ok := sess.UserID()
	if !ok {
		return nil, false, nil
	}
	societyID, _ := sess.Society()
	granted, err := m.Service.EffectivePermissions(r.Context(), userID, societyID)
	if err != nil {
		return nil, false, err
	}
	return granted, true, nil
}

func normalizePermissions(perms []shared.Capability) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		s := strings.TrimSpace(strings.ToLower(string(p)))
		if s == "" {
			continue
		}
		unique[s] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
