// Package middleware holds the access control used by the watch API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Keys are the API keys accepted by the watch API. Public keys may read
// results; admin keys may also trigger checks.
type Keys struct {
	Public []string
	Admin  []string
}

type role int

const (
	roleNone role = iota
	rolePublic
	roleAdmin
)

// roleOf reports the strongest role the presented key grants.
func (k Keys) roleOf(key string) role {
	if key == "" {
		return roleNone
	}
	if matches(key, k.Admin) {
		return roleAdmin
	}
	if matches(key, k.Public) {
		return rolePublic
	}
	return roleNone
}

// matches compares against every key so the timing does not depend on
// which one matched.
func matches(key string, set []string) bool {
	hit := 0
	for _, k := range set {
		hit |= subtle.ConstantTimeCompare([]byte(k), []byte(key))
	}
	return hit == 1
}

func presentedKey(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// require rejects requests whose key grants less than min. It is a no-op
// when guarded is false.
func require(keys Keys, min role, guarded bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !guarded {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := presentedKey(r)
			switch {
			case keys.roleOf(key) >= min:
				next.ServeHTTP(w, r)
			case key == "":
				w.Header().Set("WWW-Authenticate", `Bearer realm="davprobe"`)
				writeErr(w, http.StatusUnauthorized, "unauthorized")
			case min == roleAdmin:
				writeErr(w, http.StatusForbidden, "forbidden")
			default:
				writeErr(w, http.StatusUnauthorized, "unauthorized")
			}
		})
	}
}

// RequireAny allows requests that present either a public or admin key.
// With no keys configured every request passes.
func RequireAny(keys Keys) func(http.Handler) http.Handler {
	return require(keys, rolePublic, len(keys.Public) > 0 || len(keys.Admin) > 0)
}

// RequireAdmin only permits requests that present an admin key.
// With no admin keys configured every request passes.
func RequireAdmin(keys Keys) func(http.Handler) http.Handler {
	return require(keys, roleAdmin, len(keys.Admin) > 0)
}
