package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// AdminKeyRecord is the persisted shape of an admin key, as looked up by
// its prefix.
type AdminKeyRecord struct {
	ID     string
	Prefix string
	Hash   []byte
	Active bool
}

// AdminKeyLookup resolves an admin key record by its lookup prefix.
// Implementations should return ErrAdminKeyNotFound when no record matches.
type AdminKeyLookup interface {
	FindByPrefix(ctx context.Context, prefix string) (*AdminKeyRecord, error)
}

// ErrAdminKeyNotFound is returned by AdminKeyLookup when no key matches a prefix.
var ErrAdminKeyNotFound = errors.New("admin key not found")

type adminContextKey string

const adminKeyIDKey adminContextKey = "admin_key_id"

// AdminKeyIDFromContext returns the ID of the admin key that authenticated
// the current request, if any.
func AdminKeyIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(adminKeyIDKey).(string); ok {
		return v
	}
	return ""
}

// RequireAdminKey authenticates requests with a bearer admin key, rate
// limiting failed attempts per client IP via limiter.
func RequireAdminKey(lookup AdminKeyLookup, limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)

			if limiter != nil {
				result, err := limiter.Check(ctx, ip)
				if err != nil {
					logger.Error("admin rate limit check failed", "error", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				if !result.Allowed {
					w.Header().Set("Retry-After", result.RetryAt.UTC().Format(http.TimeFormat))
					http.Error(w, "too many attempts", http.StatusTooManyRequests)
					return
				}
			}

			raw := bearerToken(r)
			if raw == "" {
				recordFailure(ctx, limiter, ip)
				http.Error(w, "missing admin key", http.StatusUnauthorized)
				return
			}

			rec, err := lookup.FindByPrefix(ctx, AdminKeyPrefix(raw))
			if err != nil || rec == nil || !rec.Active {
				if err != nil && !errors.Is(err, ErrAdminKeyNotFound) {
					logger.Error("admin key lookup failed", "error", err)
				}
				recordFailure(ctx, limiter, ip)
				http.Error(w, "invalid admin key", http.StatusUnauthorized)
				return
			}

			if !VerifyAdminKey(raw, rec.Hash) {
				recordFailure(ctx, limiter, ip)
				http.Error(w, "invalid admin key", http.StatusUnauthorized)
				return
			}

			if limiter != nil {
				_ = limiter.Reset(ctx, ip)
			}

			ctx = context.WithValue(ctx, adminKeyIDKey, rec.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func recordFailure(ctx context.Context, limiter *RateLimiter, ip string) {
	if limiter == nil {
		return
	}
	_ = limiter.Record(ctx, ip)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		return host[:idx]
	}
	return host
}
