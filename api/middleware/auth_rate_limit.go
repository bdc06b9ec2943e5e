package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/pos-backend/api/responses"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

// maxEmailPeekBytes bounds how much of an auth body is buffered to find the email.
const maxEmailPeekBytes = 16 << 10

// RateLimitStore is the counter backend used by AuthRateLimit.
type RateLimitStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AuthRateLimitPolicy throttles one auth surface (login, register) per client
// IP and per submitted email inside a fixed window.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

// NewAuthRateLimitPolicy builds a policy; a zero limit disables that dimension.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// dimension is one counter checked for a request.
type dimension struct {
	kind  string
	value string
	limit int
}

func (p AuthRateLimitPolicy) key(d dimension) string {
	return d.kind + ":" + p.name + ":" + d.value
}

// AuthRateLimit rejects requests with 429 once either counter passes its limit.
// The store failing is reported as a dependency error rather than letting the
// request through.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			dims, err := policy.dimensions(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			for _, d := range dims {
				count, err := store.IncrWithTTL(ctx, store.RateLimitKey(policy.key(d)), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(d.limit) {
					logBlocked(ctx, logg, policy, d, count)
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// dimensions lists the counters for r. Reading the email restores r.Body so
// the handler still sees the full payload.
func (p AuthRateLimitPolicy) dimensions(r *http.Request) ([]dimension, error) {
	dims := make([]dimension, 0, 2)
	if p.ipLimit > 0 {
		if ip := clientIP(r); ip != "" {
			dims = append(dims, dimension{kind: "ip", value: ip, limit: p.ipLimit})
		}
	}
	if p.emailLimit > 0 && r.Body != nil {
		head, err := io.ReadAll(io.LimitReader(r.Body, maxEmailPeekBytes))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request")
		}
		r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}
		if email := emailFromBody(head); email != "" {
			dims = append(dims, dimension{kind: "email", value: hashValue(email), limit: p.emailLimit})
		}
	}
	return dims, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func logBlocked(ctx context.Context, logg *logger.Logger, policy AuthRateLimitPolicy, d dimension, count int64) {
	if logg == nil {
		return
	}
	fields := map[string]any{
		"policy":         policy.name,
		"scope":          d.kind,
		"attempts":       count,
		"limit":          d.limit,
		"window_seconds": int(policy.window.Seconds()),
	}
	// email values are already hashed
	if d.kind == "ip" {
		fields["ip"] = d.value
	} else {
		fields["email_hash"] = d.value
	}
	logg.Warn(logg.WithFields(ctx, fields), "auth.rate_limit.blocked")
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailFromBody(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
