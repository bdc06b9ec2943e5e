package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/pos-backend/api/responses"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/pos-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	orderIdempotencyTTL   = 24 * time.Hour
)

// IdempotencyHeader carries the client generated retry key.
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 255

type routeMatcher func(string) bool

type idempotencyRule struct {
	method  string
	matcher routeMatcher
	// sale marks order creating routes whose TTL follows the orders config.
	sale bool
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, matcher: matchExact("/api/orders"), sale: true},
	{method: http.MethodPost, matcher: matchExact("/api/cart/checkout"), sale: true},
	{method: http.MethodPost, matcher: matchExact("/api/auth/register")},
	{method: http.MethodPost, matcher: matchExact("/api/items")},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/items/", "/restock")},
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
	Pending     bool              `json:"pending,omitempty"`
}

// Idempotency replays the stored response when a write is retried with the same
// Idempotency-Key header and rejects reuse of a key with a different body.
// The key is reserved before the handler runs so a concurrent duplicate gets
// 409 instead of a second execution; a 5xx releases it for retry.
// Requests without the header pass through. saleTTL applies to order creating
// routes; other covered routes keep their responses for 24h.
func Idempotency(store pkgredis.IdempotencyStore, saleTTL time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, requestPath(r), saleTTL)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(idempotencyKey) > maxIdempotencyKeyLen {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			scope := buildScope(r)
			key := store.IdempotencyKey(scope, idempotencyKey)

			pending, err := encodeRecord(idempotencyRecord{Pending: true, RequestHash: requestHash})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency record"))
				return
			}
			reserved, err := store.SetNX(r.Context(), key, pending, ttl)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayStored(w, r, store, key, requestHash, logg)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			completed := false
			defer func() {
				// a panicking handler must not leave the key stuck in flight
				if !completed {
					releaseKey(r.Context(), store, key, logg)
				}
			}()
			next.ServeHTTP(rec, r)
			completed = true

			status := defaultStatus(rec.status)
			if status >= http.StatusInternalServerError {
				releaseKey(r.Context(), store, key, logg)
				return
			}

			record := idempotencyRecord{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := rec.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}

			payload, marshalErr := encodeRecord(record)
			if marshalErr != nil {
				logError(r.Context(), logg, "marshal idempotency record", marshalErr)
				releaseKey(r.Context(), store, key, logg)
				return
			}

			if setErr := store.Set(r.Context(), key, payload, ttl); setErr != nil {
				logError(r.Context(), logg, "persist idempotency record", setErr)
			}
		})
	}
}

// replayStored answers a request whose key is already reserved: the stored
// response when the first request finished, 409 while it is still running or
// when the body differs.
func replayStored(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, requestHash string, logg *logger.Logger) {
	stored, err := store.Get(r.Context(), key)
	if err != nil {
		if pkgredis.IsNil(err) {
			// released between SETNX and GET; the first attempt failed
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
			return
		}
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	record, err := decodeRecord(stored)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if record.Pending {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
		return
	}
	writeStoredResponse(w, record)
}

func releaseKey(ctx context.Context, store pkgredis.IdempotencyStore, key string, logg *logger.Logger) {
	if err := store.Del(ctx, key); err != nil {
		logError(ctx, logg, "release idempotency key", err)
	}
}

func encodeRecord(record idempotencyRecord) (string, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func buildScope(r *http.Request) string {
	parts := []string{
		UserIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}
	return strings.Join(parts, "|")
}

func decodeRecord(payload string) (*idempotencyRecord, error) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeStoredResponse(w http.ResponseWriter, record *idempotencyRecord) {
	if record == nil {
		return
	}
	if ct, ok := record.Headers["Content-Type"]; ok && ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

// requestPath is the concrete path without a trailing slash. Route patterns are
// not resolved yet while the middleware runs on a mounted subrouter.
func requestPath(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	path := r.URL.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func routeTTL(method, pattern string, saleTTL time.Duration) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.method != method || !rule.matcher(pattern) {
			continue
		}
		if !rule.sale {
			return defaultIdempotencyTTL, true
		}
		if saleTTL <= 0 {
			return orderIdempotencyTTL, true
		}
		return saleTTL, true
	}
	return 0, false
}

func matchExact(path string) routeMatcher {
	return func(pattern string) bool {
		return pattern == path
	}
}

func matchPrefixSuffix(prefix, suffix string) routeMatcher {
	return func(pattern string) bool {
		return strings.HasPrefix(pattern, prefix) && strings.HasSuffix(pattern, suffix)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
