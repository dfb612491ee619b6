package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ian1hx/equiploan-backend/api/responses"
	pkgerrors "github.com/ian1hx/equiploan-backend/pkg/errors"
	"github.com/ian1hx/equiploan-backend/pkg/logger"
	pkgredis "github.com/ian1hx/equiploan-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// guardedRoute matches against the request path. Matching the chi route
// pattern would be nicer, but a Use middleware on a subrouter runs before
// the subrouter resolves the endpoint, so the pattern is still a wildcard
// at that point; prefix/suffix rules absorb the id segment instead.
type guardedRoute struct {
	method string
	exact  string
	prefix string
	suffix string
	ttl    time.Duration
}

func (g guardedRoute) match(method, path string) bool {
	if method != g.method {
		return false
	}
	if g.exact != "" {
		return path == g.exact
	}
	return strings.HasPrefix(path, g.prefix) && strings.HasSuffix(path, g.suffix)
}

// Decision and cancel replays are the ones that can double-allocate stock,
// so they carry the long TTL.
var guardedRoutes = []guardedRoute{
	{method: http.MethodPost, exact: "/api/v1/orders", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/admin/orders/", suffix: "/decision", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/admin/orders/", suffix: "/cancel", ttl: criticalIdempotencyTTL},
}

func routeTTL(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	for _, route := range guardedRoutes {
		if route.match(method, path) {
			return route.ttl, true
		}
	}
	return 0, false
}

// storedResponse is the redis-persisted snapshot of a completed request.
// Digest ties the snapshot to the exact request body it answered.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body"`
	Digest      string `json:"digest"`
}

func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, r.URL.Path)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if key == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			digest := bodyDigest(body)
			scope := strings.Join([]string{SubjectIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
			storeKey := store.IdempotencyKey(scope, key)

			prior, err := store.Get(r.Context(), storeKey)
			if err != nil && !errors.Is(err, redis.Nil) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if prior != "" {
				replayPrior(r, w, logg, prior, digest)
				return
			}

			capture := &recordingWriter{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			snapshot := storedResponse{
				Status:      capture.statusOr(http.StatusOK),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				Digest:      digest,
			}
			payload, err := json.Marshal(snapshot)
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "marshal idempotency record", err)
				}
				return
			}
			if _, err := store.SetNX(r.Context(), storeKey, string(payload), ttl); err != nil && logg != nil {
				logg.Error(r.Context(), "persist idempotency record", err)
			}
		})
	}
}

func replayPrior(r *http.Request, w http.ResponseWriter, logg *logger.Logger, prior, digest string) {
	var snapshot storedResponse
	if err := json.Unmarshal([]byte(prior), &snapshot); err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if snapshot.Digest != digest {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if snapshot.ContentType != "" {
		w.Header().Set("Content-Type", snapshot.ContentType)
	}
	w.WriteHeader(snapshot.Status)
	if decoded, err := base64.StdEncoding.DecodeString(snapshot.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func bodyDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type recordingWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *recordingWriter) statusOr(fallback int) int {
	if r.status == 0 {
		return fallback
	}
	return r.status
}

func (r *recordingWriter) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recordingWriter) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
