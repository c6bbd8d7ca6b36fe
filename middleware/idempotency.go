package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	config "github.com/phillip/pawshome-go/config"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255
)

// Idempotency replays the stored response when a caller repeats a request
// with the same Idempotency-Key. Requests without the header pass straight
// through. Keys are scoped to the caller, method and path, so it must run
// after AuthMiddleware.
func Idempotency(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" || cfg.Idempotency == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "idempotency key too long"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		fp := fingerprint(body)
		scope := strings.Join([]string{c.GetString("user_id"), c.Request.Method, c.Request.URL.Path, key}, " ")

		rec, reserved, err := cfg.Idempotency.Reserve(scope, fp)
		if err != nil {
			logger(cfg).Error("idempotency reserve failed", "error", err, "request_id", c.GetString(RequestIDKey))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "idempotency store unavailable"})
			return
		}
		if !reserved {
			switch {
			case rec.Fingerprint != fp:
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency key was used with a different request"})
			case !rec.Completed():
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this idempotency key is still in progress"})
			default:
				c.Header(ReplayedHeader, "true")
				c.Data(rec.Status, rec.ContentType, rec.Body)
				c.Abort()
			}
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w

		defer func() {
			if r := recover(); r != nil {
				if err := cfg.Idempotency.Release(scope); err != nil {
					logger(cfg).Error("idempotency release failed", "error", err, "request_id", c.GetString(RequestIDKey))
				}
				panic(r)
			}
		}()

		c.Next()

		// server errors are not remembered so the client can retry
		if w.Status() >= http.StatusInternalServerError {
			err = cfg.Idempotency.Release(scope)
		} else {
			err = cfg.Idempotency.Complete(scope, w.Status(), w.Header().Get("Content-Type"), w.body.Bytes())
		}
		if err != nil {
			logger(cfg).Error("idempotency finalize failed", "error", err, "request_id", c.GetString(RequestIDKey))
		}
	}
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
