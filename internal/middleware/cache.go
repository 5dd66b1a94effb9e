package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/harborhq/harbor/internal/config"
)

// bodyRecorder forwards writes to the client while keeping a bounded copy
// for the cache.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
}

func (w *bodyRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	switch {
	case w.limit < 0:
		// oversized, recording abandoned
	case w.buf.Len()+len(b) <= w.limit:
		w.buf.Write(b)
	default:
		w.limit = -1 // oversized, never store
		w.buf.Reset()
	}
	return w.ResponseWriter.Write(b)
}

// NewRedisCache caches successful GET responses per user for a short TTL.
// Document reads dominate traffic once an editor session is open; a stale
// window of a few seconds is acceptable there. Anything non-200 or non-GET
// is passed through untouched.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKey(cfg.Prefix, c)

			if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if rec.status == http.StatusOK && rec.limit >= 0 && rec.buf.Len() > 0 {
				_ = rdb.SetEx(context.Background(), key, rec.buf.Bytes(), cfg.TTL).Err()
			}
			return nil
		}
	}
}

func cacheKey(prefix string, c echo.Context) string {
	tail := strconv.FormatUint(UserID(c), 10) + ":" + c.Path() + ":" +
		c.Param("id") + "?" + c.Request().URL.RawQuery
	return fmt.Sprintf("%s:%x", prefix, sha1.Sum([]byte(tail)))
}
