package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "er:cache"

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// bufferedResponseWriter holds the handler's output so it can be stored
// before being sent.
type bufferedResponseWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bufferedResponseWriter) WriteHeader(code int)        { w.status = code }
func (w *bufferedResponseWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }

func (w *bufferedResponseWriter) flush() error {
	w.ResponseWriter.WriteHeader(w.status)
	_, err := w.ResponseWriter.Write(w.buf.Bytes())
	return err
}

// responseCacheKey identifies a GET by route and raw query.
func responseCacheKey(c echo.Context) string {
	sum := sha1.Sum([]byte(c.Request().URL.Path + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%x", cacheKeyPrefix, sum)
}

// RedisCache serves repeated GETs from Redis. Only 200 responses are stored,
// for ttl. A nil client disables caching. Redis failures are logged and the
// request falls through to the handler.
func RedisCache(rdb redis.Cmdable, ttl time.Duration, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if rdb == nil {
			return next
		}
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := responseCacheKey(c)

			raw, err := rdb.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				var cached cachedResponse
				if jerr := json.Unmarshal(raw, &cached); jerr == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(cached.Status, cached.ContentType, cached.Body)
				}
				logger.Warn().Str("key", key).Msg("discarding unreadable cache entry")
			case !errors.Is(err, redis.Nil):
				logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
			}

			res := c.Response()
			orig := res.Writer
			buf := &bufferedResponseWriter{ResponseWriter: orig, status: http.StatusOK}
			res.Writer = buf
			err = next(c)
			res.Writer = orig
			if err != nil {
				return err
			}

			if buf.status == http.StatusOK {
				entry, _ := json.Marshal(cachedResponse{
					Status:      buf.status,
					ContentType: res.Header().Get(echo.HeaderContentType),
					Body:        buf.buf.Bytes(),
				})
				// The request context may be cancelled once the reply is sent.
				if err := rdb.SetEx(context.WithoutCancel(ctx), key, entry, ttl).Err(); err != nil {
					logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
				}
			}
			res.Header().Set("X-Cache", "MISS")
			return buf.flush()
		}
	}
}
