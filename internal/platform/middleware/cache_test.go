package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const kpiBody = `{"totalPatients":3}`

func cacheEntry(t *testing.T, body string) []byte {
	t.Helper()
	b, err := json.Marshal(cachedResponse{Status: http.StatusOK, ContentType: echo.MIMETextPlainCharsetUTF8, Body: []byte(body)})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func getContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRedisCache_MissStoresResponse(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c, rec := getContext(http.MethodGet, "/analytics/kpis")
	key := responseCacheKey(c)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetEx(key, cacheEntry(t, kpiBody), time.Minute).SetVal("OK")

	h := RedisCache(rdb, time.Minute, zerolog.Nop())(func(c echo.Context) error {
		return c.String(http.StatusOK, kpiBody)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != kpiBody || rec.Code != http.StatusOK {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Cache") != "MISS" {
		t.Errorf("X-Cache = %q", rec.Header().Get("X-Cache"))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedisCache_HitSkipsHandler(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c, rec := getContext(http.MethodGet, "/analytics/kpis")
	mock.ExpectGet(responseCacheKey(c)).SetVal(string(cacheEntry(t, kpiBody)))

	called := false
	h := RedisCache(rdb, time.Minute, zerolog.Nop())(func(c echo.Context) error {
		called = true
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("handler should not run on a hit")
	}
	if rec.Body.String() != kpiBody || rec.Header().Get("X-Cache") != "HIT" {
		t.Errorf("unexpected response %q / %q", rec.Body.String(), rec.Header().Get("X-Cache"))
	}
	if rec.Header().Get(echo.HeaderContentType) != echo.MIMETextPlainCharsetUTF8 {
		t.Errorf("content type not restored: %q", rec.Header().Get(echo.HeaderContentType))
	}
}

func TestRedisCache_QueryIsPartOfKey(t *testing.T) {
	c1, _ := getContext(http.MethodGet, "/analytics/kpis?x=1")
	c2, _ := getContext(http.MethodGet, "/analytics/kpis?x=2")
	if responseCacheKey(c1) == responseCacheKey(c2) {
		t.Error("expected different keys for different queries")
	}
}

func TestRedisCache_ReadErrorFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c, rec := getContext(http.MethodGet, "/analytics/triage_distribution")
	key := responseCacheKey(c)
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSetEx(key, cacheEntry(t, "[]"), time.Minute).SetErr(errors.New("connection refused"))

	h := RedisCache(rdb, time.Minute, zerolog.Nop())(func(c echo.Context) error {
		return c.String(http.StatusOK, "[]")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != "[]" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestRedisCache_HandlerErrorNotCached(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c, _ := getContext(http.MethodGet, "/analytics/kpis")
	mock.ExpectGet(responseCacheKey(c)).RedisNil()

	boom := echo.NewHTTPError(http.StatusInternalServerError, "boom")
	h := RedisCache(rdb, time.Minute, zerolog.Nop())(func(c echo.Context) error {
		return boom
	})
	if err := h(c); err != boom {
		t.Fatalf("expected handler error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedisCache_NonGetBypasses(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c, rec := getContext(http.MethodPost, "/analytics/kpis")

	h := RedisCache(rdb, time.Minute, zerolog.Nop())(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get("X-Cache") != "" {
		t.Error("POST should not touch the cache")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedisCache_NilClientDisabled(t *testing.T) {
	c, rec := getContext(http.MethodGet, "/analytics/kpis")
	h := RedisCache(nil, time.Minute, zerolog.Nop())(func(c echo.Context) error {
		return c.String(http.StatusOK, kpiBody)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get("X-Cache") != "" || rec.Body.String() != kpiBody {
		t.Errorf("expected pass-through, got %q %q", rec.Header().Get("X-Cache"), rec.Body.String())
	}
}
