package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/quote"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "test",
		CurrencyCode:       "IDR",
		CurrencyMinorUnits: 2,
		CatalogMaxLimit:    100,
		RateLimitWindow:    time.Minute,
		RateLimitMax:       2,
		BodyLimitBytes:     1 << 10,
		SecurityHeaders:    true,
		Obs: config.ObsConfig{
			MetricsNamespace: "router_test",
			EnablePrometheus: true,
		},
	}
}

func buildRouter(t *testing.T, cfg *config.Config, client *redis.Client) http.Handler {
	t.Helper()
	quotes, err := quote.NewService(quote.ServiceConfig{Currency: cfg.CurrencyCode, MinorUnits: cfg.CurrencyMinorUnits})
	require.NoError(t, err)
	cat, err := catalog.NewService(catalog.ServiceConfig{Quotes: quotes})
	require.NoError(t, err)
	return newRouter(routerDeps{
		cfg:     cfg,
		logger:  zerolog.Nop(),
		redis:   client,
		quotes:  quotes,
		catalog: cat,
	})
}

func postQuote(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouterQuotes(t *testing.T) {
	router := buildRouter(t, testConfig(), nil)

	rec := postQuote(router, `{"price":100000,"discountPercent":25,"mode":"installment","months":12}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var resp struct {
		Data quote.Quote `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.InDelta(t, 6250, resp.Data.Amount, 1e-9)
	require.Equal(t, "6250.00", resp.Data.Display)
	require.Equal(t, "IDR", resp.Data.Currency)

	rec = postQuote(router, `{"price":100000,"discountPercent":120,"mode":"one_time"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_DISCOUNT")

	rec = postQuote(router, `{"price":1,"mode":"one_time","extra":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterCatalogWithoutSource(t *testing.T) {
	router := buildRouter(t, testConfig(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "CATALOG_UNAVAILABLE")
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := buildRouter(t, testConfig(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"redis":"disabled"`)

	postQuote(router, `{"price":10000,"discountPercent":10,"mode":"one_time"}`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "router_test_http_requests_total")
}

func TestRouterRateLimitsWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	router := buildRouter(t, testConfig(), client)
	body := `{"price":10000,"discountPercent":10,"mode":"one_time"}`
	require.Equal(t, http.StatusOK, postQuote(router, body).Code)
	require.Equal(t, http.StatusOK, postQuote(router, body).Code)

	rec := postQuote(router, body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRouterBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.BodyLimitBytes = 16
	router := buildRouter(t, cfg, nil)
	rec := postQuote(router, `{"price":10000,"discountPercent":10,"mode":"one_time"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouterPprofBasicAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Obs.EnablePprof = true
	cfg.Obs.PprofUser = "ops"
	cfg.Obs.PprofPass = "secret"
	router := buildRouter(t, cfg, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil)
	req.SetBasicAuth("ops", "secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOpenRedis(t *testing.T) {
	cfg := testConfig()
	require.Nil(t, openRedis(cfg, zerolog.Nop()))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	cfg.RedisURL = "redis://" + mr.Addr()
	client := openRedis(cfg, zerolog.Nop())
	require.NotNil(t, client)
	require.NoError(t, client.Close())

	mr.Close()
	client = openRedis(cfg, zerolog.Nop())
	require.NotNil(t, client, "an unreachable redis still yields a client")
	require.NoError(t, client.Close())
}
