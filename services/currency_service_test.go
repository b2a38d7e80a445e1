package services

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"patrimoine/config"
)

func rateServer(t *testing.T, calls *int32, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func currencyConfig(apiURL, cacheFile string, ttlSeconds int) *config.Config {
	return &config.Config{
		Currency: config.CurrencyConfig{
			APIURL:    apiURL,
			CacheFile: cacheFile,
			CacheTTL:  ttlSeconds,
		},
	}
}

func TestGetRates_FetchAndCache(t *testing.T) {
	var calls int32
	srv := rateServer(t, &calls, `{"rates":{"EUR":1,"USD":1.08,"GBP":0.85}}`)
	cacheFile := filepath.Join(t.TempDir(), "rates.json")

	svc := NewCurrencyService(currencyConfig(srv.URL, cacheFile, 3600))

	rates := svc.GetRates()
	if rates["USD"] != 1.08 {
		t.Errorf("USD rate: expected 1.08, got %v", rates["USD"])
	}

	// Second call is served from the cache file.
	svc.GetRates()
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected one API call, got %d", calls)
	}
}

func TestGetRates_StaleCacheFallback(t *testing.T) {
	var calls int32
	srv := rateServer(t, &calls, `{"rates":{"EUR":1,"USD":1.10}}`)
	cacheFile := filepath.Join(t.TempDir(), "rates.json")

	// Warm the cache, then make it immediately stale and kill the API.
	warm := NewCurrencyService(currencyConfig(srv.URL, cacheFile, 3600))
	warm.GetRates()
	srv.Close()

	svc := NewCurrencyService(currencyConfig(srv.URL, cacheFile, 0))
	rates := svc.GetRates()
	if rates["USD"] != 1.10 {
		t.Errorf("stale cache must still serve rates, got %v", rates)
	}
}

func TestGetRates_NoAPIAndNoCache(t *testing.T) {
	cfg := currencyConfig("http://127.0.0.1:1/latest", filepath.Join(t.TempDir(), "rates.json"), 3600)
	svc := NewCurrencyService(cfg)

	rates := svc.GetRates()
	if len(rates) != 1 || rates["EUR"] != 1.0 {
		t.Errorf("expected EUR-only fallback, got %v", rates)
	}
}

func TestGetRates_ConfigReload(t *testing.T) {
	var callsA, callsB int32
	srvA := rateServer(t, &callsA, `{"rates":{"EUR":1,"USD":1.05}}`)
	srvB := rateServer(t, &callsB, `{"rates":{"EUR":1,"USD":1.30}}`)
	dir := t.TempDir()

	// TTL zero: every call goes to whatever endpoint the config names now.
	cfg := currencyConfig(srvA.URL, filepath.Join(dir, "a.json"), 0)
	svc := NewCurrencyService(cfg)

	if rates := svc.GetRates(); rates["USD"] != 1.05 {
		t.Fatalf("initial endpoint: expected 1.05, got %v", rates["USD"])
	}

	cfg.Reload(currencyConfig(srvB.URL, filepath.Join(dir, "b.json"), 0))

	if rates := svc.GetRates(); rates["USD"] != 1.30 {
		t.Errorf("after reload: expected 1.30, got %v", rates["USD"])
	}
	if atomic.LoadInt32(&callsB) == 0 {
		t.Error("reloaded endpoint was never called")
	}
}

func TestConvertToEUR(t *testing.T) {
	var calls int32
	srv := rateServer(t, &calls, `{"rates":{"EUR":1,"USD":1.25}}`)
	svc := NewCurrencyService(currencyConfig(srv.URL, filepath.Join(t.TempDir(), "rates.json"), 3600))

	// EUR passes through without a fetch.
	amount, rate, err := svc.ConvertToEUR(100, "EUR")
	if err != nil || amount != 100 || rate != 1.0 {
		t.Errorf("EUR conversion: %v %v %v", amount, rate, err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("EUR conversion must not call the API")
	}

	amount, rate, err = svc.ConvertToEUR(125, "USD")
	if err != nil {
		t.Fatalf("USD conversion: %v", err)
	}
	if amount != 100 || rate != 1.25 {
		t.Errorf("USD conversion: expected 100 @ 1.25, got %v @ %v", amount, rate)
	}

	_, _, err = svc.ConvertToEUR(10, "XYZ")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("unknown currency: expected ErrValidation, got %v", err)
	}
}
