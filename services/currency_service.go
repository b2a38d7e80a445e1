package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"patrimoine/config"
	"patrimoine/utils"
)

// CurrencyService fetches EUR-based exchange rates, caching them on disk so
// the portfolio stays usable when the rate API is unreachable. The API URL,
// cache location and TTL are resolved from the config on every call so a
// live config reload takes effect on the next fetch.
type CurrencyService struct {
	cfg    *config.Config
	client *http.Client

	mu sync.Mutex
}

type rateCache struct {
	FetchedAt time.Time          `json:"fetched_at"`
	Rates     map[string]float64 `json:"rates"`
}

func NewCurrencyService(cfg *config.Config) *CurrencyService {
	return &CurrencyService{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetRates returns current rates relative to EUR. Freshness order: valid
// cache, live API, stale cache, and finally just {"EUR": 1}. A TTL of zero
// disables the freshness window entirely.
func (c *CurrencyService) GetRates() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.cfg.CurrencySettings()
	ttl := time.Duration(cur.CacheTTL) * time.Second

	if cache, ok := c.loadCache(cur.CacheFile); ok && time.Since(cache.FetchedAt) < ttl {
		return cache.Rates
	}

	rates, err := c.fetch(cur.APIURL)
	if err != nil {
		utils.LogError("exchange rate fetch failed: %v", err)
		if cache, ok := c.loadCache(cur.CacheFile); ok {
			return cache.Rates
		}
		return map[string]float64{"EUR": 1.0}
	}

	c.saveCache(cur.CacheFile, rates)
	return rates
}

// ConvertToEUR converts an amount in the given currency to EUR. Returns the
// used rate alongside the converted amount.
func (c *CurrencyService) ConvertToEUR(amount float64, currency string) (float64, float64, error) {
	if currency == "" || currency == "EUR" {
		return amount, 1.0, nil
	}
	rates := c.GetRates()
	rate, ok := rates[currency]
	if !ok || rate == 0 {
		return 0, 0, fmt.Errorf("%w: no exchange rate for %s", ErrValidation, currency)
	}
	return amount / rate, rate, nil
}

func (c *CurrencyService) fetch(apiURL string) (map[string]float64, error) {
	resp, err := c.client.Get(apiURL)
	if err != nil {
		return nil, fmt.Errorf("call rate api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate api returned %s", resp.Status)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rate api response: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("rate api returned no rates")
	}
	return payload.Rates, nil
}

func (c *CurrencyService) loadCache(cacheFile string) (*rateCache, bool) {
	data, err := os.ReadFile(cacheFile)
	if err != nil {
		return nil, false
	}
	var cache rateCache
	if err := json.Unmarshal(data, &cache); err != nil || len(cache.Rates) == 0 {
		return nil, false
	}
	return &cache, true
}

func (c *CurrencyService) saveCache(cacheFile string, rates map[string]float64) {
	cache := rateCache{FetchedAt: time.Now(), Rates: rates}
	data, err := json.Marshal(cache)
	if err != nil {
		return
	}
	if err := os.WriteFile(cacheFile, data, 0o644); err != nil {
		utils.LogError("write rate cache: %v", err)
	}
}
