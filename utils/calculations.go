package utils

import (
	"github.com/shopspring/decimal"
)

// AssetCategories are the allocation buckets an asset can be split across.
var AssetCategories = []string{"actions", "obligations", "immobilier", "crypto", "metaux", "cash", "autre"}

// GeoZones are the geographic buckets used for regional breakdowns.
var GeoZones = []string{
	"amerique_nord",
	"europe_zone_euro",
	"europe_hors_zone_euro",
	"japon",
	"asie_developpee",
	"emergents",
	"global_non_classe",
}

var hundred = decimal.NewFromInt(100)

// DefaultGeoZones returns a sensible regional split for a category when the
// user has not provided one.
func DefaultGeoZones(category string) map[string]float64 {
	switch category {
	case "actions":
		return map[string]float64{"amerique_nord": 60, "europe_zone_euro": 20, "japon": 10, "emergents": 5, "global_non_classe": 5}
	case "obligations":
		return map[string]float64{"europe_zone_euro": 80, "amerique_nord": 20}
	case "immobilier", "cash":
		return map[string]float64{"europe_zone_euro": 100}
	case "crypto", "metaux":
		return map[string]float64{"global_non_classe": 100}
	default:
		return map[string]float64{"europe_zone_euro": 100}
	}
}

// NormalizeAllocation rescales a percentage map so its values sum to exactly
// 100. Negative entries are dropped. Returns false for nil, empty or all-zero
// input, which cannot be normalized.
func NormalizeAllocation(alloc map[string]float64) (map[string]float64, bool) {
	if len(alloc) == 0 {
		return nil, false
	}

	total := decimal.Zero
	cleaned := make(map[string]decimal.Decimal, len(alloc))
	for key, pct := range alloc {
		if pct <= 0 {
			continue
		}
		d := decimal.NewFromFloat(pct)
		cleaned[key] = d
		total = total.Add(d)
	}
	if total.IsZero() {
		return nil, false
	}

	out := make(map[string]float64, len(cleaned))
	// Round every entry to 2 decimals and park the remainder on the largest
	// bucket so the sum stays exactly 100.
	var largestKey string
	var largestVal decimal.Decimal
	running := decimal.Zero
	for key, d := range cleaned {
		scaled := d.Mul(hundred).Div(total).Round(2)
		out[key], _ = scaled.Float64()
		running = running.Add(scaled)
		if largestKey == "" || d.GreaterThan(largestVal) {
			largestKey, largestVal = key, d
		}
	}
	if diff := hundred.Sub(running); !diff.IsZero() {
		adjusted := decimal.NewFromFloat(out[largestKey]).Add(diff)
		out[largestKey], _ = adjusted.Float64()
	}
	return out, true
}

// NormalizeGeoAllocation validates a per-category regional split against the
// asset's allocation: categories with no weight are removed, missing or
// all-zero splits fall back to the category default, and each split is
// normalized to 100.
func NormalizeGeoAllocation(geo map[string]map[string]float64, alloc map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for cat, weight := range alloc {
		if weight <= 0 {
			continue
		}
		split := geo[cat]
		normalized, ok := NormalizeAllocation(split)
		if !ok {
			normalized = DefaultGeoZones(cat)
		}
		out[cat] = normalized
	}
	return out
}

// AllocationValue is a (bucket, EUR value) pair used by portfolio breakdowns.
type AllocationValue struct {
	ValueEUR float64
	Percent  float64
}

// BreakdownByCategory ventilates asset values across allocation categories.
// valuations maps asset id to its EUR value, allocations maps asset id to its
// normalized allocation.
func BreakdownByCategory(valuations map[string]float64, allocations map[string]map[string]float64) map[string]float64 {
	sums := make(map[string]decimal.Decimal)
	for id, value := range valuations {
		v := decimal.NewFromFloat(value)
		for cat, pct := range allocations[id] {
			part := v.Mul(decimal.NewFromFloat(pct)).Div(hundred)
			sums[cat] = sums[cat].Add(part)
		}
	}
	out := make(map[string]float64, len(sums))
	for cat, d := range sums {
		out[cat], _ = d.Round(2).Float64()
	}
	return out
}

// BreakdownByZone ventilates asset values across geographic zones, using the
// per-category regional splits.
func BreakdownByZone(valuations map[string]float64, allocations map[string]map[string]float64, geos map[string]map[string]map[string]float64) map[string]float64 {
	sums := make(map[string]decimal.Decimal)
	for id, value := range valuations {
		v := decimal.NewFromFloat(value)
		for cat, pct := range allocations[id] {
			catValue := v.Mul(decimal.NewFromFloat(pct)).Div(hundred)
			zones := geos[id][cat]
			if len(zones) == 0 {
				zones = DefaultGeoZones(cat)
			}
			for zone, zonePct := range zones {
				part := catValue.Mul(decimal.NewFromFloat(zonePct)).Div(hundred)
				sums[zone] = sums[zone].Add(part)
			}
		}
	}
	out := make(map[string]float64, len(sums))
	for zone, d := range sums {
		out[zone], _ = d.Round(2).Float64()
	}
	return out
}

// TotalValue sums EUR valuations with decimal arithmetic.
func TotalValue(valuations map[string]float64) float64 {
	total := decimal.Zero
	for _, v := range valuations {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Round(2).Float64()
	return f
}

// HasCircularReference reports whether adding targetID as a component of
// sourceID would create a cycle. components maps asset id to the ids of its
// direct components.
func HasCircularReference(components map[string][]string, sourceID, targetID string) bool {
	if sourceID == targetID {
		return true
	}
	visited := map[string]bool{}
	var walk func(id string) bool
	walk = func(id string) bool {
		if id == sourceID {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		for _, child := range components[id] {
			if walk(child) {
				return true
			}
		}
		return false
	}
	return walk(targetID)
}
