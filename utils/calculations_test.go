package utils

import (
	"math"
	"testing"
)

func sumValues(m map[string]float64) float64 {
	total := 0.0
	for _, v := range m {
		total += v
	}
	return total
}

func TestNormalizeAllocation(t *testing.T) {
	out, ok := NormalizeAllocation(map[string]float64{"actions": 30, "obligations": 30})
	if !ok {
		t.Fatal("normalization must succeed")
	}
	if out["actions"] != 50 || out["obligations"] != 50 {
		t.Errorf("expected 50/50, got %v", out)
	}
}

func TestNormalizeAllocation_SumsToHundred(t *testing.T) {
	testCases := []map[string]float64{
		{"actions": 1, "obligations": 1, "cash": 1},
		{"actions": 33.33, "obligations": 33.33, "cash": 33.33},
		{"actions": 7, "obligations": 11, "immobilier": 13, "crypto": 3},
		{"actions": 0.1, "cash": 0.2},
		{"actions": 99999, "cash": 1},
	}
	for _, alloc := range testCases {
		out, ok := NormalizeAllocation(alloc)
		if !ok {
			t.Fatalf("normalization of %v must succeed", alloc)
		}
		if sum := sumValues(out); math.Abs(sum-100) > 1e-9 {
			t.Errorf("allocation %v sums to %v, expected exactly 100", out, sum)
		}
	}
}

func TestNormalizeAllocation_DropsNonPositive(t *testing.T) {
	out, ok := NormalizeAllocation(map[string]float64{"actions": 50, "obligations": -10, "cash": 0})
	if !ok {
		t.Fatal("normalization must succeed")
	}
	if _, exists := out["obligations"]; exists {
		t.Error("negative entry must be dropped")
	}
	if _, exists := out["cash"]; exists {
		t.Error("zero entry must be dropped")
	}
	if out["actions"] != 100 {
		t.Errorf("expected actions=100, got %v", out)
	}
}

func TestNormalizeAllocation_AllZero(t *testing.T) {
	if _, ok := NormalizeAllocation(map[string]float64{"actions": 0, "cash": 0}); ok {
		t.Error("all-zero input cannot be normalized")
	}
	if _, ok := NormalizeAllocation(nil); ok {
		t.Error("nil input cannot be normalized")
	}
	if _, ok := NormalizeAllocation(map[string]float64{}); ok {
		t.Error("empty input cannot be normalized")
	}
}

func TestNormalizeGeoAllocation(t *testing.T) {
	alloc := map[string]float64{"actions": 60, "cash": 40, "crypto": 0}
	geo := map[string]map[string]float64{
		"actions": {"amerique_nord": 1, "japon": 1},
		"crypto":  {"global_non_classe": 100},
	}

	out := NormalizeGeoAllocation(geo, alloc)

	if out["actions"]["amerique_nord"] != 50 || out["actions"]["japon"] != 50 {
		t.Errorf("actions split must normalize to 50/50, got %v", out["actions"])
	}
	// cash had no split: falls back to the category default.
	if out["cash"]["europe_zone_euro"] != 100 {
		t.Errorf("cash must default to euro zone, got %v", out["cash"])
	}
	// crypto carries no weight: dropped entirely.
	if _, exists := out["crypto"]; exists {
		t.Error("zero-weight category must be dropped")
	}
}

func TestDefaultGeoZones_SumToHundred(t *testing.T) {
	for _, cat := range AssetCategories {
		if sum := sumValues(DefaultGeoZones(cat)); sum != 100 {
			t.Errorf("default zones for %s sum to %v", cat, sum)
		}
	}
}

func TestBreakdownByCategory(t *testing.T) {
	valuations := map[string]float64{"a1": 1000, "a2": 500}
	allocations := map[string]map[string]float64{
		"a1": {"actions": 80, "obligations": 20},
		"a2": {"cash": 100},
	}

	out := BreakdownByCategory(valuations, allocations)

	if out["actions"] != 800 {
		t.Errorf("actions: expected 800, got %v", out["actions"])
	}
	if out["obligations"] != 200 {
		t.Errorf("obligations: expected 200, got %v", out["obligations"])
	}
	if out["cash"] != 500 {
		t.Errorf("cash: expected 500, got %v", out["cash"])
	}
}

func TestBreakdownByZone(t *testing.T) {
	valuations := map[string]float64{"a1": 1000}
	allocations := map[string]map[string]float64{
		"a1": {"actions": 100},
	}
	geos := map[string]map[string]map[string]float64{
		"a1": {"actions": {"amerique_nord": 70, "japon": 30}},
	}

	out := BreakdownByZone(valuations, allocations, geos)

	if out["amerique_nord"] != 700 {
		t.Errorf("amerique_nord: expected 700, got %v", out["amerique_nord"])
	}
	if out["japon"] != 300 {
		t.Errorf("japon: expected 300, got %v", out["japon"])
	}
}

func TestBreakdownByZone_DefaultSplit(t *testing.T) {
	valuations := map[string]float64{"a1": 100}
	allocations := map[string]map[string]float64{
		"a1": {"cash": 100},
	}

	out := BreakdownByZone(valuations, allocations, nil)

	if out["europe_zone_euro"] != 100 {
		t.Errorf("cash without split must default to euro zone, got %v", out)
	}
}

func TestTotalValue(t *testing.T) {
	// 0.1+0.2 drifts with raw float addition.
	total := TotalValue(map[string]float64{"a": 0.1, "b": 0.2})
	if total != 0.3 {
		t.Errorf("expected 0.3, got %v", total)
	}
}

func TestHasCircularReference(t *testing.T) {
	components := map[string][]string{
		"pea":  {"etf1", "etf2"},
		"etf2": {"sub"},
	}

	if !HasCircularReference(components, "pea", "pea") {
		t.Error("self reference is a cycle")
	}
	if !HasCircularReference(components, "etf1", "pea") {
		t.Error("adding pea under etf1 closes a cycle")
	}
	if !HasCircularReference(components, "sub", "pea") {
		t.Error("transitive cycle through etf2 not detected")
	}
	if HasCircularReference(components, "pea", "etf1") {
		t.Error("existing edge is not a cycle")
	}
	if HasCircularReference(components, "other", "pea") {
		t.Error("unrelated asset must not report a cycle")
	}
}
