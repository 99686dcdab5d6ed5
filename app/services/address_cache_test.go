package services

import (
	"context"
	"testing"

	"github.com/billing-resolver/app/models"
)

func countingSearch(calls *int, result *models.NormalizationResult) searchFunc {
	return func(ctx context.Context, address string) (*models.NormalizationResult, error) {
		*calls++
		return result, nil
	}
}

func TestAddressSearchCache_Deduplicates(t *testing.T) {
	cache := NewAddressSearchCache("7701234567")
	parsed := models.ParsedAddress{Parsed: true, Address: "ул. Ленина, д.5"}
	result := &models.NormalizationResult{Address: "г. Москва, ул. Ленина, д. 5", AddressKey: "key-1"}

	calls := 0
	search := countingSearch(&calls, result)
	for i := 0; i < 3; i++ {
		if err := cache.Propagate(context.Background(), parsed, search); err != nil {
			t.Fatalf("Propagate failed: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("external calls = %d, want 1", calls)
	}

	got, ok := cache.Get("ул. Ленина, д.5")
	if !ok || got == nil || got.AddressKey != "key-1" {
		t.Errorf("Get = %+v ok=%v", got, ok)
	}
}

func TestAddressSearchCache_NullSentinel(t *testing.T) {
	cache := NewAddressSearchCache("7701234567")
	parsed := models.ParsedAddress{Parsed: true, Address: "неизвестный адрес"}

	calls := 0
	search := countingSearch(&calls, nil)
	for i := 0; i < 2; i++ {
		if err := cache.Propagate(context.Background(), parsed, search); err != nil {
			t.Fatalf("Propagate failed: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("external calls = %d, want 1 (miss must be cached)", calls)
	}

	got, ok := cache.Get("неизвестный адрес")
	if !ok {
		t.Fatal("confirmed miss must be present in the cache")
	}
	if got != nil {
		t.Errorf("confirmed miss = %+v, want nil", got)
	}
}

func TestAddressSearchCache_SeedsAliases(t *testing.T) {
	cache := NewAddressSearchCache("7701234567")
	result := &models.NormalizationResult{
		Address:    "г. Москва, ул. Ленина, д. 5",
		AddressKey: "key-1",
		AddressSources: []string{
			"ул.Ленина 5",
			"Ленина, д.5",
		},
	}

	calls := 0
	search := countingSearch(&calls, result)
	parsed := models.ParsedAddress{Parsed: true, Address: "ул. Ленина, д.5"}
	if err := cache.Propagate(context.Background(), parsed, search); err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}

	// Aliases resolve from the cache without further external calls.
	for _, alias := range result.AddressSources {
		got, ok := cache.Get(alias)
		if !ok || got != result {
			t.Errorf("alias %q not seeded: %+v ok=%v", alias, got, ok)
		}
		if err := cache.Propagate(context.Background(), models.ParsedAddress{Parsed: true, Address: alias}, search); err != nil {
			t.Fatalf("Propagate alias failed: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("external calls = %d, want 1", calls)
	}
	if cache.Len() != 3 {
		t.Errorf("Len = %d, want 3", cache.Len())
	}
}

func TestAddressSearchCache_EmptyAddressNoop(t *testing.T) {
	cache := NewAddressSearchCache("7701234567")
	calls := 0
	search := countingSearch(&calls, nil)

	cases := []models.ParsedAddress{
		{},
		{Parsed: true, Address: "   "},
		{Parsed: false, Address: "ул. Ленина"},
	}
	for _, parsed := range cases {
		if err := cache.Propagate(context.Background(), parsed, search); err != nil {
			t.Fatalf("Propagate failed: %v", err)
		}
	}
	if calls != 0 {
		t.Errorf("external calls = %d, want 0", calls)
	}
	if cache.Len() != 0 {
		t.Errorf("Len = %d, want 0", cache.Len())
	}
}
