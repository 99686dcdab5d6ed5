package services

import (
	"context"
	"strings"
	"sync"

	"github.com/billing-resolver/app/models"
)

// searchFunc is the single external normalization call the cache is
// allowed to make per unknown address.
type searchFunc func(ctx context.Context, address string) (*models.NormalizationResult, error)

// AddressSearchCache deduplicates normalization lookups within one
// resolver session. Entries are keyed "tin_address"; a present key with
// a nil value records a confirmed miss, which is different from "never
// asked". The cache only grows.
type AddressSearchCache struct {
	mu      sync.RWMutex
	tin     string
	entries map[string]*models.NormalizationResult
}

func NewAddressSearchCache(tin string) *AddressSearchCache {
	return &AddressSearchCache{
		tin:     tin,
		entries: make(map[string]*models.NormalizationResult),
	}
}

// Key builds the cache key for an address, or "" for empty input.
func (c *AddressSearchCache) Key(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	return c.tin + "_" + address
}

// Get returns the cached result and whether the key is present at all.
// A nil result with ok=true means the lookup already ran and missed.
func (c *AddressSearchCache) Get(address string) (*models.NormalizationResult, bool) {
	key := c.Key(address)
	if key == "" {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.entries[key]
	return result, ok
}

// Len reports how many addresses have an entry, misses included.
func (c *AddressSearchCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Propagate looks the parsed address up at most once and seeds every
// alias spelling the result lists with the same entry, issuing no
// further external calls for the aliases.
func (c *AddressSearchCache) Propagate(ctx context.Context, parsed models.ParsedAddress, search searchFunc) error {
	if !parsed.Parsed {
		return nil
	}
	key := c.Key(parsed.Address)
	if key == "" {
		return nil
	}
	c.mu.RLock()
	_, done := c.entries[key]
	c.mu.RUnlock()
	if done {
		return nil
	}

	result, err := search(ctx, parsed.Address)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
	if result == nil {
		return nil
	}
	for _, alias := range result.AddressSources {
		aliasKey := c.Key(alias)
		if aliasKey == "" {
			continue
		}
		if _, ok := c.entries[aliasKey]; !ok {
			c.entries[aliasKey] = result
		}
	}
	return nil
}
