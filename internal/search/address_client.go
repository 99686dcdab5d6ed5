package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/meilisearch/meilisearch-go"
	"github.com/mozillazg/go-unidecode"
	"go.uber.org/zap"

	"github.com/billing-resolver/app/models"
	"github.com/billing-resolver/internal/external"
)

// Filter narrows a normalization lookup, e.g. {"helpers.tin": "7701..."}.
type Filter map[string]string

func (f Filter) expr() string {
	if len(f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s = %q", k, f[k]))
	}
	return strings.Join(parts, " AND ")
}

// AddressClient is the external normalization collaborator. A nil result
// with a nil error means "the service knows nothing about this address"
// and is a normal, cacheable outcome.
type AddressClient interface {
	Search(ctx context.Context, address string, filter Filter) (*models.NormalizationResult, error)
}

// SharedCache is an optional cross-process cache sitting in front of the
// search backend (Redis in production).
type SharedCache interface {
	Get(ctx context.Context, key string) (*models.NormalizationResult, bool, error)
	Set(ctx context.Context, key string, result *models.NormalizationResult) error
}

// Config tunes the Meilisearch-backed client.
type Config struct {
	Host         string
	APIKey       string
	IndexName    string
	Timeout      time.Duration
	MemoSize     int
	UseLibpostal bool
}

// MeiliAddressClient resolves raw address strings against the addresses
// index, memoizing hits in-process and, when wired, in the shared cache.
type MeiliAddressClient struct {
	client       meilisearch.ServiceManager
	logger       *zap.Logger
	indexName    string
	timeout      time.Duration
	useLibpostal bool
	memo         *lru.Cache[string, *models.NormalizationResult]
	shared       SharedCache
}

func NewMeiliAddressClient(cfg Config, shared SharedCache, logger *zap.Logger) (*MeiliAddressClient, error) {
	if cfg.MemoSize <= 0 {
		cfg.MemoSize = 10000
	}
	memo, err := lru.New[string, *models.NormalizationResult](cfg.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("create search memo: %w", err)
	}
	client := meilisearch.New(cfg.Host, meilisearch.WithAPIKey(cfg.APIKey))
	return &MeiliAddressClient{
		client:       client,
		logger:       logger,
		indexName:    cfg.IndexName,
		timeout:      cfg.Timeout,
		useLibpostal: cfg.UseLibpostal,
		memo:         memo,
		shared:       shared,
	}, nil
}

func (c *MeiliAddressClient) Search(ctx context.Context, address string, filter Filter) (*models.NormalizationResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}
	key := c.cacheKey(address, filter)
	if cached, ok := c.memo.Get(key); ok {
		return cached, nil
	}
	if c.shared != nil {
		cached, ok, err := c.shared.Get(ctx, key)
		if err != nil {
			c.logger.Warn("shared search cache read failed", zap.Error(err))
		} else if ok {
			c.memo.Add(key, cached)
			return cached, nil
		}
	}

	result, err := c.query(ctx, address, filter)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	c.memo.Add(key, result)
	if c.shared != nil {
		if err := c.shared.Set(ctx, key, result); err != nil {
			c.logger.Warn("shared search cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

func (c *MeiliAddressClient) cacheKey(address string, filter Filter) string {
	if expr := filter.expr(); expr != "" {
		return expr + "_" + address
	}
	return address
}

// query tries the raw address first, then a transliterated variant, then
// libpostal expansions when enabled. First hit wins.
func (c *MeiliAddressClient) query(ctx context.Context, address string, filter Filter) (*models.NormalizationResult, error) {
	variants := []string{address}
	if translit := unidecode.Unidecode(address); translit != address {
		variants = append(variants, translit)
	}
	if c.useLibpostal {
		for _, exp := range external.ExpandAddress(address) {
			if exp != address {
				variants = append(variants, exp)
				break
			}
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	index := c.client.Index(c.indexName)
	request := &meilisearch.SearchRequest{Limit: 1}
	if expr := filter.expr(); expr != "" {
		request.Filter = expr
	}
	for _, variant := range variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := index.Search(variant, request)
		if err != nil {
			return nil, fmt.Errorf("search address index: %w", err)
		}
		if len(resp.Hits) == 0 {
			continue
		}
		if result := decodeHit(resp.Hits[0]); result != nil {
			return result, nil
		}
	}
	return nil, nil
}

// decodeHit maps a raw index document onto a normalization result.
func decodeHit(hit interface{}) *models.NormalizationResult {
	doc, ok := hit.(map[string]interface{})
	if !ok {
		return nil
	}
	result := &models.NormalizationResult{}
	if v, ok := doc["address"].(string); ok {
		result.Address = v
	}
	if v, ok := doc["address_key"].(string); ok {
		result.AddressKey = v
	}
	if result.Address == "" && result.AddressKey == "" {
		return nil
	}
	if v, ok := doc["house_fias_id"].(string); ok && v != "" {
		result.AddressMeta = &models.AddressMeta{Data: models.AddressMetaData{HouseFiasID: v}}
	}
	if raw, ok := doc["address_sources"].([]interface{}); ok {
		for _, s := range raw {
			if source, ok := s.(string); ok {
				result.AddressSources = append(result.AddressSources, source)
			}
		}
	}
	return result
}
