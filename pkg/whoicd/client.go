package whoicd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ayubridge/mapping-engine/pkg/config"
	"github.com/ayubridge/mapping-engine/pkg/logging"
)

// SearchResponse is the WHO search endpoint payload.
type SearchResponse struct {
	DestinationEntities []Entity `json:"destinationEntities"`
}

// Client talks to the WHO ICD-11 API. All calls pass through a shared
// token-bucket limiter so concurrent mapping workers respect one global
// outbound rate ceiling. Search responses are cached in Redis when a cache
// client is provided; the cache is an optimization only and every code path
// works with cache == nil.
type Client struct {
	http     *resty.Client
	limiter  *rate.Limiter
	cache    *redis.Client
	cacheTTL time.Duration
	version  string
	logger   *zap.Logger
}

// NewClient builds a WHO ICD-11 API client from configuration.
func NewClient(cfg *config.WHOAPIConfig, redisCfg *config.RedisConfig, cache *redis.Client, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", "en").
		SetHeader("API-Version", cfg.APIVersion)
	if cfg.Token != "" {
		httpClient.SetAuthToken(cfg.Token)
	}

	cacheTTL := time.Duration(redisCfg.SearchTTLSeconds) * time.Second

	return &Client{
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		cache:    cache,
		cacheTTL: cacheTTL,
		version:  cfg.APIVersion,
		logger:   logger.Named("whoicd"),
	}
}

// SearchEntities performs a flat search. chapterFilter restricts results to
// the given WHO chapters (e.g. "TM1,TM2") and may be empty for an
// unrestricted search.
func (c *Client) SearchEntities(ctx context.Context, query string, limit int, chapterFilter string) ([]Entity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	cacheKey := fmt.Sprintf("whoicd:search:%s:%d:%s", chapterFilter, limit, strings.ToLower(query))
	if cached, ok := c.cacheGet(ctx, cacheKey); ok {
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	params := map[string]string{
		"q":              query,
		"flatResults":    "true",
		"useFlexisearch": "true",
		"limit":          strconv.Itoa(limit),
	}
	if chapterFilter != "" {
		params["chapterFilter"] = chapterFilter
	}

	var result SearchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		Get(fmt.Sprintf("/%s/search", c.version))
	if err != nil {
		return nil, fmt.Errorf("WHO ICD search failed: %s", logging.SanitizeError(err))
	}
	if resp.IsError() {
		return nil, fmt.Errorf("WHO ICD search returned status %d", resp.StatusCode())
	}

	c.cacheSet(ctx, cacheKey, result.DestinationEntities)
	return result.DestinationEntities, nil
}

// GetEntity fetches full details (definition, hierarchy) for one entity.
func (c *Client) GetEntity(ctx context.Context, entityID string) (*Entity, error) {
	if idx := strings.LastIndex(entityID, "/"); idx >= 0 {
		entityID = entityID[idx+1:]
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	var entity Entity
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&entity).
		Get(fmt.Sprintf("/%s/%s", c.version, entityID))
	if err != nil {
		return nil, fmt.Errorf("WHO ICD entity lookup failed: %s", logging.SanitizeError(err))
	}
	if resp.IsError() {
		return nil, fmt.Errorf("WHO ICD entity lookup returned status %d", resp.StatusCode())
	}

	return &entity, nil
}

func (c *Client) cacheGet(ctx context.Context, key string) ([]Entity, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("search cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var entities []Entity
	if err := json.Unmarshal(raw, &entities); err != nil {
		return nil, false
	}
	return entities, true
}

func (c *Client) cacheSet(ctx context.Context, key string, entities []Entity) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(entities)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL).Err(); err != nil {
		c.logger.Debug("search cache write failed", zap.Error(err))
	}
}
