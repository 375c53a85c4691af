// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes completions by request. Repeated act/observe instructions
// against the same page state skip the model call. Cached responses report
// zero tokens used.
type Cache struct {
	next  Completer
	cache *lru.Cache[string, string]
}

// NewCache wraps next with an LRU of the given size.
func NewCache(next Completer, size int) (*Cache, error) {
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("creating completion cache: %w", err)
	}
	return &Cache{next: next, cache: c}, nil
}

// Complete returns a cached response when one exists for an identical request.
func (c *Cache) Complete(ctx context.Context, req Request) (Response, error) {
	key := cacheKey(req)
	if text, ok := c.cache.Get(key); ok {
		return Response{Text: text}, nil
	}
	resp, err := c.next.Complete(ctx, req)
	if err != nil {
		return resp, err
	}
	c.cache.Add(key, resp.Text)
	return resp, nil
}

// Forget drops the cached response for req so the next identical request
// reaches the backend.
func (c *Cache) Forget(req Request) {
	c.cache.Remove(cacheKey(req))
}

// Len reports the number of cached responses.
func (c *Cache) Len() int {
	return c.cache.Len()
}

func cacheKey(req Request) string {
	h := sha256.New()
	for _, part := range []string{
		req.Model,
		req.System,
		req.User,
		strconv.FormatFloat(req.Temperature, 'f', -1, 64),
		strconv.Itoa(req.MaxTokens),
		strconv.FormatBool(req.JSON),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
