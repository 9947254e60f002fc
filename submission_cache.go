package walletkit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// SubmissionCache de-duplicates transaction submissions. Successful
// responses are cached for a TTL and concurrent submissions of the same
// transaction wait for the one already in flight, so a retried call does
// not submit twice.
type SubmissionCache struct {
	mu       sync.Mutex
	results  map[string]TransactionResponse
	expiry   map[string]time.Time
	inFlight map[string]chan struct{}
	ttl      time.Duration
}

// NewSubmissionCache creates a cache that keeps responses for ttl.
func NewSubmissionCache(ttl time.Duration) *SubmissionCache {
	return &SubmissionCache{
		results:  make(map[string]TransactionResponse),
		expiry:   make(map[string]time.Time),
		inFlight: make(map[string]chan struct{}),
		ttl:      ttl,
	}
}

// SubmissionKey derives the cache key of tx submitted through walletType.
// Map keys are encoded in sorted order, so equal transactions produce equal
// keys.
func SubmissionKey(walletType WalletType, tx Transaction) (string, error) {
	payload, err := json.Marshal(struct {
		Wallet WalletType  `json:"wallet"`
		Tx     Transaction `json:"tx"`
	}{walletType, tx})
	if err != nil {
		return "", fmt.Errorf("failed to encode transaction: %w", err)
	}
	hash := sha256.Sum256(payload)
	return hex.EncodeToString(hash[:]), nil
}

// SubmissionStatus is the result of checking the cache.
type SubmissionStatus int

const (
	// StatusNotFound means the caller should submit; the key is now in flight.
	StatusNotFound SubmissionStatus = iota
	// StatusCached means a cached response was found.
	StatusCached
	// StatusInFlight means another caller is submitting the same transaction.
	StatusInFlight
)

// CheckAndMark atomically checks the cache and marks the key as in flight
// when nothing is cached or pending.
func (c *SubmissionCache) CheckAndMark(key string) (SubmissionStatus, TransactionResponse, chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if expiry, exists := c.expiry[key]; exists {
		if time.Now().Before(expiry) {
			return StatusCached, c.results[key], nil
		}
		delete(c.results, key)
		delete(c.expiry, key)
	}

	if done, exists := c.inFlight[key]; exists {
		return StatusInFlight, nil, done
	}

	done := make(chan struct{})
	c.inFlight[key] = done
	return StatusNotFound, nil, done
}

// WaitForResult blocks until the in-flight submission finishes or ctx is
// done. It returns nil when the submission failed.
func (c *SubmissionCache) WaitForResult(ctx context.Context, key string, done chan struct{}) (TransactionResponse, error) {
	select {
	case <-done:
		return c.Get(key), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the cached response for key, or nil.
func (c *SubmissionCache) Get(key string) TransactionResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, exists := c.expiry[key]
	if !exists {
		return nil
	}
	if time.Now().After(expiry) {
		delete(c.results, key)
		delete(c.expiry, key)
		return nil
	}
	return c.results[key]
}

// Complete caches resp and releases waiters.
func (c *SubmissionCache) Complete(key string, resp TransactionResponse, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results[key] = resp
	c.expiry[key] = time.Now().Add(c.ttl)
	delete(c.inFlight, key)
	close(done)

	c.cleanupExpiredLocked()
}

// Fail releases waiters without caching, so the submission can be retried.
func (c *SubmissionCache) Fail(key string, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inFlight, key)
	close(done)
}

// Len returns the number of cached responses, expired or not.
func (c *SubmissionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// Must be called with c.mu held.
func (c *SubmissionCache) cleanupExpiredLocked() {
	now := time.Now()
	for key, expiry := range c.expiry {
		if now.After(expiry) {
			delete(c.results, key)
			delete(c.expiry, key)
		}
	}
}
