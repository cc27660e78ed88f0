// Package cache stores mined rule records keyed by dataset and mining parameters.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ppiankov/rulescan/internal/model"
)

// Cache is a byte-level key/value store with expiry
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey hashes the canonical baskets and mining parameters. Basket order
// matters; item order inside a basket does not.
func CacheKey(ts *model.TransactionSet, params model.MiningConfig) string {
	h := sha256.New()

	var buf [8]byte
	writeFloat := func(f float64) {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	writeFloat(params.MinSupport)
	writeFloat(params.MinConfidence)
	writeFloat(params.MinLift)
	binary.BigEndian.PutUint64(buf[:], uint64(params.MaxLength))
	h.Write(buf[:])

	if ts != nil {
		for _, b := range ts.Baskets {
			h.Write([]byte(b.Key()))
			h.Write([]byte{0x1e})
		}
	}

	return "rulescan:v1:" + hex.EncodeToString(h.Sum(nil))
}

// Records wraps a Cache with JSON encoding of rule record slices
type Records struct {
	store Cache
	ttl   time.Duration
}

// NewRecords wraps store; ttl 0 defers to the store's default
func NewRecords(store Cache, ttl time.Duration) *Records {
	return &Records{store: store, ttl: ttl}
}

// Get returns the cached records for key, if present and decodable
func (r *Records) Get(key string) ([]model.RuleRecord, bool) {
	data, ok := r.store.Get(key)
	if !ok {
		return nil, false
	}
	var records []model.RuleRecord
	if err := json.Unmarshal(data, &records); err != nil {
		_ = r.store.Delete(key)
		return nil, false
	}
	return records, true
}

// Put stores records under key
func (r *Records) Put(key string, records []model.RuleRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	return r.store.Set(key, data, r.ttl)
}
