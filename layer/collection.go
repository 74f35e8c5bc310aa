// Package layer drives the dot layer: the in-memory activity collection
// and the frame loop that turns it into line segments and animated dots
// for whatever sink the caller hangs off it.
package layer

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/golang/groupcache/lru"
	"github.com/jellydator/ttlcache/v3"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/rotblauer/dotd/params"
	"github.com/rotblauer/dotd/types/activity"
)

// ErrDuplicateRecord is returned when an incoming record hashes to one
// already admitted.
var ErrDuplicateRecord = errors.New("duplicate record")

// Collection is the in-memory membership of activities. Entries not
// touched within the TTL are evicted; the raw record store keeps the
// durable copy.
type Collection struct {
	cache  *ttlcache.Cache[int64, *activity.Activity]
	dedupe func(*activity.RawRecord) bool
	cfg    *params.RenderConfig
	logger *slog.Logger
}

func NewCollection() *Collection {
	return NewCollectionWithConfig(nil)
}

func NewCollectionWithConfig(cfg *params.RenderConfig) *Collection {
	if cfg == nil {
		cfg = params.DefaultRenderConfig
	}
	cache := ttlcache.New[int64, *activity.Activity](
		ttlcache.WithTTL[int64, *activity.Activity](params.CollectionTTL))
	go cache.Start()
	return &Collection{
		cache:  cache,
		dedupe: newDedupePassLRUFunc(),
		cfg:    cfg,
		logger: slog.With("d", "layer"),
	}
}

// newDedupePassLRUFunc returns true if the record is not a duplicate,
// using a Least Recently Used (LRU) cache over the record hash.
func newDedupePassLRUFunc() func(*activity.RawRecord) bool {
	dedupeCache := lru.New(params.DedupeCacheSize)
	return func(rec *activity.RawRecord) bool {
		hash, err := hashstructure.Hash(rec, hashstructure.FormatV2, nil)
		if err != nil {
			return false
		}
		key := fmt.Sprintf("%d", hash)
		if _, ok := dedupeCache.Get(key); ok {
			return false
		}
		dedupeCache.Add(key, true)
		return true
	}
}

// Add constructs an Activity from the record and admits it.
// Duplicate pushes of a resident activity are dropped with
// ErrDuplicateRecord. The dedupe hash can outlive TTL eviction, so a
// stale hash alone never blocks re-admission of an evicted activity.
func (c *Collection) Add(rec *activity.RawRecord) (*activity.Activity, error) {
	if !c.dedupe(rec) && c.cache.Has(int64(rec.ID)) {
		return nil, ErrDuplicateRecord
	}
	a, err := activity.NewActivityWithConfig(rec, c.cfg)
	if err != nil {
		return nil, err
	}
	c.cache.Set(a.ID, a, ttlcache.DefaultTTL)
	return a, nil
}

// Get returns the activity by id, or nil. Touching an entry refreshes
// its TTL.
func (c *Collection) Get(id int64) *activity.Activity {
	item := c.cache.Get(id)
	if item == nil {
		return nil
	}
	return item.Value()
}

func (c *Collection) Len() int {
	return c.cache.Len()
}

// Range visits all activities in ascending id order, stopping early if
// fn returns false. The fixed order keeps frame output deterministic.
func (c *Collection) Range(fn func(a *activity.Activity) bool) {
	items := c.cache.Items()
	ids := make([]int64, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if item := items[id]; item != nil {
			if !fn(item.Value()) {
				return
			}
		}
	}
}

// Stop halts the TTL eviction loop.
func (c *Collection) Stop() {
	c.cache.Stop()
}
