package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	Remove(key string)
}

const DefaultCacheSize = 1024

// An asset is cached under both its id and its current name; callers
// drop both entries whenever the asset row changes.
func AssetIDKey(assetID string) string {
	return fmt.Sprintf("asset:id:%s", assetID)
}

func AssetNameKey(name string) string {
	return fmt.Sprintf("asset:name:%s", name)
}

type LocalCache struct {
	*lru.Cache
}

func NewLocalCache(size uint64) (Cache, error) {
	cache, err := lru.New(int(size))
	if err != nil {
		return nil, err
	}
	return &LocalCache{
		cache,
	}, nil
}

func (c *LocalCache) Get(key string) (interface{}, bool) {
	return c.Cache.Get(key)
}

func (c *LocalCache) Set(key string, value interface{}) {
	c.Cache.Add(key, value)
}

func (c *LocalCache) Remove(key string) {
	c.Cache.Remove(key)
}
