package tray

import (
	"time"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"

	"github.com/devalexanderdaza/antigravity-agent/internal/logging"
)

var accountsKey = []byte("accounts")

// CachedAccounts serves the account list from memory between menu
// rebuilds. Invalidate drops it when the backups directory changes.
type CachedAccounts struct {
	source AccountSource
	cache  *freecache.Cache
	ttl    int
	logger logging.Logger
}

// NewCachedAccounts wraps source with a cache of sizeMB megabytes whose
// entries expire after ttl. A ttl below one second disables caching.
func NewCachedAccounts(source AccountSource, sizeMB int, ttl time.Duration, logger logging.Logger) *CachedAccounts {
	if logger == nil {
		logger = logging.Nop()
	}
	if ttl < time.Second {
		return &CachedAccounts{source: source, logger: logger}
	}
	if sizeMB <= 0 {
		sizeMB = 1
	}
	return &CachedAccounts{
		source: source,
		cache:  freecache.NewCache(sizeMB * 1024 * 1024),
		ttl:    int(ttl.Seconds()),
		logger: logger,
	}
}

// IDs returns the cached account list, loading it from the source on a miss.
func (c *CachedAccounts) IDs() ([]string, error) {
	if c.cache == nil {
		return c.source.IDs()
	}
	if data, err := c.cache.Get(accountsKey); err == nil {
		var ids []string
		if err := json.Unmarshal(data, &ids); err == nil {
			return ids, nil
		}
	}

	ids, err := c.source.IDs()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(ids)
	if err == nil {
		if err := c.cache.Set(accountsKey, data, c.ttl); err != nil {
			c.logger.Debugf(logging.TypeTray, "account cache set failed: %v", err)
		}
	}
	return ids, nil
}

// Invalidate drops the cached list.
func (c *CachedAccounts) Invalidate() {
	if c.cache != nil {
		c.cache.Del(accountsKey)
	}
}
