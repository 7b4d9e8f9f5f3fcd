package identity

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// resolverCaches holds the in-process LRU caches that let the
// resolver avoid a database round trip for every chunk of an active
// ingestion run. They must be invalidated with ClearCaches after any
// operation that can change which person an identifier maps to (a
// merge, a bulk import, a manual edit).
type resolverCaches struct {
	byChannelID *lru.Cache[string, uint64]
	byPhone     *lru.Cache[string, uint64]
	byEmail     *lru.Cache[string, uint64]
	byName      *lru.Cache[string, uint64]
}

func newResolverCaches() *resolverCaches {
	byChannelID, _ := lru.New[string, uint64](512)
	byPhone, _ := lru.New[string, uint64](512)
	byEmail, _ := lru.New[string, uint64](512)
	byName, _ := lru.New[string, uint64](1024)
	return &resolverCaches{
		byChannelID: byChannelID,
		byPhone:     byPhone,
		byEmail:     byEmail,
		byName:      byName,
	}
}

func (c *resolverCaches) clear() {
	c.byChannelID.Purge()
	c.byPhone.Purge()
	c.byEmail.Purge()
	c.byName.Purge()
}
