package server

import "sync"

// defaultRecentRuns is how many finished runs the server keeps for lookup
// when no database is configured.
const defaultRecentRuns = 100

// resultCache keeps the most recent run responses, evicting the oldest.
type resultCache struct {
	mu    sync.Mutex
	limit int
	order []string
	byID  map[string]*RunResponse
}

func newResultCache(limit int) *resultCache {
	return &resultCache{limit: limit, byID: make(map[string]*RunResponse)}
}

func (c *resultCache) put(id string, resp *RunResponse) {
	if id == "" || c.limit <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[id]; !ok {
		c.order = append(c.order, id)
	}
	c.byID[id] = resp

	for len(c.order) > c.limit {
		delete(c.byID, c.order[0])
		c.order = c.order[1:]
	}
}

func (c *resultCache) get(id string) (*RunResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, ok := c.byID[id]
	return resp, ok
}
