package notionstore

import (
	"sync"
	"time"

	"github.com/sells-group/enrich-cli/internal/model"
)

// PeopleCache holds people read from the people database. Entries live
// until the caller invalidates them, or until maxAge passes when it is
// positive. The Writer invalidates a person after changing their page.
type PeopleCache struct {
	mu       sync.RWMutex
	maxAge   time.Duration
	now      func() time.Time
	byID     map[string]cachedPerson
	all      []string
	loadedAt time.Time
}

type cachedPerson struct {
	person   model.Person
	storedAt time.Time
}

// NewPeopleCache creates an empty cache. A non-positive maxAge keeps
// entries until they are invalidated.
func NewPeopleCache(maxAge time.Duration) *PeopleCache {
	return &PeopleCache{maxAge: maxAge, now: time.Now, byID: make(map[string]cachedPerson)}
}

func (c *PeopleCache) fresh(at time.Time) bool {
	return c.maxAge <= 0 || c.now().Sub(at) < c.maxAge
}

// Get returns a cached person.
func (c *PeopleCache) Get(id string) (model.Person, bool) {
	if c == nil {
		return model.Person{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[id]
	if !ok || !c.fresh(e.storedAt) {
		return model.Person{}, false
	}
	return e.person, true
}

// Put caches one person.
func (c *PeopleCache) Put(p model.Person) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[p.ID] = cachedPerson{person: p, storedAt: c.now()}
}

// List returns the full people list when it was loaded with SetAll and
// nothing in it has been invalidated since.
func (c *PeopleCache) List() ([]model.Person, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.all == nil || !c.fresh(c.loadedAt) {
		return nil, false
	}
	out := make([]model.Person, 0, len(c.all))
	for _, id := range c.all {
		e, ok := c.byID[id]
		if !ok {
			return nil, false
		}
		out = append(out, e.person)
	}
	return out, true
}

// SetAll replaces the cache contents with a full people list.
func (c *PeopleCache) SetAll(people []model.Person) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.byID = make(map[string]cachedPerson, len(people))
	c.all = make([]string, 0, len(people))
	for _, p := range people {
		c.byID[p.ID] = cachedPerson{person: p, storedAt: now}
		c.all = append(c.all, p.ID)
	}
	c.loadedAt = now
}

// Invalidate drops one person. The full list is dropped with it.
func (c *PeopleCache) Invalidate(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
}

// InvalidateAll empties the cache.
func (c *PeopleCache) InvalidateAll() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[string]cachedPerson)
	c.all = nil
}

// Len returns the number of cached people.
func (c *PeopleCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}
