// Package catalog caches the server-owned menu. The cache is loaded
// wholesale, invalidated wholesale on a menu_updated event, and patched
// in place for single-item availability changes.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"tableside/internal/logger"
	"tableside/internal/models"
)

// Fetcher is the slice of the API client the catalog needs.
type Fetcher interface {
	GetMenu(ctx context.Context) ([]models.MenuItem, error)
}

// Cache holds the menu items for the current session. Availability
// patches arrive from push event handlers while the station loop reads,
// so the item list is guarded by a mutex.
type Cache struct {
	fetcher  Fetcher
	logger   *logger.Logger
	onChange func()

	mu     sync.Mutex
	items  []models.MenuItem
	loaded bool
}

// NewCache creates an empty catalog cache. onChange may be nil.
func NewCache(fetcher Fetcher, log *logger.Logger, onChange func()) *Cache {
	return &Cache{fetcher: fetcher, logger: log, onChange: onChange}
}

func (c *Cache) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Load replaces the cached catalog with a fresh fetch. On failure the
// previous catalog stays visible and the error is returned for a manual
// retry.
func (c *Cache) Load(ctx context.Context) error {
	items, err := c.fetcher.GetMenu(ctx)
	if err != nil {
		return fmt.Errorf("failed to load menu: %w", err)
	}

	c.mu.Lock()
	c.items = items
	c.loaded = true
	c.mu.Unlock()
	c.notify()
	return nil
}

// Loaded reports whether an initial fetch has completed.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Items returns a copy of the cached catalog.
func (c *Cache) Items() []models.MenuItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.MenuItem, len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the cached entry with the given id.
func (c *Cache) Get(itemID int) (models.MenuItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if item.ID == itemID {
			return item, true
		}
	}
	return models.MenuItem{}, false
}

// SetAvailability patches a single cached entry without re-fetching the
// catalog. An update for an item not in the cache logs a warning and
// leaves the cache untouched; the next full load will pick it up.
func (c *Cache) SetAvailability(itemID int, available bool) {
	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		c.logger.Warn("catalog_not_loaded", "Availability update before menu load, will apply on next load", "", map[string]interface{}{
			"item_id": itemID,
		})
		return
	}

	for i := range c.items {
		if c.items[i].ID == itemID {
			c.items[i].Available = available
			c.mu.Unlock()
			c.notify()
			return
		}
	}
	c.mu.Unlock()

	c.logger.Warn("catalog_item_unknown", "Availability update for item not in cached menu", "", map[string]interface{}{
		"item_id":   itemID,
		"available": available,
	})
}

// Categories returns the distinct categories in catalog order.
func (c *Cache) Categories() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]bool)
	var cats []string
	for _, item := range c.items {
		if !seen[item.Category] {
			seen[item.Category] = true
			cats = append(cats, item.Category)
		}
	}
	sort.Strings(cats)
	return cats
}

// Filter returns the cached items matching a category and a search term.
// Category "All" or "" matches everything; the search term is matched
// case-insensitively against the item name.
func (c *Cache) Filter(category, search string) []models.MenuItem {
	search = strings.ToLower(strings.TrimSpace(search))

	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.MenuItem
	for _, item := range c.items {
		if category != "" && category != "All" && item.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(item.Name), search) &&
			!strings.Contains(strings.ToLower(item.NameVi), search) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// BestSellers returns the cached items flagged as best sellers.
func (c *Cache) BestSellers() []models.MenuItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.MenuItem
	for _, item := range c.items {
		if item.BestSeller {
			out = append(out, item)
		}
	}
	return out
}
