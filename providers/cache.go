package providers

import (
	"context"
	"errors"
	"sync"

	"hyperblend/models"
)

type cacheEntry struct {
	rec *models.PartialRecord
	err error
}

type detailEntry struct {
	det *models.TargetDetail
	err error
}

// RunCache merkt sich Antworten der Quellen innerhalb des Laufs einer einzelnen Verbindung,
// von der Anreicherung bis zur Target-Suche.
// Gespeichert werden Treffer und ErrNotFound, vorübergehende Fehler nicht.
type RunCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	details map[string]detailEntry
	hits    int
}

// NewRunCache erstellt einen leeren Cache für einen Lauf.
func NewRunCache() *RunCache {
	return &RunCache{entries: make(map[string]cacheEntry), details: make(map[string]detailEntry)}
}

// Fetch ruft den Adapter auf, sofern dieselbe Anfrage nicht bereits beantwortet wurde.
func (c *RunCache) Fetch(ctx context.Context, a Adapter, q models.Query) (*models.PartialRecord, error) {
	key := a.Name() + "\x1e" + q.Key()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return e.rec, e.err
	}
	c.mu.Unlock()

	rec, err := a.Fetch(ctx, q)
	if err == nil || errors.Is(err, ErrNotFound) {
		c.mu.Lock()
		c.entries[key] = cacheEntry{rec: rec, err: err}
		c.mu.Unlock()
	}
	return rec, err
}

// TargetDetail fragt die Details eines Targets nur einmal je Kennung ab.
func (c *RunCache) TargetDetail(ctx context.Context, src TargetDetailSource, targetID string) (*models.TargetDetail, error) {
	c.mu.Lock()
	if e, ok := c.details[targetID]; ok {
		c.hits++
		c.mu.Unlock()
		return e.det, e.err
	}
	c.mu.Unlock()

	det, err := src.TargetDetail(ctx, targetID)
	if err == nil || errors.Is(err, ErrNotFound) {
		c.mu.Lock()
		c.details[targetID] = detailEntry{det: det, err: err}
		c.mu.Unlock()
	}
	return det, err
}

// Hits liefert die Anzahl der aus dem Cache beantworteten Anfragen.
func (c *RunCache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}
