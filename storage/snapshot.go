package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotPrefix ist das Präfix der Snapshot-Objekte im Bucket.
const SnapshotPrefix = "snapshots/"

// Snapshot ist ein vollständiger Export des Graphen.
type Snapshot struct {
	CreatedAt time.Time `json:"created_at"`
	Nodes     []*Node   `json:"nodes"`
	Edges     []*Edge   `json:"edges"`
}

// ExportSnapshot liest alle Knoten und Kanten aus dem Store.
func ExportSnapshot(ctx context.Context, store GraphStore, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{CreatedAt: now.UTC()}
	for _, label := range []string{LabelCompound, LabelSource, LabelTarget, LabelSynonym} {
		nodes, err := store.Query(ctx, Filter{Label: label})
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", label, err)
		}
		snap.Nodes = append(snap.Nodes, nodes...)
	}
	if lister, ok := store.(EdgeLister); ok {
		edges, err := lister.Edges(ctx, EdgeFilter{})
		if err != nil {
			return nil, fmt.Errorf("export edges: %w", err)
		}
		snap.Edges = edges
	}
	return snap, nil
}

// Gzip serialisiert den Snapshot als gzip-komprimiertes JSON.
func (s *Snapshot) Gzip() ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gzipWriter).Encode(s); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Key liefert den Objektnamen des Snapshots.
func (s *Snapshot) Key() string {
	return fmt.Sprintf("%sgraph-%s.json.gz", SnapshotPrefix, s.CreatedAt.Format("2006-01-02T15-04-05Z"))
}
