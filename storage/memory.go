package storage

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

type edgeKey struct {
	label, from, to string
}

// MemoryStore ist ein Graph im Speicher, für Tests und GRAPH_BACKEND=memory.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	edges map[edgeKey]*Edge
	// Writes zählt Schreibzugriffe, damit Tests Idempotenz prüfen können.
	Writes int
}

// NewMemoryStore erstellt einen leeren Graph.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nodes: make(map[string]*Node), edges: make(map[edgeKey]*Edge)}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Get(ctx context.Context, id string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return &Node{Label: n.Label, ID: n.ID, Props: copyProps(n.Props)}, nil
}

func (m *MemoryStore) MergeNode(ctx context.Context, label, id string, props map[string]any) (*Node, error) {
	if err := checkLabel(label); err != nil {
		return nil, err
	}
	if err := checkKeys(props); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[id]
	if ok && n.Label != label {
		return nil, fmt.Errorf("node %s exists with label %s", id, n.Label)
	}
	if !ok {
		n = &Node{Label: label, ID: id, Props: map[string]any{}}
		m.nodes[id] = n
	}
	n.Props = mergeProps(n.Props, props)
	n.Props["id"] = id
	m.Writes++
	return &Node{Label: n.Label, ID: n.ID, Props: copyProps(n.Props)}, nil
}

func (m *MemoryStore) MergeEdge(ctx context.Context, label, fromID, toID string, props map[string]any) (*Edge, error) {
	if err := checkRel(label); err != nil {
		return nil, err
	}
	if err := checkKeys(props); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[fromID]; !ok {
		return nil, fmt.Errorf("%s: %w", fromID, ErrNodeNotFound)
	}
	if _, ok := m.nodes[toID]; !ok {
		return nil, fmt.Errorf("%s: %w", toID, ErrNodeNotFound)
	}
	k := edgeKey{label, fromID, toID}
	e, ok := m.edges[k]
	if !ok {
		e = &Edge{Label: label, FromID: fromID, ToID: toID, Props: map[string]any{}}
		m.edges[k] = e
	}
	e.Props = mergeProps(e.Props, props)
	m.Writes++
	return &Edge{Label: e.Label, FromID: e.FromID, ToID: e.ToID, Props: copyProps(e.Props)}, nil
}

func (m *MemoryStore) Query(ctx context.Context, f Filter) ([]*Node, error) {
	if err := checkLabel(f.Label); err != nil {
		return nil, err
	}
	if err := checkKeys(f.Where); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Node
	for _, n := range m.nodes {
		if n.Label != f.Label || !matches(n.Props, f.Where) {
			continue
		}
		out = append(out, &Node{Label: n.Label, ID: n.ID, Props: copyProps(n.Props)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Edges(ctx context.Context, f EdgeFilter) ([]*Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Edge
	for k, e := range m.edges {
		if (f.Label != "" && k.label != f.Label) || (f.FromID != "" && k.from != f.FromID) || (f.ToID != "" && k.to != f.ToID) {
			continue
		}
		out = append(out, &Edge{Label: e.Label, FromID: e.FromID, ToID: e.ToID, Props: copyProps(e.Props)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FromID != out[j].FromID {
			return out[i].FromID < out[j].FromID
		}
		if out[i].ToID != out[j].ToID {
			return out[i].ToID < out[j].ToID
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}

func (m *MemoryStore) DeleteNode(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[id]; !ok {
		return ErrNodeNotFound
	}
	for k := range m.edges {
		if k.from == id || k.to == id {
			delete(m.edges, k)
		}
	}
	delete(m.nodes, id)
	return nil
}

func matches(props, where map[string]any) bool {
	for k, v := range where {
		if !reflect.DeepEqual(props[k], v) {
			return false
		}
	}
	return true
}
