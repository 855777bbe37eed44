package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Knoten-Labels im Graph.
const (
	LabelCompound = "Compound"
	LabelSource   = "Source"
	LabelTarget   = "Target"
	LabelSynonym  = "Synonym"
)

// Kanten-Typen im Graph.
const (
	RelFoundIn    = "FOUND_IN"
	RelBindsTo    = "BINDS_TO"
	RelHasSynonym = "HAS_SYNONYM"
)

// ErrNodeNotFound meldet, dass kein Knoten mit der Kennung existiert.
var ErrNodeNotFound = errors.New("node not found")

var (
	labels   = map[string]bool{LabelCompound: true, LabelSource: true, LabelTarget: true, LabelSynonym: true}
	relTypes = map[string]bool{RelFoundIn: true, RelBindsTo: true, RelHasSynonym: true}
	propKey  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Node ist ein Knoten mit Label, Kennung und Eigenschaften.
type Node struct {
	Label string         `json:"label"`
	ID    string         `json:"id"`
	Props map[string]any `json:"props"`
}

// Edge ist eine gerichtete Kante. Je (Label, From, To) existiert höchstens eine Kante.
type Edge struct {
	Label  string         `json:"label"`
	FromID string         `json:"from_id"`
	ToID   string         `json:"to_id"`
	Props  map[string]any `json:"props,omitempty"`
}

// Filter wählt Knoten eines Labels, deren Eigenschaften den Werten in Where gleichen.
type Filter struct {
	Label string
	Where map[string]any
	Limit int
}

// EdgeFilter wählt Kanten eines Typs. Leere Felder schränken nicht ein.
type EdgeFilter struct {
	Label  string
	FromID string
	ToID   string
}

// GraphStore ist der Zugang zum Graph. Alle Schreibzugriffe sind Merges (Upserts).
type GraphStore interface {
	// Get lädt einen Knoten per Kennung oder liefert ErrNodeNotFound.
	Get(ctx context.Context, id string) (*Node, error)
	// MergeNode legt den Knoten an oder überschreibt die übergebenen Eigenschaften.
	MergeNode(ctx context.Context, label, id string, props map[string]any) (*Node, error)
	// MergeEdge legt die Kante an oder überschreibt die übergebenen Eigenschaften. Beide Knoten müssen existieren.
	MergeEdge(ctx context.Context, label, fromID, toID string, props map[string]any) (*Edge, error)
	// Query liefert alle Knoten, die dem Filter entsprechen, sortiert nach Kennung.
	Query(ctx context.Context, f Filter) ([]*Node, error)
}

// Pinger wird von Backends implementiert, die ihre Erreichbarkeit prüfen können.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EdgeLister listet Kanten.
type EdgeLister interface {
	Edges(ctx context.Context, f EdgeFilter) ([]*Edge, error)
}

// NodeDeleter entfernt Knoten samt ihrer Kanten. Nur für administrative Bereinigung.
type NodeDeleter interface {
	DeleteNode(ctx context.Context, id string) error
}

// Backend ist ein vollständiges Graph-Backend.
type Backend interface {
	GraphStore
	Pinger
	EdgeLister
	NodeDeleter
}

func checkLabel(label string) error {
	if !labels[label] {
		return fmt.Errorf("unknown node label %q", label)
	}
	return nil
}

func checkRel(label string) error {
	if !relTypes[label] {
		return fmt.Errorf("unknown relationship type %q", label)
	}
	return nil
}

func checkKeys(m map[string]any) error {
	for k := range m {
		if !propKey.MatchString(k) {
			return fmt.Errorf("invalid property key %q", k)
		}
	}
	return nil
}

// mergeProps überträgt props nach dst. Ein nil-Wert entfernt den Schlüssel.
func mergeProps(dst, props map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(props))
	}
	for k, v := range props {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
	return dst
}

func copyProps(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
