package models

import "time"

// EnrichmentState ist der Zustand einer Verbindung im Anreicherungsablauf.
type EnrichmentState string

const (
	StatePending           EnrichmentState = "pending"
	StateValidating        EnrichmentState = "validating"
	StateStandardizing     EnrichmentState = "standardizing"
	StateEnriching         EnrichmentState = "enriching"
	StateMerged            EnrichmentState = "merged"
	StatePartiallyEnriched EnrichmentState = "partially_enriched"
	StateRejected          EnrichmentState = "rejected"
)

// Terminal meldet, ob der Zustand ein Endzustand ist.
func (s EnrichmentState) Terminal() bool {
	return s == StateMerged || s == StatePartiallyEnriched || s == StateRejected
}

// Failure ist ein fehlgeschlagenes Element eines Batch-Laufs.
type Failure struct {
	Query  string `json:"query"`
	Reason string `json:"reason"`
}

// ItemOutcome ist das Ergebnis für ein einzelnes Element eines Batch-Laufs.
type ItemOutcome struct {
	Query      string          `json:"query"`
	CompoundID string          `json:"compound_id,omitempty"`
	State      EnrichmentState `json:"state"`
	Adapters   []string        `json:"adapters,omitempty"`
	// AdapterErrors zählt die Quellen, die nach allen Versuchen nicht erreichbar waren.
	AdapterErrors       int      `json:"adapter_errors"`
	TargetsFound        int      `json:"targets_found"`
	TargetRelationships int      `json:"compound_target_relationships"`
	SourceRelationships int      `json:"source_compound_relationships"`
	Warnings            []string `json:"warnings,omitempty"`
	Error               string   `json:"error,omitempty"`
}

// Succeeded meldet, ob die Verbindung gespeichert wurde.
func (o ItemOutcome) Succeeded() bool {
	return o.Error == "" && (o.State == StateMerged || o.State == StatePartiallyEnriched)
}

// BatchReport fasst einen Batch-Lauf zusammen.
type BatchReport struct {
	RunID                       string        `json:"run_id"`
	StartedAt                   time.Time     `json:"started_at"`
	FinishedAt                  time.Time     `json:"finished_at"`
	CompoundsEnriched           int           `json:"compounds_enriched"`
	TargetsFound                int           `json:"targets_found"`
	CompoundTargetRelationships int           `json:"compound_target_relationships"`
	SourceCompoundRelationships int           `json:"source_compound_relationships"`
	Failures                    []Failure     `json:"failures"`
	Items                       []ItemOutcome `json:"items"`
}

// Add nimmt ein Einzelergebnis in den Bericht auf.
func (r *BatchReport) Add(o ItemOutcome) {
	r.Items = append(r.Items, o)
	if !o.Succeeded() {
		reason := o.Error
		if reason == "" {
			reason = string(o.State)
		}
		r.Failures = append(r.Failures, Failure{Query: o.Query, Reason: reason})
		return
	}
	r.CompoundsEnriched++
	r.TargetsFound += o.TargetsFound
	r.CompoundTargetRelationships += o.TargetRelationships
	r.SourceCompoundRelationships += o.SourceRelationships
}
