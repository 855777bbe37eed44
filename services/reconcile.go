package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"hyperblend/models"
	"hyperblend/providers"
	"hyperblend/storage"
)

// Engine reichert eine einzelne Verbindung über die Adapter in fester Reihenfolge an.
type Engine struct {
	Repo     *storage.Repository
	Adapters []providers.Adapter
	Logger   *zap.Logger
	Now      func() time.Time
}

// NewEngine erstellt eine Engine. Die Reihenfolge der Adapter ist die Priorität beim Füllen der Felder.
func NewEngine(repo *storage.Repository, adapters []providers.Adapter, logger *zap.Logger) *Engine {
	return &Engine{Repo: repo, Adapters: adapters, Logger: logger, Now: time.Now}
}

// Result ist der Zustand einer Anreicherung nach dem Durchlauf der Zustandsmaschine.
type Result struct {
	Compound    *models.Compound
	State       models.EnrichmentState
	Transitions []models.EnrichmentState
	// Adapter, die Daten geliefert haben
	Adapters []string
	// Adapter, die nach allen Versuchen nicht erreichbar waren
	Unavailable  []string
	Sources      []models.Source
	Interactions []models.Mechanism
	Warnings     []string
	// Cache gilt für den gesamten Lauf dieser Verbindung und wird an die Target-Suche weitergereicht.
	Cache *providers.RunCache
	// Existing ist gesetzt, wenn die Verbindung bereits im Graph lag.
	Existing bool
	// Changed meldet, ob sich der Datensatz gegenüber dem gespeicherten Stand verändert hat.
	Changed bool
}

func (r *Result) to(s models.EnrichmentState) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Enrich durchläuft Pending, Validating, Standardizing und Enriching und endet in Merged,
// PartiallyEnriched oder Rejected. Bei Rejected wird zusätzlich ein ValidationError geliefert.
// Gespeichert wird noch nichts, siehe Persist.
func (e *Engine) Enrich(ctx context.Context, req models.CompoundRequest) (*Result, error) {
	res := &Result{Cache: providers.NewRunCache()}
	log := e.Logger.With(zap.String("query", req.Label()))

	res.to(models.StatePending)
	base, err := e.Repo.FindCompound(ctx, req)
	if err != nil {
		return res, persistErr("find compound", err)
	}
	var c *models.Compound
	var changes mergeLog
	if base != nil {
		c = base.Clone()
		res.Existing = true
	} else {
		c = &models.Compound{ID: strings.TrimSpace(req.ID)}
		if c.ID == "" {
			c.ID = models.NewCompoundID()
		}
		changes.Changed = append(changes.Changed, "id")
	}
	res.Compound = c

	name := cleanName(req.Name)
	fillString("name", &c.Name, name, &changes)
	if name != "" && models.CanonicalName(name) != models.CanonicalName(c.Name) {
		unionSynonyms(&c.Synonyms, synonymsFrom("query", name), &changes)
	}
	fillString("smiles", &c.SMILES, stripSpace(req.SMILES), &changes)
	for _, k := range models.CompoundIDKinds {
		e.assignExternalID(ctx, res, k, stripSpace(req.ExternalIDs.Get(k)), &changes)
	}
	if req.Source != nil && strings.TrimSpace(req.Source.Name) != "" {
		res.Sources = append(res.Sources, *req.Source.Clone())
	}

	res.to(models.StateValidating)
	if strings.TrimSpace(c.Name) == "" {
		res.to(models.StateRejected)
		compoundsProcessed.WithLabelValues(string(res.State)).Inc()
		return res, &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	res.to(models.StateStandardizing)
	standardizeCompound(c)

	res.to(models.StateEnriching)
	cache := res.Cache
	for _, a := range e.Adapters {
		if ctx.Err() != nil {
			break
		}
		q := models.Query{Name: c.Name, SMILES: c.SMILES, ExternalID: c.ExternalIDs.Get(a.IDKind())}
		rec, err := cache.Fetch(ctx, a, q)
		switch {
		case errors.Is(err, providers.ErrNotFound):
			adapterRequests.WithLabelValues(a.Name(), "not_found").Inc()
			log.Debug("Quelle kennt die Verbindung nicht", zap.String("source", a.Name()))
			continue
		case err != nil:
			adapterRequests.WithLabelValues(a.Name(), "error").Inc()
			res.Unavailable = append(res.Unavailable, a.Name())
			res.warn("%s: %v", a.Name(), err)
			log.Warn("Quelle nicht verfügbar", zap.String("source", a.Name()), zap.Error(err))
			continue
		}
		adapterRequests.WithLabelValues(a.Name(), "ok").Inc()
		standardizePartial(rec)
		if rec.Source == "" {
			rec.Source = a.Name()
		}
		e.applyPartial(ctx, res, rec, &changes)
		res.Adapters = append(res.Adapters, a.Name())
	}

	switch {
	case len(res.Adapters) > 0:
		res.to(models.StateMerged)
	case c.HasIdentifyingField():
		res.to(models.StatePartiallyEnriched)
	default:
		res.to(models.StateRejected)
		compoundsProcessed.WithLabelValues(string(res.State)).Inc()
		return res, &ValidationError{Field: "identity", Reason: "no source returned data and the record has neither smiles nor external id"}
	}

	res.Changed = changes.changed()
	if res.Changed {
		now := e.now()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
	}
	compoundsProcessed.WithLabelValues(string(res.State)).Inc()
	log.Info("Anreicherung abgeschlossen",
		zap.String("compound_id", c.ID),
		zap.String("state", string(res.State)),
		zap.Strings("adapters", res.Adapters),
		zap.Bool("changed", res.Changed))
	return res, nil
}

// applyPartial führt eine Adapter-Antwort in den Datensatz zusammen. Externe Kennungen, die
// bereits einer anderen Verbindung gehören, werden nicht übernommen.
func (e *Engine) applyPartial(ctx context.Context, res *Result, rec *models.PartialRecord, changes *mergeLog) {
	p := *rec
	p.ExternalIDs = models.ExternalIDs{}
	for _, k := range models.CompoundIDKinds {
		e.assignExternalID(ctx, res, k, rec.ExternalIDs.Get(k), changes)
	}
	l := MergeCompound(res.Compound, &p)
	changes.add(l)
	for _, c := range l.Conflicts {
		res.warn("%s: %s", rec.Source, c)
	}
	for _, o := range rec.Organisms {
		if o.Name != "" {
			res.Sources = append(res.Sources, o)
		}
	}
	res.Interactions = append(res.Interactions, rec.Interactions...)
}

// assignExternalID setzt eine externe Kennung, sofern sie frei ist und keiner anderen Verbindung gehört.
func (e *Engine) assignExternalID(ctx context.Context, res *Result, kind, value string, changes *mergeLog) {
	if value == "" {
		return
	}
	c := res.Compound
	ref := c.ExternalIDs.Ref(kind)
	if *ref != "" {
		if *ref != value {
			res.warn("%s: behalte %s, ignoriere %s", kind, *ref, value)
		}
		return
	}
	owner, err := e.Repo.CompoundIDByExternalID(ctx, kind, value)
	if err != nil {
		res.warn("%s %s: Eigentümer nicht prüfbar: %v", kind, value, err)
		return
	}
	if owner != "" && owner != c.ID {
		res.warn("%s %s gehört bereits zu %s", kind, value, owner)
		return
	}
	setExternalID(kind, ref, value, changes)
}

// PersistResult zählt, was Persist geschrieben hat.
type PersistResult struct {
	Compound      *models.Compound
	SourceLinks   int
	SourcesSaved  int
	CompoundSaved bool
}

// Persist schreibt das Ergebnis einer Anreicherung in den Graph. Der gespeicherte Stand wird
// vorher erneut gelesen und nur um fehlende Felder ergänzt, damit parallele Läufe nichts überschreiben.
func (e *Engine) Persist(ctx context.Context, res *Result) (*PersistResult, error) {
	if res == nil || res.Compound == nil || res.State == models.StateRejected || !res.State.Terminal() {
		return nil, &ValidationError{Field: "state", Reason: "only merged or partially enriched records can be stored"}
	}
	out := &PersistResult{Compound: res.Compound}

	stored, err := e.Repo.GetCompound(ctx, res.Compound.ID)
	switch {
	case errors.Is(err, storage.ErrNodeNotFound):
		if err := e.Repo.SaveCompound(ctx, res.Compound); err != nil {
			return out, persistErr("save compound", err)
		}
		out.CompoundSaved = true
	case err != nil:
		return out, persistErr("load compound", err)
	default:
		merged := stored.Clone()
		if l := MergeCompoundRecords(merged, res.Compound); l.changed() {
			merged.UpdatedAt = e.now()
			if err := e.Repo.SaveCompound(ctx, merged); err != nil {
				return out, persistErr("save compound", err)
			}
			out.CompoundSaved = true
		}
		out.Compound = merged
	}

	seen := make(map[string]bool)
	for i := range res.Sources {
		src := res.Sources[i]
		src.Name = cleanName(src.Name)
		if src.Name == "" {
			continue
		}
		id, saved, err := e.saveSource(ctx, &src)
		if err != nil {
			return out, err
		}
		if saved {
			out.SourcesSaved++
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		linked, err := e.Repo.SourceLinked(ctx, out.Compound.ID, id)
		if err != nil {
			return out, persistErr("load source link", err)
		}
		if !linked {
			if err := e.Repo.LinkSource(ctx, out.Compound.ID, id); err != nil {
				return out, persistErr("link source", err)
			}
		}
		out.SourceLinks++
	}
	return out, nil
}

// saveSource legt eine Quelle an oder ergänzt die vorhandene und liefert ihre Kennung.
func (e *Engine) saveSource(ctx context.Context, src *models.Source) (string, bool, error) {
	existing, err := e.Repo.FindSource(ctx, src.Name)
	if err != nil {
		return "", false, persistErr("find source", err)
	}
	now := e.now()
	if existing == nil {
		s := src.Clone()
		s.ID = models.SourceID(s.Name)
		if s.Type == "" {
			s.Type = models.SourceOther
		}
		s.CreatedAt, s.UpdatedAt = now, now
		return s.ID, true, persistErr("save source", e.Repo.SaveSource(ctx, s))
	}
	merged := existing.Clone()
	if l := MergeSource(merged, src); !l.changed() {
		return existing.ID, false, nil
	}
	merged.UpdatedAt = now
	return existing.ID, true, persistErr("save source", e.Repo.SaveSource(ctx, merged))
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}
