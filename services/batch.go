package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hyperblend/models"
	"hyperblend/storage"
)

// DefaultConcurrency ist die Zahl gleichzeitig bearbeiteter Verbindungen eines Batch-Laufs.
const DefaultConcurrency = 8

// Orchestrator führt Anreicherung und Target-Suche für viele Verbindungen mit begrenzter Parallelität aus.
type Orchestrator struct {
	Engine      *Engine
	Discovery   *TargetDiscovery
	RunLog      *storage.RunLog
	Concurrency int
	Logger      *zap.Logger

	locks keyedMutex
}

// NewOrchestrator erstellt den Orchestrator. discovery und runLog dürfen nil sein.
func NewOrchestrator(engine *Engine, discovery *TargetDiscovery, runLog *storage.RunLog, concurrency int, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{Engine: engine, Discovery: discovery, RunLog: runLog, Concurrency: concurrency, Logger: logger}
}

// Run verarbeitet alle Anfragen. Fehler einzelner Elemente landen im Bericht, der Lauf wird nie abgebrochen.
// Ein Fehler wird nur geliefert, wenn der Graph beim Start nicht erreichbar ist.
func (o *Orchestrator) Run(ctx context.Context, trigger string, items []models.CompoundRequest) (*models.BatchReport, error) {
	if p, ok := o.Engine.Repo.Store.(storage.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return nil, persistErr("ping graph", err)
		}
	}

	rep := &models.BatchReport{RunID: uuid.NewString(), StartedAt: time.Now().UTC(), Failures: []models.Failure{}}
	log := o.Logger.With(zap.String("run_id", rep.RunID), zap.String("trigger", trigger))
	log.Info("Starte Batch-Lauf", zap.Int("items", len(items)))
	batchRuns.WithLabelValues(trigger).Inc()

	limit := o.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	outcomes := make([]models.ItemOutcome, len(items))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range items {
		i, req := i, req
		g.Go(func() error {
			outcomes[i] = o.Process(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		rep.Add(out)
	}
	rep.FinishedAt = time.Now().UTC()
	log.Info("Batch-Lauf abgeschlossen",
		zap.Int("compounds_enriched", rep.CompoundsEnriched),
		zap.Int("targets_found", rep.TargetsFound),
		zap.Int("failures", len(rep.Failures)),
		zap.Duration("duration", rep.FinishedAt.Sub(rep.StartedAt)))

	if o.RunLog != nil {
		if err := o.RunLog.Save(ctx, trigger, rep); err != nil {
			log.Error("Konnte Batch-Lauf nicht protokollieren", zap.Error(err))
		}
	}
	return rep, nil
}

// RunAll reichert alle gespeicherten Verbindungen erneut an.
func (o *Orchestrator) RunAll(ctx context.Context, trigger string) (*models.BatchReport, error) {
	compounds, err := o.Engine.Repo.ListCompounds(ctx, nil, 0)
	if err != nil {
		return nil, persistErr("list compounds", err)
	}
	items := make([]models.CompoundRequest, 0, len(compounds))
	for _, c := range compounds {
		items = append(items, models.CompoundRequest{ID: c.ID, Name: c.Name})
	}
	return o.Run(ctx, trigger, items)
}

// Process führt die Pipeline für eine einzelne Verbindung aus:
// Validieren, Standardisieren, Anreichern, Speichern, Targets suchen.
func (o *Orchestrator) Process(ctx context.Context, req models.CompoundRequest) models.ItemOutcome {
	out := models.ItemOutcome{Query: req.Label(), State: models.StatePending}

	unlock := o.locks.Lock(lockKey(req))
	defer unlock()

	res, err := o.Engine.Enrich(ctx, req)
	if res != nil {
		out.State = res.State
		out.Adapters = res.Adapters
		out.AdapterErrors = len(res.Unavailable)
		out.Warnings = res.Warnings
		if res.Compound != nil && res.State != models.StateRejected {
			out.CompoundID = res.Compound.ID
		}
	}
	if err != nil {
		out.Error = err.Error()
		return out
	}

	saved, err := o.Engine.Persist(ctx, res)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.SourceRelationships = saved.SourceLinks

	if o.Discovery == nil {
		return out
	}
	found, err := o.Discovery.Discover(ctx, saved.Compound, res.Interactions, res.Cache)
	if found != nil {
		out.TargetsFound = len(found.Targets)
		out.TargetRelationships = found.Relationships
		if found.NonHuman > 0 {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%d nicht-menschliche Targets verworfen", found.NonHuman))
		}
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// lockKey serialisiert Läufe für dieselbe Verbindung, damit keine doppelten Knoten entstehen.
func lockKey(req models.CompoundRequest) string {
	if cn := models.CanonicalName(req.Name); cn != "" {
		return cn
	}
	if req.ID != "" {
		return req.ID
	}
	return req.Label()
}

// keyedMutex ist ein Mutex je Schlüssel. Einträge werden freigegeben, sobald niemand mehr wartet.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
