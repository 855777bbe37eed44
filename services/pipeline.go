package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hyperblend/config"
	"hyperblend/models"
	"hyperblend/providers"
	"hyperblend/providers/chembl"
	"hyperblend/providers/coconut"
	"hyperblend/providers/napralert"
	"hyperblend/providers/pubchem"
	"hyperblend/providers/uniprot"
	"hyperblend/storage"
)

// BuildAdapters erstellt die Adapter in der Reihenfolge von ADAPTER_PRIORITY.
func BuildAdapters(cfg *config.Config, logger *zap.Logger) ([]providers.Adapter, error) {
	var adapters []providers.Adapter
	for _, name := range cfg.Priority() {
		switch name {
		case "pubchem":
			adapters = append(adapters, pubchem.NewFetcher(cfg, logger))
		case "chembl":
			adapters = append(adapters, chembl.NewFetcher(cfg, logger))
		case "napralert":
			adapters = append(adapters, napralert.NewFetcher(cfg, logger))
		case "coconut":
			adapters = append(adapters, coconut.NewFetcher(cfg, logger))
		case "uniprot":
			logger.Warn("UniProt dient nur der Target-Annotation und wird in ADAPTER_PRIORITY ignoriert")
		default:
			logger.Warn("Unbekannte Quelle in der Konfiguration", zap.String("source", name))
		}
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no valid adapters enabled, check ADAPTER_PRIORITY")
	}
	return adapters, nil
}

// NewPipeline verdrahtet Engine, Target-Suche und Orchestrator über dem Graph.
func NewPipeline(cfg *config.Config, store storage.GraphStore, runLog *storage.RunLog, logger *zap.Logger) (*Orchestrator, error) {
	adapters, err := BuildAdapters(cfg, logger)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		names = append(names, a.Name())
	}
	logger.Info("Aktive Quellen geladen", zap.Strings("sources", names))

	repo := storage.NewRepository(store, logger)
	engine := NewEngine(repo, adapters, logger)

	var discovery *TargetDiscovery
	if cfg.DiscoverTargets {
		mech := chembl.NewFetcher(cfg, logger)
		discovery = &TargetDiscovery{
			Repo:       repo,
			Mechanisms: mech,
			Details:    mech,
			Annotator:  uniprot.NewFetcher(cfg, logger),
			Logger:     logger,
		}
	}
	return NewOrchestrator(engine, discovery, runLog, cfg.BatchConcurrency, logger), nil
}

// UpsertSource legt eine Quelle an oder ergänzt die vorhandene und liefert den gespeicherten Stand.
func (e *Engine) UpsertSource(ctx context.Context, src *models.Source) (*models.Source, error) {
	cp := src.Clone()
	cp.Name = cleanName(cp.Name)
	if cp.Name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	id, _, err := e.saveSource(ctx, cp)
	if err != nil {
		return nil, err
	}
	saved, err := e.Repo.GetSource(ctx, id)
	return saved, persistErr("load source", err)
}
