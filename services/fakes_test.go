package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"hyperblend/models"
	"hyperblend/providers"
	"hyperblend/storage"
)

var fixedNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

// fakeAdapter antwortet je kanonischem Namen mit einem festen Datensatz.
type fakeAdapter struct {
	name    string
	idKind  string
	records map[string]*models.PartialRecord
	err     error

	mu    sync.Mutex
	calls []models.Query
}

func (f *fakeAdapter) Name() string   { return f.name }
func (f *fakeAdapter) IDKind() string { return f.idKind }

func (f *fakeAdapter) Fetch(ctx context.Context, q models.Query) (*models.PartialRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()
	if q.Empty() {
		return nil, providers.EmptyQueryError(f.name)
	}
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[models.CanonicalName(q.Name)]
	if !ok {
		return nil, providers.ErrNotFound
	}
	cp := *rec
	cp.Synonyms = append([]string(nil), rec.Synonyms...)
	cp.Organisms = append([]models.Source(nil), rec.Organisms...)
	cp.Interactions = append([]models.Mechanism(nil), rec.Interactions...)
	return &cp, nil
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeMechanisms struct {
	byCompound map[string][]models.Mechanism
	err        error
}

func (f *fakeMechanisms) Mechanisms(ctx context.Context, chemblID string) ([]models.Mechanism, error) {
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.byCompound[chemblID]
	if !ok {
		return nil, providers.ErrNotFound
	}
	return m, nil
}

type fakeDetails struct {
	details map[string]*models.TargetDetail
	calls   int
}

func (f *fakeDetails) TargetDetail(ctx context.Context, id string) (*models.TargetDetail, error) {
	f.calls++
	d, ok := f.details[id]
	if !ok {
		return nil, &providers.AdapterError{Source: "chembl", Op: "target " + id, StatusCode: 500, Err: errors.New("internal server error")}
	}
	return d, nil
}

func pubchemFake() *fakeAdapter {
	return &fakeAdapter{name: "pubchem", idKind: models.IDPubChem, records: map[string]*models.PartialRecord{
		"mescaline": {
			Source:           "pubchem",
			Name:             "Mescaline",
			SMILES:           "COc1cc(CCN)cc(OC)c1OC",
			MolecularFormula: "C11H17NO3",
			MolecularWeight:  models.Float(211.26),
			ExternalIDs:      models.ExternalIDs{PubChemID: "4076"},
			Synonyms:         []string{"Mescalin", "3,4,5-Trimethoxyphenethylamine", "MESCALINE"},
		},
	}}
}

func chemblFake() *fakeAdapter {
	return &fakeAdapter{name: "chembl", idKind: models.IDChEMBL, records: map[string]*models.PartialRecord{
		"mescaline": {
			Source:           "chembl",
			Name:             "MESCALINE",
			SMILES:           "COc1cc(CCN)cc(OC)c1OC",
			MolecularFormula: "C11H17NO3",
			MolecularWeight:  models.Float(211.27),
			ExternalIDs:      models.ExternalIDs{ChEMBLID: "CHEMBL26687"},
			Synonyms:         []string{"mescaline", "Mezcalin"},
			Interactions: []models.Mechanism{{
				TargetChEMBLID: "CHEMBL5857",
				TargetName:     "Trace amine-associated receptor 1",
				TargetType:     "SINGLE PROTEIN",
				Organism:       models.HumanOrganism,
				Interaction:    models.Interaction{Action: "AGONIST", ActionType: "IC50", ActionValue: models.Float(120.0), ActionUnit: "nM"},
			}},
		},
	}}
}

type testEnv struct {
	store     *storage.MemoryStore
	repo      *storage.Repository
	engine    *Engine
	discovery *TargetDiscovery
	orch      *Orchestrator
}

func newTestEnv(t *testing.T, adapters ...providers.Adapter) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := storage.NewMemoryStore()
	repo := storage.NewRepository(store, logger)
	engine := NewEngine(repo, adapters, logger)
	engine.Now = func() time.Time { return fixedNow }
	discovery := &TargetDiscovery{Repo: repo, Logger: logger, Now: func() time.Time { return fixedNow }}
	return &testEnv{
		store:     store,
		repo:      repo,
		engine:    engine,
		discovery: discovery,
		orch:      NewOrchestrator(engine, discovery, nil, 4, logger),
	}
}
