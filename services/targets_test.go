package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperblend/models"
	"hyperblend/providers"
	"hyperblend/storage"
)

func storedCompound(t *testing.T, env *testEnv, chemblID string) *models.Compound {
	t.Helper()
	c := &models.Compound{ID: "CMP_test", Name: "Testine", CanonicalName: "testine", ExternalIDs: models.ExternalIDs{ChEMBLID: chemblID}}
	require.NoError(t, env.repo.SaveCompound(context.Background(), c))
	return c
}

func TestDiscoverFiltersNonHumanTargets(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := storedCompound(t, env, "CHEMBL1")
	env.discovery.Mechanisms = &fakeMechanisms{byCompound: map[string][]models.Mechanism{"CHEMBL1": {
		{TargetName: "Serotonin 2a (5-HT2a) receptor", Organism: "Rattus norvegicus"},
		{TargetName: "Dopamine D2 receptor", Organism: "homo sapiens"},
		{TargetName: "Dopamine D2 receptor", Organism: models.HumanOrganism, Interaction: models.Interaction{ActionType: "Ki", ActionValue: models.Float(8)}},
	}}}

	res, err := env.discovery.Discover(ctx, c, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.NonHuman)
	require.Len(t, res.Targets, 1)
	assert.Equal(t, "Dopamine receptor D2", res.Targets[0].StandardizedName)

	targets, err := env.repo.ListTargets(ctx, "", 0)
	require.NoError(t, err)
	for _, tg := range targets {
		assert.Equal(t, models.HumanOrganism, tg.Organism)
	}
}

func TestDiscoverDeduplicatesByStandardizedName(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := storedCompound(t, env, "CHEMBL1")
	env.discovery.Mechanisms = &fakeMechanisms{byCompound: map[string][]models.Mechanism{"CHEMBL1": {
		{TargetChEMBLID: "CHEMBL224", TargetName: "Serotonin 5-HT2A receptor", Organism: models.HumanOrganism,
			Interaction: models.Interaction{Action: "AGONIST", Evidence: []string{"PubMed:1"}}},
		{TargetName: "5-HT2A serotonin receptor", Organism: models.HumanOrganism,
			Interaction: models.Interaction{ActionType: "EC50", ActionValue: models.Float(42), ActionUnit: "nM", Evidence: []string{"PubMed:2"}}},
	}}}

	res, err := env.discovery.Discover(ctx, c, nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Targets, 1)
	assert.Equal(t, 1, res.Relationships)

	links, err := env.repo.CompoundTargets(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	in := links[0].Interaction
	assert.Equal(t, "AGONIST", in.Action)
	assert.Equal(t, "EC50", in.ActionType)
	require.NotNil(t, in.ActionValue)
	assert.InDelta(t, 42.0, *in.ActionValue, 1e-9)
	assert.Equal(t, []string{"PubMed:1", "PubMed:2"}, in.Evidence)
	assert.Equal(t, "CHEMBL224", links[0].Target.ChEMBLID)
	assert.Equal(t, models.TargetReceptor, links[0].Target.Type)
}

func TestDiscoverSkipsTargetsWithFailingDetails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := storedCompound(t, env, "CHEMBL1")
	env.discovery.Mechanisms = &fakeMechanisms{byCompound: map[string][]models.Mechanism{"CHEMBL1": {
		{TargetChEMBLID: "CHEMBL_BROKEN"},
		{TargetChEMBLID: "CHEMBL217"},
	}}}
	env.discovery.Details = &fakeDetails{details: map[string]*models.TargetDetail{
		"CHEMBL217": {ChEMBLID: "CHEMBL217", Name: "Dopamine D2 receptor", Type: "SINGLE PROTEIN", Organism: models.HumanOrganism, UniProtID: "P14416"},
	}}

	res, err := env.discovery.Discover(ctx, c, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Targets, 1)
	assert.Equal(t, "P14416", res.Targets[0].UniProtID)
	assert.Equal(t, models.TargetID(models.TargetKey{StandardizedName: "Dopamine receptor D2", Organism: models.HumanOrganism}), res.Targets[0].ID)
}

func TestDiscoverLoadsEachTargetDetailOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := storedCompound(t, env, "CHEMBL1")
	env.discovery.Mechanisms = &fakeMechanisms{byCompound: map[string][]models.Mechanism{"CHEMBL1": {
		{TargetChEMBLID: "CHEMBL224", Interaction: models.Interaction{Action: "AGONIST"}},
		{TargetChEMBLID: "CHEMBL224", Interaction: models.Interaction{ActionType: "Ki", ActionValue: models.Float(3)}},
		{TargetChEMBLID: "CHEMBL224", Interaction: models.Interaction{Evidence: []string{"PubMed:9"}}},
	}}}
	details := &fakeDetails{details: map[string]*models.TargetDetail{
		"CHEMBL224": {ChEMBLID: "CHEMBL224", Name: "Serotonin 2a (5-HT2a) receptor", Type: "SINGLE PROTEIN", Organism: models.HumanOrganism},
	}}
	env.discovery.Details = details

	cache := providers.NewRunCache()
	res, err := env.discovery.Discover(ctx, c, nil, cache)
	require.NoError(t, err)
	require.Len(t, res.Targets, 1)
	assert.Equal(t, 1, details.calls)
	assert.Equal(t, 2, cache.Hits())

	// derselbe Lauf fragt auch bei einer weiteren Suche nicht erneut nach
	_, err = env.discovery.Discover(ctx, c, nil, cache)
	require.NoError(t, err)
	assert.Equal(t, 1, details.calls)
}

func TestDiscoverContinuesWhenMechanismsUnavailable(t *testing.T) {
	env := newTestEnv(t)
	c := storedCompound(t, env, "CHEMBL1")
	env.discovery.Mechanisms = &fakeMechanisms{err: &providers.AdapterError{Source: "chembl", Op: "mechanisms", Err: errors.New("timeout")}}

	carried := []models.Mechanism{{TargetName: "Cannabinoid CB1 receptor", Organism: models.HumanOrganism}}
	res, err := env.discovery.Discover(context.Background(), c, carried, nil)
	require.NoError(t, err)
	require.Len(t, res.Targets, 1)
	assert.Equal(t, "Cannabinoid receptor CB1", res.Targets[0].StandardizedName)
}

func TestDiscoverAnnotatesWithUniProt(t *testing.T) {
	env := newTestEnv(t)
	c := storedCompound(t, env, "")
	env.discovery.Annotator = &fakeAdapter{name: "uniprot", idKind: "uniprot_id", records: map[string]*models.PartialRecord{
		"histamine h1 receptor": {Source: "uniprot", Organism: models.HumanOrganism, UniProtID: "P35367", GeneName: "HRH1", Synonyms: []string{"H1R"}},
	}}

	res, err := env.discovery.Discover(context.Background(), c, []models.Mechanism{{TargetName: "Histamine H1 receptor", Organism: models.HumanOrganism}}, nil)
	require.NoError(t, err)
	require.Len(t, res.Targets, 1)

	got, err := env.repo.GetTarget(context.Background(), res.Targets[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "P35367", got.UniProtID)
	assert.Equal(t, "HRH1", got.GeneName)
	assert.Equal(t, []models.Synonym{{Name: "H1R", Source: "uniprot"}}, got.Synonyms)
}

func TestDiscoverReportsPersistenceFailure(t *testing.T) {
	env := newTestEnv(t)
	c := storedCompound(t, env, "")
	env.discovery.Repo = storage.NewRepository(failingStore{env.store}, env.repo.Logger)

	_, err := env.discovery.Discover(context.Background(), c, []models.Mechanism{{TargetName: "Histamine H1 receptor", Organism: models.HumanOrganism}}, nil)
	require.Error(t, err)
	assert.True(t, IsPersistenceError(err))
}

func TestMescalineEndToEnd(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, pubchemFake(), chemblFake())
	env.discovery.Mechanisms = &fakeMechanisms{}

	out := env.orch.Process(ctx, models.CompoundRequest{Name: "Mescaline"})
	require.True(t, out.Succeeded(), out.Error)
	assert.Equal(t, models.StateMerged, out.State)
	assert.Equal(t, 1, out.TargetsFound)
	assert.Equal(t, 1, out.TargetRelationships)

	compounds, err := env.repo.ListCompounds(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, compounds, 1)
	assert.Equal(t, "4076", compounds[0].PubChemID)
	assert.Equal(t, "CHEMBL26687", compounds[0].ChEMBLID)
	assert.Equal(t, "C11H17NO3", compounds[0].MolecularFormula)

	targets, err := env.repo.ListTargets(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Contains(t, targets[0].StandardizedName, "receptor")
	assert.Equal(t, models.TargetReceptor, targets[0].Type)

	links, err := env.repo.CompoundTargets(ctx, out.CompoundID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.NotNil(t, links[0].Interaction.ActionValue)
	assert.Equal(t, 120.0, *links[0].Interaction.ActionValue)
	assert.Equal(t, "IC50", links[0].Interaction.ActionType)
}

// failingStore lässt jeden Schreibzugriff fehlschlagen.
type failingStore struct {
	*storage.MemoryStore
}

func (failingStore) MergeNode(ctx context.Context, label, id string, props map[string]any) (*storage.Node, error) {
	return nil, errors.New("write conflict")
}

func (failingStore) MergeEdge(ctx context.Context, label, fromID, toID string, props map[string]any) (*storage.Edge, error) {
	return nil, errors.New("write conflict")
}
