package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"hyperblend/models"
	"hyperblend/providers"
	"hyperblend/services"
	"hyperblend/storage"
)

type stubAdapter struct{}

func (stubAdapter) Name() string   { return "pubchem" }
func (stubAdapter) IDKind() string { return models.IDPubChem }

func (stubAdapter) Fetch(ctx context.Context, q models.Query) (*models.PartialRecord, error) {
	if models.CanonicalName(q.Name) != "mescaline" {
		return nil, providers.ErrNotFound
	}
	return &models.PartialRecord{
		Source:      "pubchem",
		SMILES:      "COc1cc(CCN)cc(OC)c1OC",
		ExternalIDs: models.ExternalIDs{PubChemID: "4076"},
		Organisms:   []models.Source{{Name: "Lophophora williamsii", Type: models.SourcePlant}},
	}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *storage.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)
	store := storage.NewMemoryStore()
	repo := storage.NewRepository(store, logger)
	engine := services.NewEngine(repo, []providers.Adapter{stubAdapter{}}, logger)
	orch := services.NewOrchestrator(engine, nil, nil, 2, logger)
	return newRouter(store, orch, logger), store
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestEnrichAndReadCompound(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/compounds/enrich", gin.H{"name": "Mescaline"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out models.ItemOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, models.StateMerged, out.State)
	assert.Equal(t, 1, out.SourceRelationships)
	require.NotEmpty(t, out.CompoundID)

	w = doJSON(t, r, http.MethodGet, "/compounds/"+out.CompoundID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Name      string           `json:"name"`
		PubChemID string           `json:"pubchem_id"`
		Sources   []*models.Source `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "Mescaline", detail.Name)
	assert.Equal(t, "4076", detail.PubChemID)
	require.Len(t, detail.Sources, 1)
	assert.Equal(t, "Lophophora williamsii", detail.Sources[0].Name)

	w = doJSON(t, r, http.MethodGet, "/compounds?name=MESCALINE", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Compound
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = doJSON(t, r, http.MethodGet, "/compounds/CMP_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnrichRejectsEmptyName(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/compounds/enrich", gin.H{"name": " "})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBatchEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/batch", gin.H{"compounds": []gin.H{{"name": "Mescaline"}, {"name": ""}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rep models.BatchReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, 1, rep.CompoundsEnriched)
	assert.Equal(t, 1, rep.SourceCompoundRelationships)
	require.Len(t, rep.Failures, 1)

	w = doJSON(t, r, http.MethodPost, "/batch", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/batch/runs", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSourceRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/sources", gin.H{"name": "Psilocybe cubensis", "type": "Fungi", "common_names": []string{"Magic mushroom"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var src models.Source
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &src))
	assert.Equal(t, models.SourceFungus, src.Type)
	assert.Equal(t, models.SourceID("Psilocybe cubensis"), src.ID)

	w = doJSON(t, r, http.MethodGet, "/sources/"+src.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/sources", gin.H{"type": "plant"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTargetAndAdminRoutes(t *testing.T) {
	r, store := newTestRouter(t)
	ctx := context.Background()

	_, err := store.MergeNode(ctx, storage.LabelTarget, "TGT_rat", map[string]any{
		"name": "5-HT2A", "standardized_name": "Serotonin receptor 5-HT2A", "organism": "Rattus norvegicus",
	})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/targets/TGT_rat", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/admin/verify", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Rattus norvegicus")

	w = doJSON(t, r, http.MethodPost, "/admin/cleanup-targets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":1}`, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/targets/TGT_rat", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, r, http.MethodGet, "/targets?organism=Homo%20sapiens", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}
