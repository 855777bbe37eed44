package coconut

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"hyperblend/config"
	"hyperblend/models"
	"hyperblend/providers"
)

const mescaline = `{"id":"CNP0123456","name":"mescaline","iupac_name":"2-(3,4,5-trimethoxyphenyl)ethanamine",
 "canonical_smiles":"COC1=CC(CCN)=CC(OC)=C1OC","molecular_formula":"C11H17NO3","molecular_weight":211.26,
 "synonyms":["Mescalin"],
 "organisms":["Lophophora williamsii",{"name":"Echinopsis pachanoi","kingdom":"Plantae","family":"Cactaceae","genus":"Echinopsis"},""]}`

func newTestFetcher(t *testing.T, token string, h http.Handler) *Fetcher {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := &config.Config{CoconutBaseURL: srv.URL, CoconutToken: token, MaxRetries: 1, RetryDelay: time.Millisecond, RequestTimeout: time.Second}
	return NewFetcher(cfg, zaptest.NewLogger(t))
}

func TestFetchByName(t *testing.T) {
	f := newTestFetcher(t, "secret", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/compound/search":
			assert.Equal(t, "Mescaline", r.URL.Query().Get("query"))
			_, _ = w.Write([]byte(`{"compounds":[{"id":"CNP0123456"}]}`))
		case "/compound/CNP0123456":
			_, _ = w.Write([]byte(mescaline))
		default:
			http.NotFound(w, r)
		}
	}))

	rec, err := f.Fetch(context.Background(), models.Query{Name: "Mescaline"})
	require.NoError(t, err)
	assert.Equal(t, "coconut", rec.Source)
	assert.Equal(t, "CNP0123456", rec.ExternalIDs.CoconutID)
	assert.Equal(t, "COC1=CC(CCN)=CC(OC)=C1OC", rec.SMILES)
	require.NotNil(t, rec.MolecularWeight)
	assert.InDelta(t, 211.26, *rec.MolecularWeight, 1e-9)
	assert.Equal(t, []string{"mescaline", "2-(3,4,5-trimethoxyphenyl)ethanamine", "Mescalin"}, rec.Synonyms)

	require.Len(t, rec.Organisms, 2)
	assert.Equal(t, "Lophophora williamsii", rec.Organisms[0].Name)
	assert.Equal(t, models.SourceOther, rec.Organisms[0].Type)
	assert.Equal(t, "Echinopsis pachanoi", rec.Organisms[1].Name)
	assert.Equal(t, models.SourcePlant, rec.Organisms[1].Type)
	assert.Equal(t, "Cactaceae", rec.Organisms[1].Family)
}

func TestFetchByIDSkipsSearch(t *testing.T) {
	f := newTestFetcher(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		if r.URL.Path == "/compound/CNP0123456" {
			_, _ = w.Write([]byte(mescaline))
			return
		}
		t.Errorf("unexpected request %s", r.URL.Path)
		http.NotFound(w, r)
	}))

	rec, err := f.Fetch(context.Background(), models.Query{ExternalID: "CNP0123456"})
	require.NoError(t, err)
	assert.Equal(t, "CNP0123456", rec.ExternalIDs.CoconutID)
}

func TestFetchNotFound(t *testing.T) {
	f := newTestFetcher(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"compounds":[]}`))
	}))
	_, err := f.Fetch(context.Background(), models.Query{Name: "nothing"})
	assert.ErrorIs(t, err, providers.ErrNotFound)

	_, err = f.Fetch(context.Background(), models.Query{SMILES: "C"})
	assert.ErrorIs(t, err, providers.ErrNotFound)
}

func TestFetchFallsBackToSMILES(t *testing.T) {
	f := newTestFetcher(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/compound/search":
			_, _ = w.Write([]byte(`{"compounds":[]}`))
		case "/molecules/search":
			assert.Equal(t, http.MethodPost, r.Method)
			var body MoleculeSearch
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Search.Filters, 1)
			assert.Equal(t, "canonical_smiles", body.Search.Filters[0].Field)
			assert.Equal(t, "COC1=CC(CCN)=CC(OC)=C1OC", body.Search.Filters[0].Value)
			_, _ = w.Write([]byte(`{"data":[{"identifier":"CNP0123456"}]}`))
		case "/compound/CNP0123456":
			_, _ = w.Write([]byte(mescaline))
		default:
			http.NotFound(w, r)
		}
	}))

	rec, err := f.Fetch(context.Background(), models.Query{Name: "Unbekannt", SMILES: "COC1=CC(CCN)=CC(OC)=C1OC"})
	require.NoError(t, err)
	assert.Equal(t, "CNP0123456", rec.ExternalIDs.CoconutID)

	rec, err = f.Fetch(context.Background(), models.Query{SMILES: "COC1=CC(CCN)=CC(OC)=C1OC"})
	require.NoError(t, err)
	assert.Equal(t, "CNP0123456", rec.ExternalIDs.CoconutID)
}
