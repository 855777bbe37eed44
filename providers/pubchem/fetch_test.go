package pubchem

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"hyperblend/config"
	"hyperblend/models"
	"hyperblend/providers"
)

const mescalineProps = `{"PropertyTable":{"Properties":[{"CID":4076,"Title":"Mescaline","IUPACName":"2-(3,4,5-trimethoxyphenyl)ethanamine","MolecularFormula":"C11H17NO3","MolecularWeight":"211.26","ConnectivitySMILES":"COC1=CC(=CC(=C1OC)OC)CCN"}]}}`

func newTestFetcher(t *testing.T, h http.Handler) *Fetcher {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := &config.Config{
		PubChemBaseURL:  srv.URL,
		PubChemSynonyms: 2,
		MaxRetries:      1,
		RetryDelay:      time.Millisecond,
		RequestTimeout:  time.Second,
	}
	return NewFetcher(cfg, zaptest.NewLogger(t))
}

func TestFetchByName(t *testing.T) {
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/compound/name/Mescaline/property/"):
			_, _ = w.Write([]byte(mescalineProps))
		case r.URL.Path == "/compound/cid/4076/synonyms/JSON":
			_, _ = w.Write([]byte(`{"InformationList":{"Information":[{"CID":4076,"Synonym":["mescaline","Mescalin","3,4,5-Trimethoxyphenethylamine"]}]}}`))
		case r.URL.Path == "/compound/cid/4076/description/JSON":
			_, _ = w.Write([]byte(`{"InformationList":{"Information":[{"CID":4076,"Title":"Mescaline"},{"CID":4076,"Description":"Mescaline is a hallucinogenic alkaloid."}]}}`))
		default:
			http.NotFound(w, r)
		}
	}))

	rec, err := f.Fetch(context.Background(), models.Query{Name: "Mescaline"})
	require.NoError(t, err)
	assert.Equal(t, "pubchem", rec.Source)
	assert.Equal(t, "4076", rec.ExternalIDs.PubChemID)
	assert.Equal(t, "C11H17NO3", rec.MolecularFormula)
	assert.Equal(t, "COC1=CC(=CC(=C1OC)OC)CCN", rec.SMILES)
	require.NotNil(t, rec.MolecularWeight)
	assert.InDelta(t, 211.26, *rec.MolecularWeight, 1e-9)
	assert.Equal(t, "Mescaline is a hallucinogenic alkaloid.", rec.Description)
	// IUPAC-Name plus die ersten zwei Synonyme
	assert.Equal(t, []string{"2-(3,4,5-trimethoxyphenyl)ethanamine", "mescaline", "Mescalin"}, rec.Synonyms)
}

func TestFetchPrefersCID(t *testing.T) {
	var paths []string
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasPrefix(r.URL.Path, "/compound/cid/4076/property/") {
			_, _ = w.Write([]byte(mescalineProps))
			return
		}
		http.NotFound(w, r)
	}))

	rec, err := f.Fetch(context.Background(), models.Query{Name: "Mescaline", ExternalID: "4076"})
	require.NoError(t, err)
	assert.Equal(t, "4076", rec.ExternalIDs.PubChemID)
	assert.True(t, strings.HasPrefix(paths[0], "/compound/cid/4076/property/"))
	assert.Empty(t, rec.Description)
}

func TestFetchFallsBackToSMILES(t *testing.T) {
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/compound/smiles/") {
			_, _ = w.Write([]byte(mescalineProps))
			return
		}
		http.NotFound(w, r)
	}))

	rec, err := f.Fetch(context.Background(), models.Query{Name: "unknown", SMILES: "COC1=CC(=CC(=C1OC)OC)CCN"})
	require.NoError(t, err)
	assert.Equal(t, "4076", rec.ExternalIDs.PubChemID)
}

func TestFetchNotFound(t *testing.T) {
	f := newTestFetcher(t, http.NotFoundHandler())
	_, err := f.Fetch(context.Background(), models.Query{Name: "no such compound"})
	assert.ErrorIs(t, err, providers.ErrNotFound)
}

func TestFetchEmptyQuery(t *testing.T) {
	f := newTestFetcher(t, http.NotFoundHandler())
	_, err := f.Fetch(context.Background(), models.Query{Name: "  "})
	assert.True(t, providers.IsAdapterError(err))
	assert.ErrorIs(t, err, providers.ErrEmptyQuery)
}

func TestFetchServerError(t *testing.T) {
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, err := f.Fetch(context.Background(), models.Query{Name: "Mescaline"})
	assert.True(t, providers.IsAdapterError(err))
}
