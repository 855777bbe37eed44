package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"hyperblend/config"
	"hyperblend/models"
)

func testClient(t *testing.T) *Client {
	cfg := &config.Config{MaxRetries: 3, RetryDelay: time.Millisecond, RequestTimeout: time.Second}
	return NewClient(cfg, "test", zaptest.NewLogger(t))
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "Mescaline"})
	}))
	defer srv.Close()

	var out struct{ Name string }
	err := testClient(t).GetJSON(context.Background(), srv.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, "Mescaline", out.Name)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := testClient(t).GetJSON(context.Background(), srv.URL, nil)
	var ae *AdapterError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusServiceUnavailable, ae.StatusCode)
	assert.Contains(t, err.Error(), "source unavailable")
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClientNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	err := testClient(t).GetJSON(context.Background(), srv.URL, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsAdapterError(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClientHonorsRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	require.NoError(t, testClient(t).GetJSON(context.Background(), srv.URL, &struct{}{}))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryMalformedResponse(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"broken":`))
	}))
	defer srv.Close()

	err := testClient(t).GetJSON(context.Background(), srv.URL, &struct{}{})
	assert.True(t, IsAdapterError(err))
	assert.Contains(t, err.Error(), "malformed response")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClientStopsOnCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := testClient(t).GetJSON(ctx, srv.URL, nil)
	assert.True(t, IsAdapterError(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClientPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["query"]})
	}))
	defer srv.Close()

	var out struct{ Echo string }
	header := http.Header{"Authorization": []string{"Bearer abc"}}
	require.NoError(t, testClient(t).PostJSON(context.Background(), srv.URL, map[string]string{"query": "psilocybin"}, header, &out))
	assert.Equal(t, "psilocybin", out.Echo)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
}

func TestFlexFloat(t *testing.T) {
	var v struct {
		A FlexFloat `json:"a"`
		B FlexFloat `json:"b"`
		C FlexFloat `json:"c"`
		D FlexFloat `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"211.26","b":120,"c":null,"d":"n/a"}`), &v))
	require.NotNil(t, v.A.Ptr())
	assert.InDelta(t, 211.26, *v.A.Ptr(), 1e-9)
	assert.InDelta(t, 120.0, *v.B.Ptr(), 1e-9)
	assert.Nil(t, v.C.Ptr())
	assert.Nil(t, v.D.Ptr())
	assert.Nil(t, FlexFloat{Value: -1, Valid: true}.Ptr())
}

type countingAdapter struct {
	calls int
	err   error
}

func (a *countingAdapter) Name() string   { return "counting" }
func (a *countingAdapter) IDKind() string { return models.IDPubChem }
func (a *countingAdapter) Fetch(ctx context.Context, q models.Query) (*models.PartialRecord, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &models.PartialRecord{Source: "counting", Name: q.Name}, nil
}

func TestRunCacheSuppressesDuplicateQueries(t *testing.T) {
	a := &countingAdapter{}
	c := NewRunCache()
	ctx := context.Background()

	r1, err := c.Fetch(ctx, a, models.Query{Name: "Mescaline"})
	require.NoError(t, err)
	r2, err := c.Fetch(ctx, a, models.Query{Name: " mescaline"})
	require.NoError(t, err)
	_, err = c.Fetch(ctx, a, models.Query{Name: "Mescaline", SMILES: "COc1cc"})
	require.NoError(t, err)

	assert.Same(t, r1, r2)
	assert.Equal(t, 2, a.calls)
	assert.Equal(t, 1, c.Hits())
}

func TestRunCacheKeepsNotFoundButNotTransientErrors(t *testing.T) {
	ctx := context.Background()

	nf := &countingAdapter{err: ErrNotFound}
	c := NewRunCache()
	_, _ = c.Fetch(ctx, nf, models.Query{Name: "x"})
	_, err := c.Fetch(ctx, nf, models.Query{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, nf.calls)

	down := &countingAdapter{err: &AdapterError{Source: "counting", Op: "GET", Err: errors.New("timeout")}}
	c = NewRunCache()
	_, _ = c.Fetch(ctx, down, models.Query{Name: "x"})
	_, _ = c.Fetch(ctx, down, models.Query{Name: "x"})
	assert.Equal(t, 2, down.calls)
}

type countingDetails struct {
	calls int
	err   error
}

func (d *countingDetails) TargetDetail(ctx context.Context, id string) (*models.TargetDetail, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return &models.TargetDetail{ChEMBLID: id, Organism: models.HumanOrganism}, nil
}

func TestRunCacheTargetDetail(t *testing.T) {
	ctx := context.Background()
	src := &countingDetails{}
	c := NewRunCache()

	d1, err := c.TargetDetail(ctx, src, "CHEMBL224")
	require.NoError(t, err)
	d2, err := c.TargetDetail(ctx, src, "CHEMBL224")
	require.NoError(t, err)
	_, err = c.TargetDetail(ctx, src, "CHEMBL217")
	require.NoError(t, err)

	assert.Same(t, d1, d2)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 1, c.Hits())

	down := &countingDetails{err: &AdapterError{Source: "chembl", Op: "target", StatusCode: 503, Err: errors.New("unavailable")}}
	_, _ = c.TargetDetail(ctx, down, "CHEMBL1")
	_, _ = c.TargetDetail(ctx, down, "CHEMBL1")
	assert.Equal(t, 2, down.calls)
}
