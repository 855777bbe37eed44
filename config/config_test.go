package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.GraphBackend)
	assert.Equal(t, 8, cfg.BatchConcurrency)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"pubchem", "chembl", "napralert"}, cfg.Priority())
	assert.False(t, cfg.HasDatabase())
}

func TestLoadRejectsPostgresWithoutHost(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", "postgres")
	t.Setenv("DB_HOST", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"memory", Config{GraphBackend: "memory", BatchConcurrency: 1, AdapterPriority: "pubchem"}, true},
		{"unknown backend", Config{GraphBackend: "mongo", BatchConcurrency: 1, AdapterPriority: "pubchem"}, false},
		{"zero workers", Config{GraphBackend: "memory", AdapterPriority: "pubchem"}, false},
		{"empty priority", Config{GraphBackend: "memory", BatchConcurrency: 2, AdapterPriority: " , "}, false},
		{"postgres with host", Config{GraphBackend: "postgres", DBHost: "db", BatchConcurrency: 2, AdapterPriority: "chembl"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPriorityNormalizesEntries(t *testing.T) {
	c := Config{AdapterPriority: " PubChem , ,coconut"}
	assert.Equal(t, []string{"pubchem", "coconut"}, c.Priority())
}
