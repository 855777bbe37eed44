package napralert

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"hyperblend/config"
	"hyperblend/models"
	"hyperblend/providers"
)

const name = "napralert"

// Fetcher implementiert das Adapter-Interface für NAPRALERT.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	client *providers.Client
}

// NewFetcher erstellt einen neuen NAPRALERT Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger, client: providers.NewClient(cfg, name, logger)}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return name
}

// IDKind nennt die NAPRALERT-Kennung.
func (f *Fetcher) IDKind() string {
	return models.IDNapralert
}

// Fetch probiert nacheinander exakte Namenssuche, exakte SMILES-Suche und unscharfe Namenssuche.
// Die erste Strategie mit Treffer gewinnt.
func (f *Fetcher) Fetch(ctx context.Context, q models.Query) (*models.PartialRecord, error) {
	if q.Empty() {
		return nil, providers.EmptyQueryError(name)
	}
	log := f.Logger.With(zap.String("name", q.Name))

	var attempts []SearchRequest
	if q.Name != "" {
		attempts = append(attempts, SearchRequest{Query: q.Name, SearchType: "exact", Field: "compound_name"})
	}
	if q.SMILES != "" {
		attempts = append(attempts, SearchRequest{Query: q.SMILES, SearchType: "exact", Field: "smiles"})
	}
	if q.Name != "" {
		attempts = append(attempts, SearchRequest{Query: q.Name, SearchType: "fuzzy", Field: "compound_name"})
	}

	url := strings.TrimRight(f.Config.NapralertBaseURL, "/") + "/search"
	for _, a := range attempts {
		var entries []Entry
		err := f.client.PostJSON(ctx, url, a, nil, &entries)
		if errors.Is(err, providers.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			log.Info("NAPRALERT-Treffer", zap.String("strategy", a.SearchType+"/"+a.Field), zap.String("napralert_id", entries[0].ID))
			return mapEntryToRecord(&entries[0]), nil
		}
	}
	log.Debug("Kein Treffer in NAPRALERT")
	return nil, providers.ErrNotFound
}

// mapEntryToRecord konvertiert einen NAPRALERT-Treffer in einen PartialRecord.
func mapEntryToRecord(e *Entry) *models.PartialRecord {
	rec := &models.PartialRecord{
		Source:           name,
		Name:             e.Name,
		MolecularFormula: e.MolecularFormula,
		ExternalIDs:      models.ExternalIDs{NapralertID: e.ID},
	}
	for _, s := range []string{e.Name, e.IUPACName, e.CAS} {
		if s != "" {
			rec.Synonyms = append(rec.Synonyms, s)
		}
	}
	return rec
}
