package uniprot

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"hyperblend/config"
	"hyperblend/models"
	"hyperblend/providers"
)

const (
	name       = "uniprot"
	humanTaxon = "9606"
)

// Fetcher implementiert das Adapter-Interface für UniProtKB und annotiert Targets.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	client *providers.Client
}

// NewFetcher erstellt einen neuen UniProt Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger, client: providers.NewClient(cfg, name, logger)}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return name
}

// IDKind nennt die UniProt-Accession als direkte Kennung.
func (f *Fetcher) IDKind() string {
	return "uniprot_id"
}

// Fetch lädt einen Eintrag per Accession oder sucht ihn per Proteinname im menschlichen Proteom.
func (f *Fetcher) Fetch(ctx context.Context, q models.Query) (*models.PartialRecord, error) {
	if q.Empty() {
		return nil, providers.EmptyQueryError(name)
	}
	base := strings.TrimRight(f.Config.UniProtBaseURL, "/")

	if q.ExternalID != "" {
		var e Entry
		if err := f.client.GetJSON(ctx, fmt.Sprintf("%s/uniprotkb/%s.json", base, url.PathEscape(q.ExternalID)), &e); err != nil {
			return nil, err
		}
		if e.PrimaryAccession == "" {
			return nil, providers.ErrNotFound
		}
		return mapEntryToRecord(&e), nil
	}
	if strings.TrimSpace(q.Name) == "" {
		return nil, providers.ErrNotFound
	}

	v := url.Values{
		"query":  {fmt.Sprintf(`(protein_name:"%s") AND (organism_id:%s)`, strings.ReplaceAll(q.Name, `"`, ""), humanTaxon)},
		"format": {"json"},
		"size":   {"1"},
	}
	var resp SearchResponse
	if err := f.client.GetJSON(ctx, fmt.Sprintf("%s/uniprotkb/search?%s", base, v.Encode()), &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, providers.ErrNotFound
	}
	f.Logger.Debug("UniProt-Treffer", zap.String("name", q.Name), zap.String("accession", resp.Results[0].PrimaryAccession))
	return mapEntryToRecord(&resp.Results[0]), nil
}

// mapEntryToRecord konvertiert einen UniProt-Eintrag in einen PartialRecord.
func mapEntryToRecord(e *Entry) *models.PartialRecord {
	rec := &models.PartialRecord{
		Source:    name,
		UniProtID: e.PrimaryAccession,
		Organism:  e.Organism.ScientificName,
	}
	if rn := e.ProteinDescription.RecommendedName; rn != nil {
		rec.Name = rn.FullName.Value
	}
	for _, alt := range e.ProteinDescription.AlternativeNames {
		if alt.FullName.Value != "" {
			rec.Synonyms = append(rec.Synonyms, alt.FullName.Value)
		}
	}
	if len(e.Genes) > 0 && e.Genes[0].GeneName != nil {
		rec.GeneName = e.Genes[0].GeneName.Value
	}
	return rec
}
