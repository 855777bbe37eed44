package coconut

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"hyperblend/config"
	"hyperblend/models"
	"hyperblend/providers"
)

const name = "coconut"

// Fetcher implementiert das Adapter-Interface für die COCONUT-Naturstoffdatenbank.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	client *providers.Client
}

// NewFetcher erstellt einen neuen COCONUT Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger, client: providers.NewClient(cfg, name, logger)}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return name
}

// IDKind nennt die COCONUT-Kennung.
func (f *Fetcher) IDKind() string {
	return models.IDCoconut
}

// Fetch lädt die Verbindung per COCONUT-ID oder sucht sie per Name, danach per SMILES.
// Gelieferte Organismen werden als Quellen zurückgegeben.
func (f *Fetcher) Fetch(ctx context.Context, q models.Query) (*models.PartialRecord, error) {
	if q.Empty() {
		return nil, providers.EmptyQueryError(name)
	}
	base := strings.TrimRight(f.Config.CoconutBaseURL, "/")

	id := q.ExternalID
	var err error
	if id == "" && q.Name != "" {
		if id, err = f.searchByName(ctx, base, q.Name); err != nil {
			return nil, err
		}
	}
	if id == "" && q.SMILES != "" {
		if id, err = f.searchBySMILES(ctx, base, q.SMILES); err != nil {
			return nil, err
		}
	}
	if id == "" {
		return nil, providers.ErrNotFound
	}

	var c Compound
	if err := f.client.GetJSONHeader(ctx, fmt.Sprintf("%s/compound/%s", base, url.PathEscape(id)), f.header(), &c); err != nil {
		return nil, err
	}
	if c.ID == "" {
		c.ID = id
	}
	f.Logger.Info("COCONUT-Treffer", zap.String("coconut_id", c.ID), zap.Int("organisms", len(c.Organisms)))
	return mapCompoundToRecord(&c), nil
}

func (f *Fetcher) searchByName(ctx context.Context, base, compound string) (string, error) {
	var resp SearchResponse
	u := fmt.Sprintf("%s/compound/search?%s", base, url.Values{"query": {compound}}.Encode())
	if err := f.client.GetJSONHeader(ctx, u, f.header(), &resp); err != nil && !errors.Is(err, providers.ErrNotFound) {
		return "", err
	}
	if len(resp.Compounds) == 0 {
		return "", nil
	}
	return resp.Compounds[0].ID, nil
}

func (f *Fetcher) searchBySMILES(ctx context.Context, base, smiles string) (string, error) {
	body := MoleculeSearch{}
	body.Search.Filters = []SearchFilter{{Field: "canonical_smiles", Operator: "=", Value: smiles}}
	body.Search.Page = 1
	body.Search.Limit = 1
	var resp MoleculeSearchResponse
	if err := f.client.PostJSON(ctx, base+"/molecules/search", body, f.header(), &resp); err != nil && !errors.Is(err, providers.ErrNotFound) {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	return resp.Data[0].Identifier, nil
}

func (f *Fetcher) header() http.Header {
	if f.Config.CoconutToken == "" {
		return nil
	}
	return http.Header{"Authorization": {"Bearer " + f.Config.CoconutToken}}
}

// mapCompoundToRecord konvertiert einen COCONUT-Eintrag in einen PartialRecord.
func mapCompoundToRecord(c *Compound) *models.PartialRecord {
	rec := &models.PartialRecord{
		Source:           name,
		Name:             c.Name,
		SMILES:           c.CanonicalSMILES,
		MolecularFormula: c.MolecularFormula,
		MolecularWeight:  c.MolecularWeight.Ptr(),
		ExternalIDs:      models.ExternalIDs{CoconutID: c.ID},
	}
	if rec.SMILES == "" {
		rec.SMILES = c.SMILES
	}
	for _, s := range append([]string{c.Name, c.IUPACName}, c.Synonyms...) {
		if s != "" {
			rec.Synonyms = append(rec.Synonyms, s)
		}
	}
	for _, o := range c.Organisms {
		if strings.TrimSpace(o.Name) == "" {
			continue
		}
		rec.Organisms = append(rec.Organisms, models.Source{
			Name:     strings.TrimSpace(o.Name),
			Type:     models.ParseSourceType(o.Kingdom),
			Taxonomy: models.Taxonomy{Kingdom: o.Kingdom, Family: o.Family, Genus: o.Genus},
		})
	}
	return rec
}
