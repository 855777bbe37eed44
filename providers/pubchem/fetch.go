package pubchem

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"hyperblend/config"
	"hyperblend/models"
	"hyperblend/providers"
)

const (
	name       = "pubchem"
	properties = "Title,IUPACName,MolecularFormula,MolecularWeight,CanonicalSMILES,IsomericSMILES,ConnectivitySMILES,SMILES"
)

// Fetcher implementiert das Adapter-Interface für PubChem (PUG REST).
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	client *providers.Client
}

// NewFetcher erstellt einen neuen PubChem Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger, client: providers.NewClient(cfg, name, logger)}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return name
}

// IDKind nennt die PubChem-CID als direkte Kennung.
func (f *Fetcher) IDKind() string {
	return models.IDPubChem
}

// Fetch sucht die Verbindung per CID, Name oder SMILES, in dieser Reihenfolge.
func (f *Fetcher) Fetch(ctx context.Context, q models.Query) (*models.PartialRecord, error) {
	if q.Empty() {
		return nil, providers.EmptyQueryError(name)
	}
	log := f.Logger.With(zap.String("name", q.Name), zap.String("cid", q.ExternalID))

	type lookup struct{ namespace, value string }
	var lookups []lookup
	if q.ExternalID != "" {
		lookups = append(lookups, lookup{"cid", q.ExternalID})
	}
	if q.Name != "" {
		lookups = append(lookups, lookup{"name", q.Name})
	}
	if q.SMILES != "" {
		lookups = append(lookups, lookup{"smiles", q.SMILES})
	}

	for _, l := range lookups {
		props, err := f.properties(ctx, l.namespace, l.value)
		if errors.Is(err, providers.ErrNotFound) {
			log.Debug("Kein Treffer in PubChem", zap.String("namespace", l.namespace))
			continue
		}
		if err != nil {
			return nil, err
		}

		rec := mapPropertiesToRecord(props)
		cid := strconv.Itoa(props.CID)
		if syns, err := f.synonyms(ctx, cid); err == nil {
			rec.Synonyms = append(rec.Synonyms, syns...)
		} else if !errors.Is(err, providers.ErrNotFound) {
			log.Warn("Synonyme konnten nicht geladen werden", zap.Error(err))
		}
		if desc, err := f.description(ctx, cid); err == nil {
			rec.Description = desc
		} else if !errors.Is(err, providers.ErrNotFound) {
			log.Debug("Beschreibung konnte nicht geladen werden", zap.Error(err))
		}

		log.Info("PubChem-Treffer", zap.String("pubchem_id", cid))
		return rec, nil
	}
	return nil, providers.ErrNotFound
}

func (f *Fetcher) properties(ctx context.Context, namespace, value string) (*Properties, error) {
	u := fmt.Sprintf("%s/compound/%s/%s/property/%s/JSON",
		strings.TrimRight(f.Config.PubChemBaseURL, "/"), namespace, url.PathEscape(value), properties)

	var resp PropertyResponse
	if err := f.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if len(resp.PropertyTable.Properties) == 0 || resp.PropertyTable.Properties[0].CID == 0 {
		return nil, providers.ErrNotFound
	}
	return &resp.PropertyTable.Properties[0], nil
}

func (f *Fetcher) synonyms(ctx context.Context, cid string) ([]string, error) {
	u := fmt.Sprintf("%s/compound/cid/%s/synonyms/JSON", strings.TrimRight(f.Config.PubChemBaseURL, "/"), cid)

	var resp SynonymResponse
	if err := f.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if len(resp.InformationList.Information) == 0 {
		return nil, nil
	}
	syns := resp.InformationList.Information[0].Synonym
	if limit := f.Config.PubChemSynonyms; limit > 0 && len(syns) > limit {
		syns = syns[:limit]
	}
	return syns, nil
}

func (f *Fetcher) description(ctx context.Context, cid string) (string, error) {
	u := fmt.Sprintf("%s/compound/cid/%s/description/JSON", strings.TrimRight(f.Config.PubChemBaseURL, "/"), cid)

	var resp DescriptionResponse
	if err := f.client.GetJSON(ctx, u, &resp); err != nil {
		return "", err
	}
	for _, info := range resp.InformationList.Information {
		if info.Description != "" {
			return info.Description, nil
		}
	}
	return "", nil
}

// mapPropertiesToRecord konvertiert die PubChem-Eigenschaften in einen PartialRecord.
func mapPropertiesToRecord(p *Properties) *models.PartialRecord {
	rec := &models.PartialRecord{
		Source:           name,
		Name:             p.Title,
		SMILES:           p.smiles(),
		MolecularFormula: p.MolecularFormula,
		MolecularWeight:  p.MolecularWeight.Ptr(),
		ExternalIDs:      models.ExternalIDs{PubChemID: strconv.Itoa(p.CID)},
	}
	if p.IUPACName != "" {
		rec.Synonyms = append(rec.Synonyms, p.IUPACName)
	}
	return rec
}
