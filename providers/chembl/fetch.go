package chembl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"hyperblend/config"
	"hyperblend/models"
	"hyperblend/providers"
)

const name = "chembl"

// Fetcher implementiert Adapter, MechanismSource und TargetDetailSource für ChEMBL.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	client *providers.Client
}

// NewFetcher erstellt einen neuen ChEMBL Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger, client: providers.NewClient(cfg, name, logger)}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return name
}

// IDKind nennt die ChEMBL-ID als direkte Kennung.
func (f *Fetcher) IDKind() string {
	return models.IDChEMBL
}

func (f *Fetcher) base() string {
	return strings.TrimRight(f.Config.ChEMBLBaseURL, "/")
}

// Fetch sucht das Molekül per ChEMBL-ID, bevorzugtem Namen, Synonym oder SMILES.
func (f *Fetcher) Fetch(ctx context.Context, q models.Query) (*models.PartialRecord, error) {
	if q.Empty() {
		return nil, providers.EmptyQueryError(name)
	}
	log := f.Logger.With(zap.String("name", q.Name), zap.String("chembl_id", q.ExternalID))

	if q.ExternalID != "" {
		var m Molecule
		err := f.client.GetJSON(ctx, fmt.Sprintf("%s/molecule/%s.json", f.base(), url.PathEscape(q.ExternalID)), &m)
		if err == nil && m.MoleculeChEMBLID != "" {
			return mapMoleculeToRecord(&m), nil
		}
		if err != nil && !errors.Is(err, providers.ErrNotFound) {
			return nil, err
		}
	}

	var filters []url.Values
	if q.Name != "" {
		filters = append(filters,
			url.Values{"pref_name__iexact": {q.Name}},
			url.Values{"molecule_synonyms__molecule_synonym__iexact": {q.Name}},
		)
	}
	if q.SMILES != "" {
		filters = append(filters, url.Values{"molecule_structures__canonical_smiles__flexmatch": {q.SMILES}})
	}

	for _, v := range filters {
		v.Set("limit", "1")
		var list MoleculeList
		err := f.client.GetJSON(ctx, fmt.Sprintf("%s/molecule.json?%s", f.base(), v.Encode()), &list)
		if errors.Is(err, providers.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(list.Molecules) > 0 {
			log.Info("ChEMBL-Treffer", zap.String("chembl_id", list.Molecules[0].MoleculeChEMBLID))
			return mapMoleculeToRecord(&list.Molecules[0]), nil
		}
	}
	return nil, providers.ErrNotFound
}

// Mechanisms liefert die Wirkmechanismen eines Moleküls, ergänzt um den besten Messwert je Target.
func (f *Fetcher) Mechanisms(ctx context.Context, chemblID string) ([]models.Mechanism, error) {
	log := f.Logger.With(zap.String("chembl_id", chemblID))

	v := url.Values{"molecule_chembl_id": {chemblID}, "limit": {"100"}}
	var mechs MechanismList
	if err := f.client.GetJSON(ctx, fmt.Sprintf("%s/mechanism.json?%s", f.base(), v.Encode()), &mechs); err != nil {
		if errors.Is(err, providers.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	activities, err := f.activities(ctx, chemblID)
	if err != nil {
		// Messwerte sind optional, die Mechanismen bleiben verwertbar.
		log.Warn("Aktivitäten konnten nicht geladen werden", zap.Error(err))
	}

	var out []models.Mechanism
	for _, m := range mechs.Mechanisms {
		if m.TargetChEMBLID == "" {
			continue
		}
		out = append(out, mapMechanism(&m, activities[m.TargetChEMBLID]))
	}
	log.Info("Mechanismen geladen", zap.Int("count", len(out)))
	return out, nil
}

func (f *Fetcher) activities(ctx context.Context, chemblID string) (map[string]*Activity, error) {
	v := url.Values{
		"molecule_chembl_id":     {chemblID},
		"standard_type__in":      {"IC50,Ki,EC50,Kd"},
		"standard_value__isnull": {"false"},
		"limit":                  {"200"},
	}
	var list ActivityList
	if err := f.client.GetJSON(ctx, fmt.Sprintf("%s/activity.json?%s", f.base(), v.Encode()), &list); err != nil {
		if errors.Is(err, providers.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	best := make(map[string]*Activity)
	for i := range list.Activities {
		a := &list.Activities[i]
		if a.TargetChEMBLID == "" || a.StandardValue.Ptr() == nil {
			continue
		}
		// kleinster Wert = stärkste Bindung
		if cur, ok := best[a.TargetChEMBLID]; !ok || a.StandardValue.Value < cur.StandardValue.Value {
			best[a.TargetChEMBLID] = a
		}
	}
	return best, nil
}

// TargetDetail lädt Name, Organismus, Typ und UniProt-Kennung eines Targets.
func (f *Fetcher) TargetDetail(ctx context.Context, targetID string) (*models.TargetDetail, error) {
	var t Target
	if err := f.client.GetJSON(ctx, fmt.Sprintf("%s/target/%s.json", f.base(), url.PathEscape(targetID)), &t); err != nil {
		return nil, err
	}
	d := &models.TargetDetail{
		ChEMBLID: t.TargetChEMBLID,
		Name:     t.PrefName,
		Type:     t.TargetType,
		Organism: t.Organism,
	}
	for _, c := range t.TargetComponents {
		if c.Accession != "" {
			d.UniProtID = c.Accession
			break
		}
	}
	return d, nil
}

// mapMoleculeToRecord konvertiert ein ChEMBL-Molekül in einen PartialRecord.
func mapMoleculeToRecord(m *Molecule) *models.PartialRecord {
	rec := &models.PartialRecord{
		Source:      name,
		Name:        m.PrefName,
		ExternalIDs: models.ExternalIDs{ChEMBLID: m.MoleculeChEMBLID},
	}
	if m.MoleculeProperties != nil {
		rec.MolecularFormula = m.MoleculeProperties.FullMolformula
		rec.MolecularWeight = m.MoleculeProperties.FullMwt.Ptr()
	}
	if m.MoleculeStructures != nil {
		rec.SMILES = m.MoleculeStructures.CanonicalSmiles
	}
	if m.PrefName != "" {
		rec.Synonyms = append(rec.Synonyms, m.PrefName)
	}
	for _, s := range m.MoleculeSynonyms {
		if s.MoleculeSynonym != "" {
			rec.Synonyms = append(rec.Synonyms, s.MoleculeSynonym)
		}
	}
	return rec
}

func mapMechanism(m *Mechanism, a *Activity) models.Mechanism {
	out := models.Mechanism{
		TargetChEMBLID: m.TargetChEMBLID,
		Interaction: models.Interaction{
			Action:     m.MechanismOfAction,
			ActionType: m.ActionType,
		},
	}
	for _, r := range m.MechanismRefs {
		if r.RefID != "" {
			out.Evidence = append(out.Evidence, r.RefType+":"+r.RefID)
		}
		if r.RefURL != "" {
			out.EvidenceURLs = append(out.EvidenceURLs, r.RefURL)
		}
	}
	if a != nil {
		out.TargetName = a.TargetPrefName
		out.Organism = a.TargetOrganism
		out.ActionType = a.StandardType
		out.ActionValue = a.StandardValue.Ptr()
		out.ActionUnit = a.StandardUnits
		if a.DocumentChEMBLID != "" {
			out.Evidence = append(out.Evidence, "ChEMBL:"+a.DocumentChEMBLID)
		}
	}
	return out
}
