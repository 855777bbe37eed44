package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"hyperblend/models"
	"hyperblend/providers"
	"hyperblend/storage"
)

// TargetDiscovery sucht die Targets einer angereicherten Verbindung und speichert sie samt Wirkung.
type TargetDiscovery struct {
	Repo       *storage.Repository
	Mechanisms providers.MechanismSource
	Details    providers.TargetDetailSource
	// Annotator ergänzt UniProt-Kennung und Gen-Symbol, optional.
	Annotator providers.Adapter
	Logger    *zap.Logger
	Now       func() time.Time
}

// DiscoveryResult fasst eine Target-Suche zusammen.
type DiscoveryResult struct {
	Targets []*models.Target
	// Relationships ist die Zahl der geschriebenen BINDS_TO-Kanten.
	Relationships int
	NonHuman      int
	Skipped       int
}

type targetCandidate struct {
	target      *models.Target
	interaction models.Interaction
}

// Discover sammelt Wirkmechanismen aus ChEMBL und den von den Adaptern mitgelieferten,
// filtert auf Homo sapiens, standardisiert die Namen, fasst Duplikate zusammen und speichert.
// Fehler bei einzelnen Targets werden protokolliert und das Target übersprungen,
// Schreibfehler beenden die Suche mit einem PersistenceError.
// cache ist der Cache des Laufs dieser Verbindung; nil legt einen neuen an.
func (d *TargetDiscovery) Discover(ctx context.Context, c *models.Compound, carried []models.Mechanism, cache *providers.RunCache) (*DiscoveryResult, error) {
	res := &DiscoveryResult{}
	if cache == nil {
		cache = providers.NewRunCache()
	}
	log := d.Logger.With(zap.String("compound_id", c.ID), zap.String("compound", c.Name))

	mechs := append([]models.Mechanism(nil), carried...)
	if c.ChEMBLID != "" && d.Mechanisms != nil {
		found, err := d.Mechanisms.Mechanisms(ctx, c.ChEMBLID)
		switch {
		case errors.Is(err, providers.ErrNotFound):
		case err != nil:
			log.Warn("Wirkmechanismen nicht abrufbar", zap.String("chembl_id", c.ChEMBLID), zap.Error(err))
		default:
			mechs = append(mechs, found...)
		}
	}
	if len(mechs) == 0 {
		return res, nil
	}

	var order []models.TargetKey
	byKey := make(map[models.TargetKey]*targetCandidate)
	for _, m := range mechs {
		t, err := d.resolve(ctx, cache, m)
		if err != nil {
			res.Skipped++
			targetsFiltered.WithLabelValues("detail_error").Inc()
			log.Warn("Target übersprungen", zap.String("target", m.TargetName), zap.String("target_chembl_id", m.TargetChEMBLID), zap.Error(err))
			continue
		}
		if t == nil {
			res.Skipped++
			continue
		}
		if t.Organism != models.HumanOrganism {
			res.NonHuman++
			targetsFiltered.WithLabelValues("organism").Inc()
			log.Debug("Nicht-menschliches Target verworfen", zap.String("target", t.Name), zap.String("organism", t.Organism))
			continue
		}
		key := t.Key()
		if cand, ok := byKey[key]; ok {
			MergeTarget(cand.target, t)
			MergeInteraction(&cand.interaction, m.Interaction)
			continue
		}
		byKey[key] = &targetCandidate{target: t, interaction: m.Interaction.Clone()}
		order = append(order, key)
	}

	for _, key := range order {
		cand := byKey[key]
		d.annotate(ctx, cache, cand.target, log)
		saved, err := d.saveTarget(ctx, cand.target)
		if err != nil {
			return res, err
		}
		if err := d.link(ctx, c.ID, saved.ID, cand.interaction); err != nil {
			return res, err
		}
		res.Targets = append(res.Targets, saved)
		res.Relationships++
		targetsDiscovered.Inc()
	}
	log.Info("Target-Suche abgeschlossen",
		zap.Int("targets", len(res.Targets)),
		zap.Int("non_human", res.NonHuman),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// resolve baut aus einem Mechanismus ein Target. Fehlen Name oder Organismus, werden die Details nachgeladen.
func (d *TargetDiscovery) resolve(ctx context.Context, cache *providers.RunCache, m models.Mechanism) (*models.Target, error) {
	name, organism, typ, uniprot := m.TargetName, m.Organism, m.TargetType, m.UniProtID
	if (name == "" || organism == "") && m.TargetChEMBLID != "" && d.Details != nil {
		det, err := cache.TargetDetail(ctx, d.Details, m.TargetChEMBLID)
		if err != nil {
			return nil, err
		}
		if name == "" {
			name = det.Name
		}
		if organism == "" {
			organism = det.Organism
		}
		if typ == "" {
			typ = det.Type
		}
		if uniprot == "" {
			uniprot = det.UniProtID
		}
	}
	if cleanName(name) == "" {
		return nil, nil
	}
	std, tt := StandardizeTargetName(name, models.ParseTargetType(typ))
	return &models.Target{
		Name:             cleanName(name),
		StandardizedName: std,
		Type:             tt,
		Organism:         organism,
		TargetIDs: models.TargetIDs{
			ChEMBLID:  m.TargetChEMBLID,
			UniProtID: stripSpace(uniprot),
		},
	}, nil
}

// annotate ergänzt Kennungen aus UniProt. Fehler sind nicht fatal.
func (d *TargetDiscovery) annotate(ctx context.Context, cache *providers.RunCache, t *models.Target, log *zap.Logger) {
	if d.Annotator == nil || (t.UniProtID != "" && t.GeneName != "") {
		return
	}
	rec, err := cache.Fetch(ctx, d.Annotator, models.Query{Name: t.Name, ExternalID: t.UniProtID})
	if err != nil {
		if !errors.Is(err, providers.ErrNotFound) {
			log.Debug("UniProt-Annotation fehlgeschlagen", zap.String("target", t.Name), zap.Error(err))
		}
		return
	}
	if rec.Organism != "" && rec.Organism != t.Organism {
		return
	}
	standardizePartial(rec)
	MergeTarget(t, &models.Target{
		TargetIDs:   models.TargetIDs{UniProtID: rec.UniProtID, GeneName: rec.GeneName, GeneID: rec.GeneID},
		Description: rec.Description,
		Synonyms:    synonymsFrom(d.Annotator.Name(), rec.Synonyms...),
	})
}

// saveTarget legt ein Target an oder ergänzt das vorhandene mit demselben Identitätsschlüssel.
func (d *TargetDiscovery) saveTarget(ctx context.Context, t *models.Target) (*models.Target, error) {
	existing, err := d.Repo.FindTarget(ctx, t.Key())
	if err != nil {
		return nil, persistErr("find target", err)
	}
	now := d.now()
	if existing == nil {
		t.ID = models.TargetID(t.Key())
		t.CreatedAt, t.UpdatedAt = now, now
		if err := d.Repo.SaveTarget(ctx, t); err != nil {
			return nil, persistErr("save target", err)
		}
		return t, nil
	}
	merged := existing.Clone()
	if l := MergeTarget(merged, t); l.changed() {
		merged.UpdatedAt = now
		if err := d.Repo.SaveTarget(ctx, merged); err != nil {
			return nil, persistErr("save target", err)
		}
	}
	return merged, nil
}

// link schreibt die BINDS_TO-Kante. Eine vorhandene Wirkung wird nur ergänzt.
func (d *TargetDiscovery) link(ctx context.Context, compoundID, targetID string, in models.Interaction) error {
	existing, err := d.Repo.Interaction(ctx, compoundID, targetID)
	if err != nil {
		return persistErr("load interaction", err)
	}
	if existing != nil {
		merged := existing.Clone()
		if l := MergeInteraction(&merged, in); !l.changed() {
			return nil
		}
		in = merged
	}
	return persistErr("link target", d.Repo.LinkTarget(ctx, compoundID, targetID, in))
}

func (d *TargetDiscovery) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}
