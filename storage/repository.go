package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"hyperblend/models"
)

// Repository bildet die kanonischen Datensätze auf Knoten und Kanten des Graphen ab.
type Repository struct {
	Store  GraphStore
	Logger *zap.Logger
}

// NewRepository erstellt ein Repository über dem gegebenen Store.
func NewRepository(store GraphStore, logger *zap.Logger) *Repository {
	return &Repository{Store: store, Logger: logger}
}

// TargetLink ist ein Target samt der Wirkung einer Verbindung darauf.
type TargetLink struct {
	Target      *models.Target     `json:"target"`
	Interaction models.Interaction `json:"interaction"`
}

// ---- Compound ----

// CompoundToProps bildet eine Verbindung auf Knoten-Eigenschaften ab. Leere Felder werden ausgelassen.
func CompoundToProps(c *models.Compound) map[string]any {
	m := map[string]any{"id": c.ID}
	putString(m, "name", c.Name)
	putString(m, "canonical_name", c.CanonicalName)
	putString(m, "smiles", c.SMILES)
	putString(m, "molecular_formula", c.MolecularFormula)
	putFloat(m, "molecular_weight", c.MolecularWeight)
	putString(m, "description", c.Description)
	for _, k := range models.CompoundIDKinds {
		putString(m, k, c.ExternalIDs.Get(k))
	}
	putTime(m, "created_at", c.CreatedAt)
	putTime(m, "last_updated", c.UpdatedAt)
	return m
}

// CompoundFromNode bildet einen Knoten auf eine Verbindung ab (ohne Synonyme).
func CompoundFromNode(n *Node) *models.Compound {
	p := n.Props
	c := &models.Compound{
		ID:               n.ID,
		Name:             propString(p, "name"),
		CanonicalName:    propString(p, "canonical_name"),
		SMILES:           propString(p, "smiles"),
		MolecularFormula: propString(p, "molecular_formula"),
		MolecularWeight:  propFloat(p, "molecular_weight"),
		Description:      propString(p, "description"),
		CreatedAt:        propTime(p, "created_at"),
		UpdatedAt:        propTime(p, "last_updated"),
	}
	for _, k := range models.CompoundIDKinds {
		*c.ExternalIDs.Ref(k) = propString(p, k)
	}
	return c
}

// GetCompound lädt eine Verbindung samt Synonymen.
func (r *Repository) GetCompound(ctx context.Context, id string) (*models.Compound, error) {
	n, err := r.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Label != LabelCompound {
		return nil, ErrNodeNotFound
	}
	c := CompoundFromNode(n)
	if c.Synonyms, err = r.Synonyms(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

// FindCompound sucht eine gespeicherte Verbindung per Kennung, externer Kennung oder kanonischem Namen.
// Liefert nil ohne Fehler, wenn nichts gefunden wurde.
func (r *Repository) FindCompound(ctx context.Context, req models.CompoundRequest) (*models.Compound, error) {
	if req.ID != "" {
		c, err := r.GetCompound(ctx, req.ID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrNodeNotFound) {
			return nil, err
		}
	}
	for _, k := range models.CompoundIDKinds {
		v := strings.TrimSpace(req.ExternalIDs.Get(k))
		if v == "" {
			continue
		}
		id, err := r.CompoundIDByExternalID(ctx, k, v)
		if err != nil {
			return nil, err
		}
		if id != "" {
			return r.GetCompound(ctx, id)
		}
	}
	if cn := models.CanonicalName(req.Name); cn != "" {
		nodes, err := r.Store.Query(ctx, Filter{Label: LabelCompound, Where: map[string]any{"canonical_name": cn}, Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(nodes) > 0 {
			return r.GetCompound(ctx, nodes[0].ID)
		}
	}
	return nil, nil
}

// CompoundIDByExternalID liefert die Kennung der Verbindung, die die externe Kennung trägt, sonst "".
func (r *Repository) CompoundIDByExternalID(ctx context.Context, kind, value string) (string, error) {
	nodes, err := r.Store.Query(ctx, Filter{Label: LabelCompound, Where: map[string]any{kind: value}, Limit: 1})
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return "", nil
	}
	return nodes[0].ID, nil
}

// SaveCompound schreibt die Verbindung und ihre Synonyme.
func (r *Repository) SaveCompound(ctx context.Context, c *models.Compound) error {
	if c.ID == "" || strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("compound needs id and name")
	}
	if _, err := r.Store.MergeNode(ctx, LabelCompound, c.ID, CompoundToProps(c)); err != nil {
		return err
	}
	return r.saveSynonyms(ctx, c.ID, c.Synonyms)
}

// ListCompounds liefert gespeicherte Verbindungen, optional gefiltert.
func (r *Repository) ListCompounds(ctx context.Context, where map[string]any, limit int) ([]*models.Compound, error) {
	nodes, err := r.Store.Query(ctx, Filter{Label: LabelCompound, Where: where, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Compound, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, CompoundFromNode(n))
	}
	return out, nil
}

// ---- Synonyme ----

// Synonyms liefert die Synonyme eines Knotens, sortiert nach Namen.
func (r *Repository) Synonyms(ctx context.Context, ownerID string) ([]models.Synonym, error) {
	nodes, err := r.Store.Query(ctx, Filter{Label: LabelSynonym, Where: map[string]any{"owner_id": ownerID}})
	if err != nil {
		return nil, err
	}
	out := make([]models.Synonym, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, models.Synonym{Name: propString(n.Props, "name"), Source: propString(n.Props, "source")})
	}
	sort.Slice(out, func(i, j int) bool {
		return models.CanonicalName(out[i].Name) < models.CanonicalName(out[j].Name)
	})
	return out, nil
}

// saveSynonyms legt Synonym-Knoten an. Die Kennung hängt nur von Besitzer und normalisiertem
// Namen ab, ein bestehendes Synonym wird daher nie dupliziert und seine Herkunft nicht überschrieben.
func (r *Repository) saveSynonyms(ctx context.Context, ownerID string, syns []models.Synonym) error {
	for _, s := range syns {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		id := models.SynonymID(ownerID, s.Name)
		if _, err := r.Store.Get(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, ErrNodeNotFound) {
			return err
		}
		props := map[string]any{"owner_id": ownerID, "name": s.Name, "canonical_name": models.CanonicalName(s.Name)}
		putString(props, "source", s.Source)
		if _, err := r.Store.MergeNode(ctx, LabelSynonym, id, props); err != nil {
			return err
		}
		if _, err := r.Store.MergeEdge(ctx, RelHasSynonym, ownerID, id, nil); err != nil {
			return err
		}
	}
	return nil
}

// ---- Source ----

// SourceToProps bildet eine Quelle auf Knoten-Eigenschaften ab.
func SourceToProps(s *models.Source) map[string]any {
	m := map[string]any{"id": s.ID}
	putString(m, "name", s.Name)
	putString(m, "canonical_name", models.CanonicalName(s.Name))
	putString(m, "type", string(s.Type))
	putStrings(m, "common_names", s.CommonNames)
	putStrings(m, "native_regions", s.NativeRegions)
	putStrings(m, "traditional_uses", s.TraditionalUses)
	putString(m, "kingdom", s.Kingdom)
	putString(m, "division", s.Division)
	putString(m, "class_name", s.Class)
	putString(m, "order", s.Order)
	putString(m, "family", s.Family)
	putString(m, "genus", s.Genus)
	putString(m, "species", s.Species)
	putString(m, "description", s.Description)
	putTime(m, "created_at", s.CreatedAt)
	putTime(m, "last_updated", s.UpdatedAt)
	return m
}

// SourceFromNode bildet einen Knoten auf eine Quelle ab.
func SourceFromNode(n *Node) *models.Source {
	p := n.Props
	return &models.Source{
		ID:              n.ID,
		Name:            propString(p, "name"),
		Type:            models.SourceType(propString(p, "type")),
		CommonNames:     propStrings(p, "common_names"),
		NativeRegions:   propStrings(p, "native_regions"),
		TraditionalUses: propStrings(p, "traditional_uses"),
		Taxonomy: models.Taxonomy{
			Kingdom:  propString(p, "kingdom"),
			Division: propString(p, "division"),
			Class:    propString(p, "class_name"),
			Order:    propString(p, "order"),
			Family:   propString(p, "family"),
			Genus:    propString(p, "genus"),
			Species:  propString(p, "species"),
		},
		Description: propString(p, "description"),
		CreatedAt:   propTime(p, "created_at"),
		UpdatedAt:   propTime(p, "last_updated"),
	}
}

// GetSource lädt eine Quelle.
func (r *Repository) GetSource(ctx context.Context, id string) (*models.Source, error) {
	n, err := r.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Label != LabelSource {
		return nil, ErrNodeNotFound
	}
	return SourceFromNode(n), nil
}

// FindSource sucht eine Quelle per Namen. Liefert nil ohne Fehler, wenn keine existiert.
func (r *Repository) FindSource(ctx context.Context, name string) (*models.Source, error) {
	s, err := r.GetSource(ctx, models.SourceID(name))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNodeNotFound) {
		return nil, err
	}
	nodes, err := r.Store.Query(ctx, Filter{Label: LabelSource, Where: map[string]any{"canonical_name": models.CanonicalName(name)}, Limit: 1})
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return SourceFromNode(nodes[0]), nil
}

// SaveSource schreibt eine Quelle.
func (r *Repository) SaveSource(ctx context.Context, s *models.Source) error {
	if s.ID == "" || strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("source needs id and name")
	}
	_, err := r.Store.MergeNode(ctx, LabelSource, s.ID, SourceToProps(s))
	return err
}

// ListSources liefert alle Quellen.
func (r *Repository) ListSources(ctx context.Context, limit int) ([]*models.Source, error) {
	nodes, err := r.Store.Query(ctx, Filter{Label: LabelSource, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Source, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, SourceFromNode(n))
	}
	return out, nil
}

// LinkSource legt die Kante Compound -[FOUND_IN]-> Source an.
func (r *Repository) LinkSource(ctx context.Context, compoundID, sourceID string) error {
	_, err := r.Store.MergeEdge(ctx, RelFoundIn, compoundID, sourceID, nil)
	return err
}

// SourceLinked meldet, ob die Kante Compound -[FOUND_IN]-> Source bereits existiert.
func (r *Repository) SourceLinked(ctx context.Context, compoundID, sourceID string) (bool, error) {
	edges, err := r.edges(ctx, EdgeFilter{Label: RelFoundIn, FromID: compoundID, ToID: sourceID})
	return len(edges) > 0, err
}

// CompoundSources liefert die Quellen einer Verbindung.
func (r *Repository) CompoundSources(ctx context.Context, compoundID string) ([]*models.Source, error) {
	edges, err := r.edges(ctx, EdgeFilter{Label: RelFoundIn, FromID: compoundID})
	if err != nil {
		return nil, err
	}
	var out []*models.Source
	for _, e := range edges {
		s, err := r.GetSource(ctx, e.ToID)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ---- Target ----

// TargetToProps bildet ein Target auf Knoten-Eigenschaften ab.
func TargetToProps(t *models.Target) map[string]any {
	m := map[string]any{"id": t.ID}
	putString(m, "name", t.Name)
	putString(m, "standardized_name", t.StandardizedName)
	putString(m, "standardized_key", models.CanonicalName(t.StandardizedName))
	putString(m, "type", string(t.Type))
	putString(m, "organism", t.Organism)
	putString(m, "uniprot_id", t.UniProtID)
	putString(m, "chembl_id", t.ChEMBLID)
	putString(m, "gene_id", t.GeneID)
	putString(m, "gene_name", t.GeneName)
	putString(m, "description", t.Description)
	putTime(m, "created_at", t.CreatedAt)
	putTime(m, "last_updated", t.UpdatedAt)
	return m
}

// TargetFromNode bildet einen Knoten auf ein Target ab (ohne Synonyme).
func TargetFromNode(n *Node) *models.Target {
	p := n.Props
	return &models.Target{
		ID:               n.ID,
		Name:             propString(p, "name"),
		StandardizedName: propString(p, "standardized_name"),
		Type:             models.TargetType(propString(p, "type")),
		Organism:         propString(p, "organism"),
		TargetIDs: models.TargetIDs{
			UniProtID: propString(p, "uniprot_id"),
			ChEMBLID:  propString(p, "chembl_id"),
			GeneID:    propString(p, "gene_id"),
			GeneName:  propString(p, "gene_name"),
		},
		Description: propString(p, "description"),
		CreatedAt:   propTime(p, "created_at"),
		UpdatedAt:   propTime(p, "last_updated"),
	}
}

// GetTarget lädt ein Target samt Synonymen.
func (r *Repository) GetTarget(ctx context.Context, id string) (*models.Target, error) {
	n, err := r.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Label != LabelTarget {
		return nil, ErrNodeNotFound
	}
	t := TargetFromNode(n)
	if t.Synonyms, err = r.Synonyms(ctx, id); err != nil {
		return nil, err
	}
	return t, nil
}

// FindTarget sucht ein Target per Identitätsschlüssel. Liefert nil ohne Fehler, wenn keines existiert.
func (r *Repository) FindTarget(ctx context.Context, key models.TargetKey) (*models.Target, error) {
	nodes, err := r.Store.Query(ctx, Filter{Label: LabelTarget, Where: map[string]any{
		"standardized_key": models.CanonicalName(key.StandardizedName),
		"organism":         key.Organism,
	}, Limit: 1})
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return r.GetTarget(ctx, nodes[0].ID)
}

// SaveTarget schreibt ein Target. Targets anderer Organismen als Homo sapiens werden abgewiesen.
func (r *Repository) SaveTarget(ctx context.Context, t *models.Target) error {
	if t.Organism != models.HumanOrganism {
		return fmt.Errorf("%s (%s): %w", t.StandardizedName, t.Organism, models.ErrNonHumanTarget)
	}
	if t.ID == "" || strings.TrimSpace(t.StandardizedName) == "" {
		return fmt.Errorf("target needs id and standardized name")
	}
	if _, err := r.Store.MergeNode(ctx, LabelTarget, t.ID, TargetToProps(t)); err != nil {
		return err
	}
	return r.saveSynonyms(ctx, t.ID, t.Synonyms)
}

// ListTargets liefert Targets, optional gefiltert nach Organismus.
func (r *Repository) ListTargets(ctx context.Context, organism string, limit int) ([]*models.Target, error) {
	f := Filter{Label: LabelTarget, Limit: limit}
	if organism != "" {
		f.Where = map[string]any{"organism": organism}
	}
	nodes, err := r.Store.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Target, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, TargetFromNode(n))
	}
	return out, nil
}

// InteractionToProps bildet eine Wirkung auf Kanten-Eigenschaften ab.
func InteractionToProps(in models.Interaction) map[string]any {
	m := map[string]any{}
	putString(m, "action", in.Action)
	putString(m, "action_type", in.ActionType)
	putFloat(m, "action_value", in.ActionValue)
	putString(m, "action_unit", in.ActionUnit)
	putStrings(m, "evidence", in.Evidence)
	putStrings(m, "evidence_urls", in.EvidenceURLs)
	return m
}

// InteractionFromProps bildet Kanten-Eigenschaften auf eine Wirkung ab.
func InteractionFromProps(p map[string]any) models.Interaction {
	return models.Interaction{
		Action:       propString(p, "action"),
		ActionType:   propString(p, "action_type"),
		ActionValue:  propFloat(p, "action_value"),
		ActionUnit:   propString(p, "action_unit"),
		Evidence:     propStrings(p, "evidence"),
		EvidenceURLs: propStrings(p, "evidence_urls"),
	}
}

// Interaction liefert die gespeicherte Wirkung einer Verbindung auf ein Target, falls vorhanden.
func (r *Repository) Interaction(ctx context.Context, compoundID, targetID string) (*models.Interaction, error) {
	edges, err := r.edges(ctx, EdgeFilter{Label: RelBindsTo, FromID: compoundID, ToID: targetID})
	if err != nil || len(edges) == 0 {
		return nil, err
	}
	in := InteractionFromProps(edges[0].Props)
	return &in, nil
}

// LinkTarget legt die Kante Compound -[BINDS_TO]-> Target an oder aktualisiert sie.
func (r *Repository) LinkTarget(ctx context.Context, compoundID, targetID string, in models.Interaction) error {
	_, err := r.Store.MergeEdge(ctx, RelBindsTo, compoundID, targetID, InteractionToProps(in))
	return err
}

// CompoundTargets liefert die Targets einer Verbindung samt Wirkung.
func (r *Repository) CompoundTargets(ctx context.Context, compoundID string) ([]TargetLink, error) {
	edges, err := r.edges(ctx, EdgeFilter{Label: RelBindsTo, FromID: compoundID})
	if err != nil {
		return nil, err
	}
	var out []TargetLink
	for _, e := range edges {
		t, err := r.GetTarget(ctx, e.ToID)
		if err != nil {
			return nil, err
		}
		out = append(out, TargetLink{Target: t, Interaction: InteractionFromProps(e.Props)})
	}
	return out, nil
}

// ---- Administration ----

// CleanupNonHumanTargets entfernt alle Targets anderer Organismen samt Kanten und Synonymen.
func (r *Repository) CleanupNonHumanTargets(ctx context.Context) (int, error) {
	deleter, ok := r.Store.(NodeDeleter)
	if !ok {
		return 0, fmt.Errorf("graph backend does not support deletion")
	}
	targets, err := r.ListTargets(ctx, "", 0)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, t := range targets {
		if t.Organism == models.HumanOrganism {
			continue
		}
		syns, err := r.Store.Query(ctx, Filter{Label: LabelSynonym, Where: map[string]any{"owner_id": t.ID}})
		if err != nil {
			return removed, err
		}
		for _, s := range syns {
			if err := deleter.DeleteNode(ctx, s.ID); err != nil && !errors.Is(err, ErrNodeNotFound) {
				return removed, err
			}
		}
		if err := deleter.DeleteNode(ctx, t.ID); err != nil && !errors.Is(err, ErrNodeNotFound) {
			return removed, err
		}
		r.Logger.Info("Nicht-menschliches Target entfernt", zap.String("target_id", t.ID), zap.String("organism", t.Organism))
		removed++
	}
	return removed, nil
}

// VerifyReport listet Auffälligkeiten im Graph.
type VerifyReport struct {
	Compounds              int      `json:"compounds"`
	Sources                int      `json:"sources"`
	Targets                int      `json:"targets"`
	CompoundsWithoutSMILES []string `json:"compounds_without_smiles"`
	CompoundsWithoutIDs    []string `json:"compounds_without_external_ids"`
	OrphanSources          []string `json:"orphan_sources"`
	NonHumanTargets        []string `json:"non_human_targets"`
}

// Verify prüft den Graph auf unvollständige Verbindungen, verwaiste Quellen und fremde Targets.
func (r *Repository) Verify(ctx context.Context) (*VerifyReport, error) {
	rep := &VerifyReport{}

	compounds, err := r.ListCompounds(ctx, nil, 0)
	if err != nil {
		return nil, err
	}
	rep.Compounds = len(compounds)
	for _, c := range compounds {
		if c.SMILES == "" {
			rep.CompoundsWithoutSMILES = append(rep.CompoundsWithoutSMILES, c.Name)
		}
		if c.ExternalIDs.Empty() {
			rep.CompoundsWithoutIDs = append(rep.CompoundsWithoutIDs, c.Name)
		}
	}

	sources, err := r.ListSources(ctx, 0)
	if err != nil {
		return nil, err
	}
	rep.Sources = len(sources)
	for _, s := range sources {
		edges, err := r.edges(ctx, EdgeFilter{Label: RelFoundIn, ToID: s.ID})
		if err != nil {
			return nil, err
		}
		if len(edges) == 0 {
			rep.OrphanSources = append(rep.OrphanSources, s.Name)
		}
	}

	targets, err := r.ListTargets(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	rep.Targets = len(targets)
	for _, t := range targets {
		if t.Organism != models.HumanOrganism {
			rep.NonHumanTargets = append(rep.NonHumanTargets, t.StandardizedName+" ("+t.Organism+")")
		}
	}
	return rep, nil
}

func (r *Repository) edges(ctx context.Context, f EdgeFilter) ([]*Edge, error) {
	lister, ok := r.Store.(EdgeLister)
	if !ok {
		return nil, fmt.Errorf("graph backend does not support edge listing")
	}
	return lister.Edges(ctx, f)
}
