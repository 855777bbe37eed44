package services

import (
	"fmt"

	"hyperblend/models"
)

// mergeLog sammelt, welche Felder eine Zusammenführung gefüllt hat und welche Werte verworfen wurden.
type mergeLog struct {
	Changed   []string
	Conflicts []string
}

func (l *mergeLog) changed() bool { return len(l.Changed) > 0 }

func (l *mergeLog) add(other mergeLog) {
	l.Changed = append(l.Changed, other.Changed...)
	l.Conflicts = append(l.Conflicts, other.Conflicts...)
}

// fillString setzt dst nur, wenn es leer ist und v einen Wert hat.
func fillString(field string, dst *string, v string, log *mergeLog) {
	if v == "" || *dst != "" {
		return
	}
	*dst = v
	log.Changed = append(log.Changed, field)
}

// fillFloat setzt dst nur, wenn es fehlt und v strikt positiv ist.
func fillFloat(field string, dst **float64, v *float64, log *mergeLog) {
	if v == nil || *v <= 0 || *dst != nil {
		return
	}
	f := *v
	*dst = &f
	log.Changed = append(log.Changed, field)
}

// setExternalID schreibt eine externe Kennung genau einmal. Ein abweichender Wert wird als Konflikt vermerkt.
func setExternalID(kind string, dst *string, v string, log *mergeLog) {
	switch {
	case v == "":
	case *dst == "":
		*dst = v
		log.Changed = append(log.Changed, kind)
	case *dst != v:
		log.Conflicts = append(log.Conflicts, fmt.Sprintf("%s: behalte %s, ignoriere %s", kind, *dst, v))
	}
}

// unionSynonyms ergänzt Synonyme, die nach Normalisierung noch nicht vorhanden sind.
// Die Herkunft des ersten Eintrags bleibt erhalten.
func unionSynonyms(dst *[]models.Synonym, add []models.Synonym, log *mergeLog) {
	seen := make(map[string]bool, len(*dst)+len(add))
	for _, s := range *dst {
		seen[models.CanonicalName(s.Name)] = true
	}
	for _, s := range add {
		key := models.CanonicalName(s.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		*dst = append(*dst, s)
		log.Changed = append(log.Changed, "synonym:"+key)
	}
}

// unionStrings ergänzt Einträge einer Menge ohne Rücksicht auf Groß-/Kleinschreibung.
func unionStrings(field string, dst *[]string, add []string, log *mergeLog) {
	seen := make(map[string]bool, len(*dst))
	for _, s := range *dst {
		seen[models.CanonicalName(s)] = true
	}
	for _, s := range add {
		key := models.CanonicalName(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		*dst = append(*dst, s)
		log.Changed = append(log.Changed, field)
	}
}

func synonymsFrom(source string, names ...string) []models.Synonym {
	out := make([]models.Synonym, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, models.Synonym{Name: n, Source: source})
		}
	}
	return out
}

// MergeCompound führt die Antwort eines Adapters in den kanonischen Datensatz zusammen.
// Gefüllte Felder bleiben unverändert, ein abweichender Name der Quelle wird zum Synonym.
func MergeCompound(c *models.Compound, p *models.PartialRecord) mergeLog {
	var log mergeLog
	if c.Name == "" {
		fillString("name", &c.Name, p.Name, &log)
		c.CanonicalName = models.CanonicalName(c.Name)
	}
	fillString("smiles", &c.SMILES, p.SMILES, &log)
	fillString("molecular_formula", &c.MolecularFormula, p.MolecularFormula, &log)
	fillFloat("molecular_weight", &c.MolecularWeight, p.MolecularWeight, &log)
	fillString("description", &c.Description, p.Description, &log)
	for _, k := range models.CompoundIDKinds {
		setExternalID(k, c.ExternalIDs.Ref(k), p.ExternalIDs.Get(k), &log)
	}

	names := p.Synonyms
	if p.Name != "" && models.CanonicalName(p.Name) != c.CanonicalName {
		names = append([]string{p.Name}, names...)
	}
	unionSynonyms(&c.Synonyms, synonymsFrom(p.Source, names...), &log)
	return log
}

// MergeCompoundRecords übernimmt fehlende Felder aus src in den gespeicherten Datensatz dst.
func MergeCompoundRecords(dst, src *models.Compound) mergeLog {
	var log mergeLog
	fillString("name", &dst.Name, src.Name, &log)
	fillString("canonical_name", &dst.CanonicalName, src.CanonicalName, &log)
	fillString("smiles", &dst.SMILES, src.SMILES, &log)
	fillString("molecular_formula", &dst.MolecularFormula, src.MolecularFormula, &log)
	fillFloat("molecular_weight", &dst.MolecularWeight, src.MolecularWeight, &log)
	fillString("description", &dst.Description, src.Description, &log)
	for _, k := range models.CompoundIDKinds {
		setExternalID(k, dst.ExternalIDs.Ref(k), src.ExternalIDs.Get(k), &log)
	}
	unionSynonyms(&dst.Synonyms, src.Synonyms, &log)
	if dst.CreatedAt.IsZero() {
		dst.CreatedAt = src.CreatedAt
	}
	return log
}

// MergeSource ergänzt eine Quelle um fehlende Angaben.
func MergeSource(dst, src *models.Source) mergeLog {
	var log mergeLog
	if dst.Type == "" || (dst.Type == models.SourceOther && src.Type != "") {
		if src.Type != "" && src.Type != dst.Type {
			dst.Type = src.Type
			log.Changed = append(log.Changed, "type")
		}
	}
	unionStrings("common_names", &dst.CommonNames, src.CommonNames, &log)
	unionStrings("native_regions", &dst.NativeRegions, src.NativeRegions, &log)
	unionStrings("traditional_uses", &dst.TraditionalUses, src.TraditionalUses, &log)
	fillString("kingdom", &dst.Kingdom, src.Kingdom, &log)
	fillString("division", &dst.Division, src.Division, &log)
	fillString("class_name", &dst.Class, src.Class, &log)
	fillString("order", &dst.Order, src.Order, &log)
	fillString("family", &dst.Family, src.Family, &log)
	fillString("genus", &dst.Genus, src.Genus, &log)
	fillString("species", &dst.Species, src.Species, &log)
	fillString("description", &dst.Description, src.Description, &log)
	return log
}

// MergeTarget ergänzt ein Target um fehlende Kennungen, Beschreibung und Synonyme.
// Ein allgemeiner Typ wird durch einen spezifischeren ersetzt.
func MergeTarget(dst, src *models.Target) mergeLog {
	var log mergeLog
	fillString("name", &dst.Name, src.Name, &log)
	if (dst.Type == "" || dst.Type == models.TargetOther) && src.Type != "" && src.Type != dst.Type {
		dst.Type = src.Type
		log.Changed = append(log.Changed, "type")
	}
	fillString("uniprot_id", &dst.UniProtID, src.UniProtID, &log)
	fillString("chembl_id", &dst.ChEMBLID, src.ChEMBLID, &log)
	fillString("gene_id", &dst.GeneID, src.GeneID, &log)
	fillString("gene_name", &dst.GeneName, src.GeneName, &log)
	fillString("description", &dst.Description, src.Description, &log)
	unionSynonyms(&dst.Synonyms, src.Synonyms, &log)
	return log
}

// MergeInteraction ergänzt eine Wirkung. Belege werden vereinigt.
func MergeInteraction(dst *models.Interaction, src models.Interaction) mergeLog {
	var log mergeLog
	fillString("action", &dst.Action, src.Action, &log)
	fillString("action_type", &dst.ActionType, src.ActionType, &log)
	fillFloat("action_value", &dst.ActionValue, src.ActionValue, &log)
	fillString("action_unit", &dst.ActionUnit, src.ActionUnit, &log)
	unionExact("evidence", &dst.Evidence, src.Evidence, &log)
	unionExact("evidence_urls", &dst.EvidenceURLs, src.EvidenceURLs, &log)
	return log
}

// unionExact ergänzt Einträge, die noch nicht exakt vorhanden sind.
func unionExact(field string, dst *[]string, add []string, log *mergeLog) {
	seen := make(map[string]bool, len(*dst))
	for _, s := range *dst {
		seen[s] = true
	}
	for _, s := range add {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		*dst = append(*dst, s)
		log.Changed = append(log.Changed, field)
	}
}
