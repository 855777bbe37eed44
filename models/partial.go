package models

import "strings"

// Query ist eine Anfrage an einen externen Adapter; mindestens ein Feld ist gesetzt.
type Query struct {
	Name       string
	SMILES     string
	ExternalID string
}

// Empty meldet, ob die Anfrage keinerlei Suchkriterium enthält.
func (q Query) Empty() bool {
	return strings.TrimSpace(q.Name) == "" && strings.TrimSpace(q.SMILES) == "" && strings.TrimSpace(q.ExternalID) == ""
}

// Key ist der Schlüssel für den Cache innerhalb eines Laufs.
func (q Query) Key() string {
	return q.ExternalID + "\x1f" + q.SMILES + "\x1f" + CanonicalName(q.Name)
}

// PartialRecord ist die lückenhafte Antwort eines Adapters. Leere Felder gelten als unbekannt.
type PartialRecord struct {
	Source           string
	Name             string
	Description      string
	SMILES           string
	MolecularFormula string
	MolecularWeight  *float64
	ExternalIDs      ExternalIDs
	Synonyms         []string

	// Organismen, in denen die Verbindung vorkommt
	Organisms []Source
	// Von der Quelle mitgelieferte Wirkmechanismen
	Interactions []Mechanism

	// Target-Annotation (UniProt)
	Organism  string
	UniProtID string
	GeneName  string
	GeneID    string
}

// CompoundRequest ist die Eingabe für die Anreicherung einer einzelnen Verbindung.
type CompoundRequest struct {
	ID          string      `json:"id,omitempty" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	SMILES      string      `json:"smiles,omitempty" yaml:"smiles"`
	ExternalIDs ExternalIDs `json:"external_ids,omitempty" yaml:",inline"`
	// Optionale Quelle, in der die Verbindung vorkommt
	Source *Source `json:"source,omitempty" yaml:"source"`
}

// Label beschreibt die Anfrage für Berichte und Logs.
func (r CompoundRequest) Label() string {
	switch {
	case strings.TrimSpace(r.Name) != "":
		return r.Name
	case r.ID != "":
		return r.ID
	case r.SMILES != "":
		return r.SMILES
	}
	for _, k := range CompoundIDKinds {
		if v := r.ExternalIDs.Get(k); v != "" {
			return k + ":" + v
		}
	}
	return "<leer>"
}
