package models

import (
	"errors"
	"strings"
	"time"
)

// HumanOrganism ist der einzige Organismus, dessen Targets gespeichert werden.
const HumanOrganism = "Homo sapiens"

// ErrNonHumanTarget wird geliefert, wenn ein Target eines anderen Organismus gespeichert werden soll.
var ErrNonHumanTarget = errors.New("target organism is not " + HumanOrganism)

// TargetType klassifiziert ein biologisches Target.
type TargetType string

const (
	TargetReceptor    TargetType = "receptor"
	TargetEnzyme      TargetType = "enzyme"
	TargetTransporter TargetType = "transporter"
	TargetIonChannel  TargetType = "ion_channel"
	TargetProtein     TargetType = "protein"
	TargetOther       TargetType = "other"
)

// ParseTargetType ordnet den Typ einer Quelle (z.B. ChEMBL "SINGLE PROTEIN") zu.
func ParseTargetType(s string) TargetType {
	s = strings.ToLower(s)
	switch {
	case s == "":
		return TargetOther
	case strings.Contains(s, "channel"):
		return TargetIonChannel
	case strings.Contains(s, "receptor"):
		return TargetReceptor
	case strings.Contains(s, "enzyme"):
		return TargetEnzyme
	case strings.Contains(s, "transporter"):
		return TargetTransporter
	case strings.Contains(s, "protein"):
		return TargetProtein
	}
	switch TargetType(s) {
	case TargetReceptor, TargetEnzyme, TargetTransporter, TargetIonChannel, TargetProtein:
		return TargetType(s)
	}
	return TargetOther
}

// TargetIDs bündelt externe Kennungen eines Targets.
type TargetIDs struct {
	UniProtID string `json:"uniprot_id,omitempty"`
	ChEMBLID  string `json:"chembl_id,omitempty"`
	GeneID    string `json:"gene_id,omitempty"`
	GeneName  string `json:"gene_name,omitempty"`
}

// Target ist ein biologisches Zielmolekül.
type Target struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	StandardizedName string     `json:"standardized_name"`
	Type             TargetType `json:"type"`
	Organism         string     `json:"organism"`
	TargetIDs
	Description string    `json:"description,omitempty"`
	Synonyms    []Synonym `json:"synonyms,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"last_updated"`
}

// TargetKey ist der Identitätsschlüssel eines Targets.
type TargetKey struct {
	StandardizedName string
	Organism         string
}

// Key liefert den Identitätsschlüssel.
func (t *Target) Key() TargetKey {
	return TargetKey{StandardizedName: CanonicalName(t.StandardizedName), Organism: t.Organism}
}

// TargetID leitet die Kennung eines Targets aus seinem Identitätsschlüssel ab.
func TargetID(k TargetKey) string {
	return stableID("TGT_", CanonicalName(k.StandardizedName), k.Organism)
}

// Interaction beschreibt die Wirkung einer Verbindung auf ein Target (Kante BINDS_TO).
type Interaction struct {
	Action       string   `json:"action,omitempty"`
	ActionType   string   `json:"action_type,omitempty"`
	ActionValue  *float64 `json:"action_value,omitempty"`
	ActionUnit   string   `json:"action_unit,omitempty"`
	Evidence     []string `json:"evidence,omitempty"`
	EvidenceURLs []string `json:"evidence_urls,omitempty"`
}

// Mechanism ist ein von einer Quelle gemeldeter Wirkmechanismus samt Target-Angaben.
type Mechanism struct {
	TargetChEMBLID string `json:"target_chembl_id,omitempty"`
	TargetName     string `json:"target_name"`
	TargetType     string `json:"target_type,omitempty"`
	Organism       string `json:"organism,omitempty"`
	UniProtID      string `json:"uniprot_id,omitempty"`
	Interaction
}

// TargetDetail sind die Angaben einer Quelle zu einem einzelnen Target.
type TargetDetail struct {
	ChEMBLID  string
	Name      string
	Type      string
	Organism  string
	UniProtID string
}

// Clone erstellt eine tiefe Kopie.
func (t *Target) Clone() *Target {
	cp := *t
	cp.Synonyms = append([]Synonym(nil), t.Synonyms...)
	return &cp
}

// Clone erstellt eine tiefe Kopie.
func (in Interaction) Clone() Interaction {
	cp := in
	if in.ActionValue != nil {
		v := *in.ActionValue
		cp.ActionValue = &v
	}
	cp.Evidence = append([]string(nil), in.Evidence...)
	cp.EvidenceURLs = append([]string(nil), in.EvidenceURLs...)
	return cp
}
