package models

import (
	"time"

	"github.com/google/uuid"
)

// Schlüssel der externen Kennungen einer Verbindung, zugleich Property-Namen im Graph.
const (
	IDPubChem   = "pubchem_id"
	IDChEMBL    = "chembl_id"
	IDNapralert = "napralert_id"
	IDCoconut   = "coconut_id"
)

// CompoundIDKinds listet alle externen Kennungen in fester Reihenfolge.
var CompoundIDKinds = []string{IDPubChem, IDChEMBL, IDNapralert, IDCoconut}

// ExternalIDs bündelt die Kennungen einer Verbindung in den externen Datenbanken.
// Jede Kennung wird genau einmal gesetzt und danach nicht mehr verändert.
type ExternalIDs struct {
	PubChemID   string `json:"pubchem_id,omitempty" yaml:"pubchem_id"`
	ChEMBLID    string `json:"chembl_id,omitempty" yaml:"chembl_id"`
	NapralertID string `json:"napralert_id,omitempty" yaml:"napralert_id"`
	CoconutID   string `json:"coconut_id,omitempty" yaml:"coconut_id"`
}

// Ref liefert einen Zeiger auf das Feld zur gegebenen Kennung oder nil.
func (e *ExternalIDs) Ref(kind string) *string {
	switch kind {
	case IDPubChem:
		return &e.PubChemID
	case IDChEMBL:
		return &e.ChEMBLID
	case IDNapralert:
		return &e.NapralertID
	case IDCoconut:
		return &e.CoconutID
	}
	return nil
}

// Get liefert den Wert einer Kennung, leer wenn unbekannt.
func (e ExternalIDs) Get(kind string) string {
	if p := e.Ref(kind); p != nil {
		return *p
	}
	return ""
}

// Empty meldet, ob keine einzige Kennung gesetzt ist.
func (e ExternalIDs) Empty() bool {
	for _, k := range CompoundIDKinds {
		if e.Get(k) != "" {
			return false
		}
	}
	return true
}

// Synonym ist ein alternativer Name mit seiner Herkunft.
type Synonym struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Compound ist der kanonische Datensatz einer chemischen Verbindung.
type Compound struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	CanonicalName    string   `json:"canonical_name"`
	SMILES           string   `json:"smiles,omitempty"`
	MolecularFormula string   `json:"molecular_formula,omitempty"`
	MolecularWeight  *float64 `json:"molecular_weight,omitempty"`
	ExternalIDs
	Description string    `json:"description,omitempty"`
	Synonyms    []Synonym `json:"synonyms,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"last_updated"`
}

// HasIdentifyingField meldet, ob neben dem Namen ein identifizierendes Merkmal vorliegt.
func (c *Compound) HasIdentifyingField() bool {
	return c.SMILES != "" || !c.ExternalIDs.Empty()
}

// Clone erstellt eine tiefe Kopie.
func (c *Compound) Clone() *Compound {
	cp := *c
	if c.MolecularWeight != nil {
		w := *c.MolecularWeight
		cp.MolecularWeight = &w
	}
	cp.Synonyms = append([]Synonym(nil), c.Synonyms...)
	return &cp
}

// NewCompoundID vergibt eine neue, stabile Kennung.
func NewCompoundID() string {
	return "CMP_" + uuid.NewString()
}

// Float ist ein Helfer für optionale Zahlenfelder.
func Float(v float64) *float64 {
	return &v
}
