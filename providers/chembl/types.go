package chembl

import "hyperblend/providers"

// Molecule ist ein Molekül-Eintrag der ChEMBL-API.
type Molecule struct {
	MoleculeChEMBLID   string `json:"molecule_chembl_id"`
	PrefName           string `json:"pref_name"`
	MoleculeProperties *struct {
		FullMolformula string              `json:"full_molformula"`
		FullMwt        providers.FlexFloat `json:"full_mwt"`
	} `json:"molecule_properties"`
	MoleculeStructures *struct {
		CanonicalSmiles string `json:"canonical_smiles"`
	} `json:"molecule_structures"`
	MoleculeSynonyms []struct {
		MoleculeSynonym string `json:"molecule_synonym"`
		SynType         string `json:"syn_type"`
	} `json:"molecule_synonyms"`
}

// MoleculeList ist die Antwort einer gefilterten Molekül-Suche.
type MoleculeList struct {
	Molecules []Molecule `json:"molecules"`
}

// Mechanism ist ein Wirkmechanismus-Eintrag.
type Mechanism struct {
	MoleculeChEMBLID  string `json:"molecule_chembl_id"`
	TargetChEMBLID    string `json:"target_chembl_id"`
	MechanismOfAction string `json:"mechanism_of_action"`
	ActionType        string `json:"action_type"`
	MechanismRefs     []struct {
		RefType string `json:"ref_type"`
		RefID   string `json:"ref_id"`
		RefURL  string `json:"ref_url"`
	} `json:"mechanism_refs"`
}

// MechanismList ist die Antwort der Mechanismus-Abfrage.
type MechanismList struct {
	Mechanisms []Mechanism `json:"mechanisms"`
}

// Activity ist ein Messwert (IC50, Ki, ...) einer Verbindung an einem Target.
type Activity struct {
	TargetChEMBLID   string              `json:"target_chembl_id"`
	TargetPrefName   string              `json:"target_pref_name"`
	TargetOrganism   string              `json:"target_organism"`
	StandardType     string              `json:"standard_type"`
	StandardValue    providers.FlexFloat `json:"standard_value"`
	StandardUnits    string              `json:"standard_units"`
	DocumentChEMBLID string              `json:"document_chembl_id"`
}

// ActivityList ist die Antwort der Aktivitäts-Abfrage.
type ActivityList struct {
	Activities []Activity `json:"activities"`
}

// Target ist ein Target-Eintrag der ChEMBL-API.
type Target struct {
	TargetChEMBLID   string `json:"target_chembl_id"`
	PrefName         string `json:"pref_name"`
	Organism         string `json:"organism"`
	TargetType       string `json:"target_type"`
	TargetComponents []struct {
		Accession     string `json:"accession"`
		ComponentType string `json:"component_type"`
	} `json:"target_components"`
}
