package coconut

import (
	"encoding/json"

	"hyperblend/providers"
)

// SearchResponse ist die Antwort der COCONUT-Namenssuche.
type SearchResponse struct {
	Compounds []struct {
		ID string `json:"id"`
	} `json:"compounds"`
}

// MoleculeSearch ist der Body der strukturierten Molekülsuche.
type MoleculeSearch struct {
	Search struct {
		Filters []SearchFilter `json:"filters"`
		Page    int            `json:"page"`
		Limit   int            `json:"limit"`
	} `json:"search"`
}

type SearchFilter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// MoleculeSearchResponse ist die Antwort der Molekülsuche.
type MoleculeSearchResponse struct {
	Data []struct {
		Identifier string `json:"identifier"`
	} `json:"data"`
}

// Compound ist der Detaileintrag einer Verbindung in COCONUT.
type Compound struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	IUPACName        string              `json:"iupac_name"`
	SMILES           string              `json:"smiles"`
	CanonicalSMILES  string              `json:"canonical_smiles"`
	MolecularFormula string              `json:"molecular_formula"`
	MolecularWeight  providers.FlexFloat `json:"molecular_weight"`
	Synonyms         []string            `json:"synonyms"`
	Organisms        []Organism          `json:"organisms"`
}

// Organism ist ein Herkunftsorganismus. COCONUT liefert ihn als Text oder als Objekt.
type Organism struct {
	Name    string `json:"name"`
	Kingdom string `json:"kingdom"`
	Family  string `json:"family"`
	Genus   string `json:"genus"`
}

func (o *Organism) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		o.Name = s
		return nil
	}
	type plain Organism
	return json.Unmarshal(b, (*plain)(o))
}
