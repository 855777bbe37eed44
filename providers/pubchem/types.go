package pubchem

import "hyperblend/providers"

// PropertyResponse ist die Antwort der PUG-REST Property-Abfrage.
type PropertyResponse struct {
	PropertyTable struct {
		Properties []Properties `json:"Properties"`
	} `json:"PropertyTable"`
}

// Properties enthält die abgefragten Eigenschaften einer Verbindung.
// Neuere Antworten liefern "SMILES"/"ConnectivitySMILES" statt "CanonicalSMILES".
type Properties struct {
	CID                int                 `json:"CID"`
	Title              string              `json:"Title"`
	IUPACName          string              `json:"IUPACName"`
	MolecularFormula   string              `json:"MolecularFormula"`
	MolecularWeight    providers.FlexFloat `json:"MolecularWeight"`
	CanonicalSMILES    string              `json:"CanonicalSMILES"`
	ConnectivitySMILES string              `json:"ConnectivitySMILES"`
	IsomericSMILES     string              `json:"IsomericSMILES"`
	SMILES             string              `json:"SMILES"`
}

// SynonymResponse ist die Antwort der Synonym-Abfrage.
type SynonymResponse struct {
	InformationList struct {
		Information []struct {
			CID     int      `json:"CID"`
			Synonym []string `json:"Synonym"`
		} `json:"Information"`
	} `json:"InformationList"`
}

// DescriptionResponse ist die Antwort der Beschreibungs-Abfrage.
type DescriptionResponse struct {
	InformationList struct {
		Information []struct {
			CID         int    `json:"CID"`
			Title       string `json:"Title"`
			Description string `json:"Description"`
		} `json:"Information"`
	} `json:"InformationList"`
}

func (p *Properties) smiles() string {
	for _, s := range []string{p.CanonicalSMILES, p.ConnectivitySMILES, p.SMILES, p.IsomericSMILES} {
		if s != "" {
			return s
		}
	}
	return ""
}
