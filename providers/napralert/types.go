package napralert

// SearchRequest ist der Body einer NAPRALERT-Suche.
type SearchRequest struct {
	Query      string `json:"query"`
	SearchType string `json:"search_type"`
	Field      string `json:"field"`
}

// Entry ist ein Treffer der NAPRALERT-Suche.
type Entry struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	IUPACName        string `json:"iupac_name"`
	CAS              string `json:"cas"`
	InChI            string `json:"inchi"`
	InChIKey         string `json:"inchikey"`
	MolecularFormula string `json:"molecular_formula"`
}
