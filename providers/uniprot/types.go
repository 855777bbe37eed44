package uniprot

// Entry ist ein UniProtKB-Eintrag, reduziert auf die benötigten Felder.
type Entry struct {
	PrimaryAccession string `json:"primaryAccession"`
	Organism         struct {
		ScientificName string `json:"scientificName"`
		TaxonID        int    `json:"taxonId"`
	} `json:"organism"`
	ProteinDescription struct {
		RecommendedName *struct {
			FullName struct {
				Value string `json:"value"`
			} `json:"fullName"`
		} `json:"recommendedName"`
		AlternativeNames []struct {
			FullName struct {
				Value string `json:"value"`
			} `json:"fullName"`
		} `json:"alternativeNames"`
	} `json:"proteinDescription"`
	Genes []struct {
		GeneName *struct {
			Value string `json:"value"`
		} `json:"geneName"`
	} `json:"genes"`
}

// SearchResponse ist die Antwort der UniProtKB-Suche.
type SearchResponse struct {
	Results []Entry `json:"results"`
}
