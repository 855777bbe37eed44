package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"hyperblend/models"
)

var (
	ligatureReplacer = strings.NewReplacer(
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬀ", "ff",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
		"ﬆ", "st",
		"œ", "oe",
		"æ", "ae",
	)
	spaceRE       = regexp.MustCompile("[\t\f\v\u00A0]+")
	multiSpaceRE  = regexp.MustCompile(` {2,}`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
	htmlTagRE     = regexp.MustCompile(`<[^>]+>`)
)

// normalizeUnicode führt NFC-Normalisierung durch und ersetzt gängige Ligaturen.
func normalizeUnicode(s string) string {
	s = ligatureReplacer.Replace(s)
	t := transform.Chain(norm.NFC)
	normalized, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return normalized
}

// collapseWhitespace fasst Leerraum zusammen und begrenzt Leerzeilen auf eine.
func collapseWhitespace(s string) string {
	s = spaceRE.ReplaceAllString(s, " ")
	s = multiSpaceRE.ReplaceAllString(s, " ")
	s = multiNewlines.ReplaceAllString(s, "\n\n")
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimRightFunc(lines[i], unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// cleanName bereinigt einen Anzeigenamen: einzeilig, NFC, ohne doppelten Leerraum.
func cleanName(s string) string {
	return strings.Join(strings.Fields(normalizeUnicode(s)), " ")
}

// cleanText bereinigt Freitext wie Beschreibungen. HTML-Reste aus PubChem werden entfernt.
func cleanText(s string) string {
	s = htmlTagRE.ReplaceAllString(s, "")
	return collapseWhitespace(normalizeUnicode(s))
}

// stripSpace entfernt jeglichen Leerraum aus Struktur- und Kennungsfeldern.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// standardizeCompound bringt alle Felder einer Verbindung in die kanonische Form.
func standardizeCompound(c *models.Compound) {
	c.Name = cleanName(c.Name)
	c.CanonicalName = models.CanonicalName(c.Name)
	c.SMILES = stripSpace(c.SMILES)
	c.MolecularFormula = stripSpace(c.MolecularFormula)
	c.Description = cleanText(c.Description)
	if c.MolecularWeight != nil && *c.MolecularWeight <= 0 {
		c.MolecularWeight = nil
	}
	for _, k := range models.CompoundIDKinds {
		p := c.ExternalIDs.Ref(k)
		*p = stripSpace(*p)
	}
	syns := make([]models.Synonym, 0, len(c.Synonyms))
	for _, s := range c.Synonyms {
		s.Name = cleanName(s.Name)
		if s.Name != "" {
			syns = append(syns, s)
		}
	}
	c.Synonyms = syns
}

// standardizePartial bringt die Antwort eines Adapters in dieselbe Form wie den kanonischen Datensatz.
func standardizePartial(p *models.PartialRecord) {
	p.Name = cleanName(p.Name)
	p.SMILES = stripSpace(p.SMILES)
	p.MolecularFormula = stripSpace(p.MolecularFormula)
	p.Description = cleanText(p.Description)
	if p.MolecularWeight != nil && *p.MolecularWeight <= 0 {
		p.MolecularWeight = nil
	}
	for _, k := range models.CompoundIDKinds {
		ref := p.ExternalIDs.Ref(k)
		*ref = stripSpace(*ref)
	}
	syns := make([]string, 0, len(p.Synonyms))
	for _, s := range p.Synonyms {
		if s = cleanName(s); s != "" {
			syns = append(syns, s)
		}
	}
	p.Synonyms = syns
	orgs := make([]models.Source, len(p.Organisms))
	for i, o := range p.Organisms {
		o.Name = cleanName(o.Name)
		orgs[i] = o
	}
	p.Organisms = orgs
	p.UniProtID = stripSpace(p.UniProtID)
	p.GeneName = stripSpace(p.GeneName)
	p.GeneID = stripSpace(p.GeneID)
}
