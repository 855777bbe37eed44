package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"hyperblend/models"
)

type targetFamily struct {
	Name     string
	Keywords []string
}

// Rezeptorfamilien, geprüft in dieser Reihenfolge.
var receptorFamilies = []targetFamily{
	{Name: "Serotonin", Keywords: []string{"serotonin", "5-ht", "5ht", "hydroxytryptamine"}},
	{Name: "Dopamine", Keywords: []string{"dopamine"}},
	{Name: "Gaba", Keywords: []string{"gaba", "gamma-aminobutyric"}},
	{Name: "Glutamate", Keywords: []string{"glutamate", "nmda", "ampa", "kainate"}},
	{Name: "Acetylcholine", Keywords: []string{"acetylcholine", "muscarinic", "nicotinic"}},
	{Name: "Adrenergic", Keywords: []string{"adrenergic", "adrenoceptor"}},
	{Name: "Opioid", Keywords: []string{"opioid", "opiate"}},
	{Name: "Cannabinoid", Keywords: []string{"cannabinoid", "cb1", "cb2"}},
}

// Enzymfamilien, geprüft nach den Rezeptoren.
var enzymeFamilies = []targetFamily{
	{Name: "Monoamine Oxidase", Keywords: []string{"monoamine oxidase", "mao"}},
	{Name: "Cytochrome P450", Keywords: []string{"cytochrome p450", "cyp"}},
	{Name: "Acetylcholinesterase", Keywords: []string{"acetylcholinesterase", "ache"}},
	{Name: "Fatty Acid Amide Hydrolase", Keywords: []string{"fatty acid amide hydrolase", "faah"}},
}

var (
	fallbackStopWords = map[string]bool{"protein": true, "receptor": true, "enzyme": true, "human": true}
	enzymeSuffixes    = []string{"oxidase", "esterase", "hydrolase", "synthase"}
)

func (f targetFamily) matches(lower string) bool {
	for _, k := range f.Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// StandardizeTargetName leitet aus dem Rohnamen eines Targets den Standardnamen und den Typ ab.
// Reihenfolge: Rezeptorfamilie, Enzymfamilie, sonstiger Rezeptor, allgemeine Bereinigung.
// fallback ist der Typ, den die Quelle gemeldet hat.
func StandardizeTargetName(raw string, fallback models.TargetType) (string, models.TargetType) {
	raw = cleanName(raw)
	lower := strings.ToLower(raw)
	if raw == "" {
		return "", fallback
	}

	var name string
	typ := fallback
	if fam, ok := findFamily(receptorFamilies, lower); ok {
		name = joinNonEmpty(fam.Name, "receptor", subtypeToken(raw, fam))
		typ = models.TargetReceptor
	} else if fam, ok := findFamily(enzymeFamilies, lower); ok {
		name = joinNonEmpty(fam.Name, subtypeToken(raw, fam))
		typ = models.TargetEnzyme
	} else if containsWord(lower, "receptor") {
		name = titleWords(raw, "protein", "enzyme", "human")
	} else {
		name = titleWords(raw, "protein", "receptor", "enzyme", "human")
		if name == "" {
			name = raw
		}
	}
	return name, overrideTargetType(name, typ)
}

// overrideTargetType korrigiert den Typ anhand des Standardnamens.
func overrideTargetType(name string, typ models.TargetType) models.TargetType {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "receptor") {
		return models.TargetReceptor
	}
	for _, s := range enzymeSuffixes {
		if strings.Contains(lower, s) {
			return models.TargetEnzyme
		}
	}
	if strings.Contains(lower, "transporter") {
		return models.TargetTransporter
	}
	if typ == "" {
		return models.TargetOther
	}
	return typ
}

func findFamily(families []targetFamily, lower string) (targetFamily, bool) {
	for _, f := range families {
		if f.matches(lower) {
			return f, true
		}
	}
	return targetFamily{}, false
}

// subtypeToken liefert das letzte Wort mit einer Ziffer, z.B. "5-HT2A", "D2" oder "2D6".
// Bestandteile des Familiennamens (P450) zählen nicht.
func subtypeToken(raw string, fam targetFamily) string {
	familyWords := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(fam.Name)) {
		familyWords[w] = true
	}
	words := strings.Fields(raw)
	for i := len(words) - 1; i >= 0; i-- {
		w := strings.TrimFunc(words[i], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w == "" || familyWords[strings.ToLower(w)] {
			continue
		}
		if strings.IndexFunc(w, unicode.IsDigit) >= 0 {
			return w
		}
	}
	return ""
}

// titleWords entfernt die Stoppwörter und schreibt die übrigen Wörter groß.
// Wörter mit Ziffern oder in Großbuchstaben (Gen-Symbole) bleiben unverändert, "receptor" bleibt klein.
func titleWords(raw string, drop ...string) string {
	stop := make(map[string]bool, len(drop))
	for _, d := range drop {
		stop[d] = fallbackStopWords[d]
	}
	caser := cases.Title(language.Und)
	var out []string
	for _, w := range strings.Fields(raw) {
		lw := strings.ToLower(w)
		switch {
		case stop[lw]:
			continue
		case lw == "receptor":
			out = append(out, lw)
		case strings.IndexFunc(w, unicode.IsDigit) >= 0 || isUpperWord(w):
			out = append(out, w)
		default:
			out = append(out, caser.String(w))
		}
	}
	return strings.Join(out, " ")
}

func isUpperWord(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

func containsWord(lower, word string) bool {
	for _, w := range strings.Fields(lower) {
		if strings.Trim(w, "()[],;:") == word {
			return true
		}
	}
	return false
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
