package models

import "time"

// SourceType klassifiziert die natürliche Quelle.
type SourceType string

const (
	SourcePlant    SourceType = "plant"
	SourceFungus   SourceType = "fungus"
	SourceBacteria SourceType = "bacteria"
	SourceAnimal   SourceType = "animal"
	SourceMarine   SourceType = "marine"
	SourceOther    SourceType = "other"
)

// ParseSourceType ordnet freie Angaben einem SourceType zu.
func ParseSourceType(s string) SourceType {
	switch CanonicalName(s) {
	case "plant", "plantae":
		return SourcePlant
	case "fungus", "fungi":
		return SourceFungus
	case "bacteria", "bacterium":
		return SourceBacteria
	case "animal", "animalia":
		return SourceAnimal
	case "marine":
		return SourceMarine
	}
	return SourceOther
}

// Taxonomy enthält die optionalen taxonomischen Ränge.
type Taxonomy struct {
	Kingdom  string `json:"kingdom,omitempty" yaml:"kingdom"`
	Division string `json:"division,omitempty" yaml:"division"`
	Class    string `json:"class_name,omitempty" yaml:"class"`
	Order    string `json:"order,omitempty" yaml:"order"`
	Family   string `json:"family,omitempty" yaml:"family"`
	Genus    string `json:"genus,omitempty" yaml:"genus"`
	Species  string `json:"species,omitempty" yaml:"species"`
}

// Source ist ein Organismus, in dem Verbindungen vorkommen.
type Source struct {
	ID              string     `json:"id" yaml:"-"`
	Name            string     `json:"name" yaml:"name"`
	Type            SourceType `json:"type" yaml:"type"`
	CommonNames     []string   `json:"common_names,omitempty" yaml:"common_names"`
	NativeRegions   []string   `json:"native_regions,omitempty" yaml:"native_regions"`
	TraditionalUses []string   `json:"traditional_uses,omitempty" yaml:"traditional_uses"`
	Taxonomy        `yaml:",inline"`
	Description     string    `json:"description,omitempty" yaml:"description"`
	CreatedAt       time.Time `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time `json:"last_updated" yaml:"-"`
}

// SourceID leitet die Kennung einer Quelle aus ihrem Namen ab.
func SourceID(name string) string {
	return stableID("SRC_", CanonicalName(name))
}

// Clone erstellt eine tiefe Kopie.
func (s *Source) Clone() *Source {
	cp := *s
	cp.CommonNames = append([]string(nil), s.CommonNames...)
	cp.NativeRegions = append([]string(nil), s.NativeRegions...)
	cp.TraditionalUses = append([]string(nil), s.TraditionalUses...)
	return &cp
}
