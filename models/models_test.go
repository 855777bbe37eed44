package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "mescaline", CanonicalName("  Mescaline "))
	assert.Equal(t, "lophophora williamsii", CanonicalName("Lophophora\t  WILLIAMSII"))
	// "e" + combining acute wird zu einem Zeichen zusammengefasst
	assert.Equal(t, "caf\u00e9ine", CanonicalName("Cafe\u0301ine"))
}

func TestStableIDs(t *testing.T) {
	assert.Equal(t, SourceID("Lophophora williamsii"), SourceID(" lophophora  Williamsii"))
	assert.True(t, strings.HasPrefix(SourceID("x"), "SRC_"))

	a := TargetID(TargetKey{StandardizedName: "Serotonin receptor 5-HT2A", Organism: HumanOrganism})
	b := TargetID(TargetKey{StandardizedName: "serotonin receptor 5-ht2a", Organism: HumanOrganism})
	c := TargetID(TargetKey{StandardizedName: "Serotonin receptor 5-HT2A", Organism: "Rattus norvegicus"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "TGT_"))

	assert.Equal(t, SynonymID("CMP_1", "Mescaline"), SynonymID("CMP_1", "mescaline"))
	assert.NotEqual(t, SynonymID("CMP_1", "Mescaline"), SynonymID("CMP_2", "Mescaline"))
	assert.True(t, strings.HasPrefix(NewCompoundID(), "CMP_"))
}

func TestParseTargetType(t *testing.T) {
	assert.Equal(t, TargetProtein, ParseTargetType("SINGLE PROTEIN"))
	assert.Equal(t, TargetIonChannel, ParseTargetType("LIGAND-GATED ION CHANNEL"))
	assert.Equal(t, TargetReceptor, ParseTargetType("receptor"))
	assert.Equal(t, TargetOther, ParseTargetType(""))
	assert.Equal(t, TargetOther, ParseTargetType("ORGANISM"))
}

func TestParseSourceType(t *testing.T) {
	assert.Equal(t, SourcePlant, ParseSourceType("Plantae"))
	assert.Equal(t, SourceFungus, ParseSourceType("fungi"))
	assert.Equal(t, SourceOther, ParseSourceType("lichen"))
}

func TestExternalIDs(t *testing.T) {
	var ids ExternalIDs
	assert.True(t, ids.Empty())
	*ids.Ref(IDChEMBL) = "CHEMBL26687"
	assert.False(t, ids.Empty())
	assert.Equal(t, "CHEMBL26687", ids.Get(IDChEMBL))
	assert.Nil(t, ids.Ref("cas"))
	assert.Equal(t, "", ids.Get("cas"))
}

func TestCompoundCloneIsDeep(t *testing.T) {
	c := &Compound{Name: "Mescaline", MolecularWeight: Float(211.26), Synonyms: []Synonym{{Name: "a", Source: "x"}}}
	cp := c.Clone()
	*cp.MolecularWeight = 1
	cp.Synonyms[0].Name = "b"
	assert.Equal(t, 211.26, *c.MolecularWeight)
	assert.Equal(t, "a", c.Synonyms[0].Name)
}

func TestBatchReportAdd(t *testing.T) {
	var r BatchReport
	r.Add(ItemOutcome{Query: "Mescaline", State: StateMerged, TargetsFound: 2, TargetRelationships: 2, SourceRelationships: 1})
	r.Add(ItemOutcome{Query: "", State: StateRejected, Error: "validation failed: name must not be empty"})
	r.Add(ItemOutcome{Query: "DMT", State: StatePartiallyEnriched})

	assert.Equal(t, 2, r.CompoundsEnriched)
	assert.Equal(t, 2, r.TargetsFound)
	assert.Equal(t, 2, r.CompoundTargetRelationships)
	assert.Equal(t, 1, r.SourceCompoundRelationships)
	assert.Len(t, r.Failures, 1)
	assert.Equal(t, "validation failed: name must not be empty", r.Failures[0].Reason)
	assert.Len(t, r.Items, 3)
}

func TestCompoundRequestLabel(t *testing.T) {
	assert.Equal(t, "Mescaline", CompoundRequest{Name: "Mescaline"}.Label())
	assert.Equal(t, "chembl_id:CHEMBL26687", CompoundRequest{ExternalIDs: ExternalIDs{ChEMBLID: "CHEMBL26687"}}.Label())
	assert.Equal(t, "<leer>", CompoundRequest{Name: "  "}.Label())
}
