package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CanonicalName liefert die normalisierte Schreibweise eines Namens:
// NFC, getrimmt, Leerraum zusammengefasst, klein geschrieben.
func CanonicalName(name string) string {
	name = norm.NFC.String(name)
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// stableID bildet aus den Teilen eine deterministische Kennung mit Präfix.
func stableID(prefix string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return prefix + hex.EncodeToString(h[:12])
}

// SynonymID ist die Kennung eines Synonym-Knotens, eindeutig je Besitzer und Name.
func SynonymID(ownerID, name string) string {
	return stableID("SYN_", ownerID, CanonicalName(name))
}
