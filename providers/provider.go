package providers

import (
	"context"
	"errors"
	"fmt"

	"hyperblend/models"
)

// ErrNotFound meldet, dass die Quelle keinen Treffer hat. Das ist ein gültiges Ergebnis, kein Fehler der Quelle.
var ErrNotFound = errors.New("not found")

// ErrEmptyQuery wird geliefert, wenn eine Anfrage kein Suchkriterium enthält.
var ErrEmptyQuery = errors.New("query needs at least one of name, smiles or external id")

// Adapter ist das Interface, das jede externe Datenquelle (z.B. PubChem, ChEMBL) implementieren muss.
type Adapter interface {
	// Fetch übersetzt die Anfrage in den Aufruf der Quelle und liefert einen lückenhaften Datensatz.
	Fetch(ctx context.Context, q models.Query) (*models.PartialRecord, error)

	// Name gibt den eindeutigen Namen der Quelle zurück (z.B. "pubchem").
	Name() string

	// IDKind nennt die externe Kennung, mit der die Quelle direkt abgefragt werden kann.
	IDKind() string
}

// MechanismSource liefert die Wirkmechanismen einer Verbindung anhand ihrer ChEMBL-ID.
type MechanismSource interface {
	Mechanisms(ctx context.Context, chemblID string) ([]models.Mechanism, error)
}

// TargetDetailSource liefert Organismus, Typ und Namen eines einzelnen Targets.
type TargetDetailSource interface {
	TargetDetail(ctx context.Context, targetID string) (*models.TargetDetail, error)
}

// AdapterError ist ein Fehler der Quelle selbst: Zeitüberschreitung nach allen Versuchen,
// fehlerhafte Antwort, Rate-Limit oder HTTP-Fehler.
type AdapterError struct {
	Source     string
	Op         string
	StatusCode int
	Err        error
}

func (e *AdapterError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: source unavailable: %s: status %d: %v", e.Source, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: source unavailable: %s: %v", e.Source, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// IsAdapterError prüft, ob err ein AdapterError ist.
func IsAdapterError(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}

// EmptyQueryError baut den Fehler für eine leere Anfrage.
func EmptyQueryError(source string) error {
	return &AdapterError{Source: source, Op: "fetch", Err: ErrEmptyQuery}
}
