package record

import (
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// NewID returns a time-sortable UUIDv7 for records created without one.
//
// Panics if UUID generation fails (should never happen in practice).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IssuerKey is the form of an issuer name stored in the issuer index.
//
// Lookups are exact except for Unicode normalization: the composed and
// decomposed spellings of "Café DMV" share a key, "CA DMV" and "ca dmv" do not.
func IssuerKey(name string) string {
	return norm.NFC.String(name)
}
