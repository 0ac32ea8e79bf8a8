package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/credwallet/internal/record"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCredential creates a credential with every required attribute.
func createTestCredential(id, issuer, issuedAt string) record.Credential {
	return record.Credential{
		ID:              id,
		IssuerPublicKey: "pk-" + id,
		Signature:       "sig-" + id,
		Attributes: map[string]string{
			record.AttrName:          "Alice",
			record.AttrBirthdate:     "1990-01-01",
			record.AttrLicenseNumber: "X1",
			record.AttrState:         "CA",
			record.AttrExpiry:        "2030-01-01",
		},
		IssuedAt: issuedAt,
		Metadata: record.Metadata{IssuerName: issuer, CredentialType: "DriverLicense"},
	}
}

// createTestProof creates a proof referencing credentialID.
func createTestProof(id, credentialID, verifierID, timestamp string) record.Proof {
	return record.Proof{
		ID:           id,
		CredentialID: credentialID,
		VerifierID:   verifierID,
		Predicate:    "age>=18",
		Proof:        "proof-" + id,
		Timestamp:    timestamp,
	}
}

func credentialIDs(creds []record.Credential) []string {
	ids := make([]string, len(creds))
	for i, c := range creds {
		ids[i] = c.ID
	}
	return ids
}

func proofIDs(proofs []record.Proof) []string {
	ids := make([]string, len(proofs))
	for i, p := range proofs {
		ids[i] = p.ID
	}
	return ids
}
