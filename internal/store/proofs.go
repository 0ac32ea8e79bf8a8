package store

import (
	"context"
	"fmt"

	"github.com/roach88/credwallet/internal/record"
)

const proofByID = `SELECT body FROM proofs WHERE id = ?`

// PutProof inserts a proof.
// Fails with ErrDuplicateKey if a proof with the same id exists.
//
// The referenced credential does not have to exist.
func (s *Store) PutProof(ctx context.Context, p record.Proof) error {
	const op = "put proof"

	body, err := marshalBody(p)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.exec(ctx, op, Proofs, p.ID, `
		INSERT INTO proofs (id, credential_id, verifier_id, timestamp, body)
		VALUES (?, ?, ?, ?, ?)
	`,
		p.ID,
		p.CredentialID,
		p.VerifierID,
		p.Timestamp,
		body,
	)
	return err
}

// GetProof retrieves a proof by id.
// found is false if no such proof exists.
func (s *Store) GetProof(ctx context.Context, id string) (p record.Proof, found bool, err error) {
	return queryBody[record.Proof](ctx, s, "get proof", Proofs, id, proofByID)
}

// MustGetProof retrieves a proof by id, reporting ErrNotFound if absent.
func (s *Store) MustGetProof(ctx context.Context, id string) (record.Proof, error) {
	const op = "must get proof"
	p, found, err := queryBody[record.Proof](ctx, s, op, Proofs, id, proofByID)
	if err != nil {
		return record.Proof{}, err
	}
	if !found {
		return record.Proof{}, &KeyError{Op: op, Collection: Proofs, Key: id, Err: ErrNotFound}
	}
	return p, nil
}

// DeleteProof removes a proof. Deleting a missing id is a no-op.
func (s *Store) DeleteProof(ctx context.Context, id string) error {
	_, err := s.exec(ctx, "delete proof", Proofs, id, `DELETE FROM proofs WHERE id = ?`, id)
	return err
}

// ListProofs returns every proof in insertion order.
func (s *Store) ListProofs(ctx context.Context) ([]record.Proof, error) {
	return queryBodies[record.Proof](ctx, s, "list proofs", `
		SELECT body FROM proofs ORDER BY seq ASC
	`)
}

// ProofsByCredential returns proofs derived from credentialID, in insertion order.
func (s *Store) ProofsByCredential(ctx context.Context, credentialID string) ([]record.Proof, error) {
	return queryBodies[record.Proof](ctx, s, "proofs by credential", `
		SELECT body FROM proofs WHERE credential_id = ? ORDER BY seq ASC
	`, credentialID)
}

// ProofsByVerifier returns proofs generated for verifierID, in insertion order.
func (s *Store) ProofsByVerifier(ctx context.Context, verifierID string) ([]record.Proof, error) {
	return queryBodies[record.Proof](ctx, s, "proofs by verifier", `
		SELECT body FROM proofs WHERE verifier_id = ? ORDER BY seq ASC
	`, verifierID)
}

// ProofsBetween returns proofs whose timestamp falls in r,
// ordered by timestamp then insertion.
func (s *Store) ProofsBetween(ctx context.Context, r Range) ([]record.Proof, error) {
	where, args := r.where("timestamp")
	return queryBodies[record.Proof](ctx, s, "proofs between",
		"SELECT body FROM proofs "+where+" ORDER BY timestamp ASC, seq ASC", args...)
}

// OrphanedProofs returns proofs whose credential no longer exists.
func (s *Store) OrphanedProofs(ctx context.Context) ([]record.Proof, error) {
	return queryBodies[record.Proof](ctx, s, "orphaned proofs", `
		SELECT p.body FROM proofs p
		LEFT JOIN credentials c ON c.id = p.credential_id
		WHERE c.id IS NULL
		ORDER BY p.seq ASC
	`)
}

// PruneOrphanedProofs deletes every orphaned proof and returns how many were removed.
// Nothing calls this implicitly; removing a credential never prunes.
func (s *Store) PruneOrphanedProofs(ctx context.Context) (int64, error) {
	return s.exec(ctx, "prune orphaned proofs", Proofs, "", `
		DELETE FROM proofs
		WHERE credential_id NOT IN (SELECT id FROM credentials)
	`)
}
