package store

import (
	"context"
	"fmt"

	"github.com/roach88/credwallet/internal/record"
)

const credentialByID = `SELECT body FROM credentials WHERE id = ?`

// PutCredential inserts a credential.
// Fails with ErrDuplicateKey if a credential with the same id exists; the
// existing record is left unchanged.
func (s *Store) PutCredential(ctx context.Context, c record.Credential) error {
	const op = "put credential"

	body, err := marshalBody(c)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.exec(ctx, op, Credentials, c.ID, `
		INSERT INTO credentials (id, issued_at, issuer_name, body)
		VALUES (?, ?, ?, ?)
	`,
		c.ID,
		c.IssuedAt,
		record.IssuerKey(c.Metadata.IssuerName),
		body,
	)
	return err
}

// GetCredential retrieves a credential by id.
// found is false if no such credential exists.
func (s *Store) GetCredential(ctx context.Context, id string) (c record.Credential, found bool, err error) {
	return queryBody[record.Credential](ctx, s, "get credential", Credentials, id, credentialByID)
}

// MustGetCredential retrieves a credential by id, reporting ErrNotFound if absent.
func (s *Store) MustGetCredential(ctx context.Context, id string) (record.Credential, error) {
	const op = "must get credential"
	c, found, err := queryBody[record.Credential](ctx, s, op, Credentials, id, credentialByID)
	if err != nil {
		return record.Credential{}, err
	}
	if !found {
		return record.Credential{}, &KeyError{Op: op, Collection: Credentials, Key: id, Err: ErrNotFound}
	}
	return c, nil
}

// DeleteCredential removes a credential. Deleting a missing id is a no-op.
// Proofs derived from the credential are kept.
func (s *Store) DeleteCredential(ctx context.Context, id string) error {
	_, err := s.exec(ctx, "delete credential", Credentials, id, `DELETE FROM credentials WHERE id = ?`, id)
	return err
}

// ListCredentials returns every credential in insertion order.
func (s *Store) ListCredentials(ctx context.Context) ([]record.Credential, error) {
	return queryBodies[record.Credential](ctx, s, "list credentials", `
		SELECT body FROM credentials ORDER BY seq ASC
	`)
}

// CredentialsByIssuer returns credentials whose metadata.issuerName equals
// name up to Unicode normalization (see record.IssuerKey), in insertion order.
func (s *Store) CredentialsByIssuer(ctx context.Context, name string) ([]record.Credential, error) {
	return queryBodies[record.Credential](ctx, s, "credentials by issuer", `
		SELECT body FROM credentials WHERE issuer_name = ? ORDER BY seq ASC
	`, record.IssuerKey(name))
}

// CredentialsIssuedBetween returns credentials whose issuedAt falls in r,
// ordered by issuedAt then insertion.
func (s *Store) CredentialsIssuedBetween(ctx context.Context, r Range) ([]record.Credential, error) {
	where, args := r.where("issued_at")
	return queryBodies[record.Credential](ctx, s, "credentials issued between",
		"SELECT body FROM credentials "+where+" ORDER BY issued_at ASC, seq ASC", args...)
}
