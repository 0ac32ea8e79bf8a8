package policy

import (
	"context"
	"log/slog"

	"github.com/roach88/credwallet/internal/record"
	"github.com/roach88/credwallet/internal/store"
)

// Credentials is the cache surface the guard fronts. *wallet.Cache satisfies it.
type Credentials interface {
	Refresh(ctx context.Context) error
	AddCredential(ctx context.Context, c record.Credential) error
	RemoveCredential(ctx context.Context, id string) error
	SetActiveCredential(id *string)
	GetCredential(ctx context.Context, id string) (record.Credential, bool, error)
	Credentials() []record.Credential
	ActiveCredentialID() *string
}

// Records is the direct store surface the guard fronts. *store.Store satisfies it.
type Records interface {
	CredentialsByIssuer(ctx context.Context, name string) ([]record.Credential, error)
	CredentialsIssuedBetween(ctx context.Context, r store.Range) ([]record.Credential, error)
	MustGetCredential(ctx context.Context, id string) (record.Credential, error)

	PutProof(ctx context.Context, p record.Proof) error
	GetProof(ctx context.Context, id string) (record.Proof, bool, error)
	MustGetProof(ctx context.Context, id string) (record.Proof, error)
	DeleteProof(ctx context.Context, id string) error
	ListProofs(ctx context.Context) ([]record.Proof, error)
	ProofsByCredential(ctx context.Context, credentialID string) ([]record.Proof, error)
	ProofsByVerifier(ctx context.Context, verifierID string) ([]record.Proof, error)
	ProofsBetween(ctx context.Context, r store.Range) ([]record.Proof, error)
	OrphanedProofs(ctx context.Context) ([]record.Proof, error)
	PruneOrphanedProofs(ctx context.Context) (int64, error)

	PutSetting(ctx context.Context, s record.Setting) error
	SetSetting(ctx context.Context, s record.Setting) error
	GetSetting(ctx context.Context, key string) (record.Setting, bool, error)
	MustGetSetting(ctx context.Context, key string) (record.Setting, error)
	ListSettings(ctx context.Context) ([]record.Setting, error)
	DeleteSetting(ctx context.Context, key string) error
}

// Guard evaluates a Policy before every wallet operation.
type Guard struct {
	policy  Policy
	creds   Credentials
	records Records
	logger  *slog.Logger
}

// NewGuard places p in front of creds and records.
// A nil policy or logger falls back to AllowAll and slog.Default.
func NewGuard(p Policy, creds Credentials, records Records, logger *slog.Logger) *Guard {
	if p == nil {
		p = AllowAll{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{policy: p, creds: creds, records: records, logger: logger}
}

// check evaluates the policy for action on the subject carried by ctx.
func (g *Guard) check(ctx context.Context, action Action, resource string) error {
	subject, _ := SubjectFrom(ctx)
	d := g.policy.Evaluate(ctx, Request{Action: action, Subject: subject, Resource: resource})
	if d.Allowed() {
		return nil
	}
	g.logger.Info("access denied",
		"action", string(action),
		"subject", subject.ID,
		"resource", resource,
		"reason", d.Reason,
	)
	return &DeniedError{Action: action, Reason: d.Reason}
}

// Credentials returns the cached credential list.
func (g *Guard) Credentials(ctx context.Context) ([]record.Credential, error) {
	if err := g.check(ctx, ActionListCredentials, ""); err != nil {
		return nil, err
	}
	return g.creds.Credentials(), nil
}

// ActiveCredentialID returns the selected credential id.
func (g *Guard) ActiveCredentialID(ctx context.Context) (*string, error) {
	if err := g.check(ctx, ActionListCredentials, ""); err != nil {
		return nil, err
	}
	return g.creds.ActiveCredentialID(), nil
}

// Refresh reloads the cache from the store.
func (g *Guard) Refresh(ctx context.Context) error {
	if err := g.check(ctx, ActionRefresh, ""); err != nil {
		return err
	}
	return g.creds.Refresh(ctx)
}

// AddCredential stores c and refreshes the cache.
func (g *Guard) AddCredential(ctx context.Context, c record.Credential) error {
	if err := g.check(ctx, ActionAddCredential, c.ID); err != nil {
		return err
	}
	return g.creds.AddCredential(ctx, c)
}

// RemoveCredential deletes id and refreshes the cache.
func (g *Guard) RemoveCredential(ctx context.Context, id string) error {
	if err := g.check(ctx, ActionRemoveCredential, id); err != nil {
		return err
	}
	return g.creds.RemoveCredential(ctx, id)
}

// SetActiveCredential changes the in-memory selection.
func (g *Guard) SetActiveCredential(ctx context.Context, id *string) error {
	resource := ""
	if id != nil {
		resource = *id
	}
	if err := g.check(ctx, ActionSelectCredential, resource); err != nil {
		return err
	}
	g.creds.SetActiveCredential(id)
	return nil
}

// GetCredential reads id directly from the store.
func (g *Guard) GetCredential(ctx context.Context, id string) (record.Credential, bool, error) {
	if err := g.check(ctx, ActionGetCredential, id); err != nil {
		return record.Credential{}, false, err
	}
	return g.creds.GetCredential(ctx, id)
}

// MustGetCredential reads id from the store, failing with store.ErrNotFound
// when it is absent.
func (g *Guard) MustGetCredential(ctx context.Context, id string) (record.Credential, error) {
	if err := g.check(ctx, ActionGetCredential, id); err != nil {
		return record.Credential{}, err
	}
	return g.records.MustGetCredential(ctx, id)
}

// CredentialsByIssuer queries the issuer index.
func (g *Guard) CredentialsByIssuer(ctx context.Context, name string) ([]record.Credential, error) {
	if err := g.check(ctx, ActionListCredentials, ""); err != nil {
		return nil, err
	}
	return g.records.CredentialsByIssuer(ctx, name)
}

// CredentialsIssuedBetween queries the issuedAt index.
func (g *Guard) CredentialsIssuedBetween(ctx context.Context, r store.Range) ([]record.Credential, error) {
	if err := g.check(ctx, ActionListCredentials, ""); err != nil {
		return nil, err
	}
	return g.records.CredentialsIssuedBetween(ctx, r)
}

// PutProof stores a proof handed over by the proof-generation flow.
func (g *Guard) PutProof(ctx context.Context, p record.Proof) error {
	if err := g.check(ctx, ActionPutProof, p.ID); err != nil {
		return err
	}
	if err := record.ValidateProof(p); err != nil {
		return err
	}
	return g.records.PutProof(ctx, p)
}

// GetProof reads a proof by id.
func (g *Guard) GetProof(ctx context.Context, id string) (record.Proof, bool, error) {
	if err := g.check(ctx, ActionGetProof, id); err != nil {
		return record.Proof{}, false, err
	}
	return g.records.GetProof(ctx, id)
}

// MustGetProof reads a proof by id, failing with store.ErrNotFound when it is absent.
func (g *Guard) MustGetProof(ctx context.Context, id string) (record.Proof, error) {
	if err := g.check(ctx, ActionGetProof, id); err != nil {
		return record.Proof{}, err
	}
	return g.records.MustGetProof(ctx, id)
}

// DeleteProof removes a proof. Unknown ids succeed.
func (g *Guard) DeleteProof(ctx context.Context, id string) error {
	if err := g.check(ctx, ActionDeleteProof, id); err != nil {
		return err
	}
	return g.records.DeleteProof(ctx, id)
}

// ProofFilter narrows ListProofs. Only one kind of filter applies:
// CredentialID wins over VerifierID, which wins over the From/To
// timestamp window.
type ProofFilter struct {
	CredentialID string
	VerifierID   string
	From         string
	To           string
}

// ListProofs returns proofs, optionally narrowed by filter.
func (g *Guard) ListProofs(ctx context.Context, filter ProofFilter) ([]record.Proof, error) {
	if err := g.check(ctx, ActionListProofs, ""); err != nil {
		return nil, err
	}
	switch {
	case filter.CredentialID != "":
		return g.records.ProofsByCredential(ctx, filter.CredentialID)
	case filter.VerifierID != "":
		return g.records.ProofsByVerifier(ctx, filter.VerifierID)
	case filter.From != "" || filter.To != "":
		return g.records.ProofsBetween(ctx, store.Range{From: filter.From, To: filter.To})
	default:
		return g.records.ListProofs(ctx)
	}
}

// OrphanedProofs lists proofs whose credential is gone.
func (g *Guard) OrphanedProofs(ctx context.Context) ([]record.Proof, error) {
	if err := g.check(ctx, ActionListProofs, ""); err != nil {
		return nil, err
	}
	return g.records.OrphanedProofs(ctx)
}

// PruneOrphanedProofs deletes proofs whose credential is gone.
func (g *Guard) PruneOrphanedProofs(ctx context.Context) (int64, error) {
	if err := g.check(ctx, ActionPruneProofs, ""); err != nil {
		return 0, err
	}
	return g.records.PruneOrphanedProofs(ctx)
}

// PutSetting inserts a setting, failing with store.ErrDuplicateKey if the key exists.
func (g *Guard) PutSetting(ctx context.Context, s record.Setting) error {
	if err := g.check(ctx, ActionWriteSettings, s.Key); err != nil {
		return err
	}
	return g.records.PutSetting(ctx, s)
}

// SetSetting creates or replaces a setting.
func (g *Guard) SetSetting(ctx context.Context, s record.Setting) error {
	if err := g.check(ctx, ActionWriteSettings, s.Key); err != nil {
		return err
	}
	return g.records.SetSetting(ctx, s)
}

// GetSetting reads a setting by key.
func (g *Guard) GetSetting(ctx context.Context, key string) (record.Setting, bool, error) {
	if err := g.check(ctx, ActionReadSettings, key); err != nil {
		return record.Setting{}, false, err
	}
	return g.records.GetSetting(ctx, key)
}

// MustGetSetting reads a setting by key, failing with store.ErrNotFound when it is absent.
func (g *Guard) MustGetSetting(ctx context.Context, key string) (record.Setting, error) {
	if err := g.check(ctx, ActionReadSettings, key); err != nil {
		return record.Setting{}, err
	}
	return g.records.MustGetSetting(ctx, key)
}

// ListSettings returns every setting.
func (g *Guard) ListSettings(ctx context.Context) ([]record.Setting, error) {
	if err := g.check(ctx, ActionReadSettings, ""); err != nil {
		return nil, err
	}
	return g.records.ListSettings(ctx)
}

// DeleteSetting removes a setting.
func (g *Guard) DeleteSetting(ctx context.Context, key string) error {
	if err := g.check(ctx, ActionWriteSettings, key); err != nil {
		return err
	}
	return g.records.DeleteSetting(ctx, key)
}
