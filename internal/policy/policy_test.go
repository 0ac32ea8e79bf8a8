package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecision(t *testing.T) {
	assert.True(t, Allow().Allowed())
	assert.Equal(t, "allow", Allow().String())

	d := Deny("locked")
	assert.False(t, d.Allowed())
	assert.Equal(t, "locked", d.Reason)
	assert.Equal(t, "deny: locked", d.String())
}

func TestActionMutates(t *testing.T) {
	mutating := []Action{
		ActionAddCredential, ActionRemoveCredential, ActionPutProof,
		ActionDeleteProof, ActionPruneProofs, ActionWriteSettings,
	}
	readOnly := []Action{
		ActionListCredentials, ActionGetCredential, ActionSelectCredential,
		ActionRefresh, ActionGetProof, ActionListProofs, ActionReadSettings,
	}
	for _, a := range mutating {
		assert.True(t, a.Mutates(), a)
	}
	for _, a := range readOnly {
		assert.False(t, a.Mutates(), a)
	}
}

func TestSubjectContext(t *testing.T) {
	ctx := context.Background()
	_, ok := SubjectFrom(ctx)
	assert.False(t, ok)

	ctx = WithSubject(ctx, Subject{ID: "alice", Roles: []string{"owner"}})
	s, ok := SubjectFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice", s.ID)
	assert.Equal(t, []string{"owner"}, s.Roles)
}

func TestBuiltinPolicies(t *testing.T) {
	ctx := context.Background()
	add := Request{Action: ActionAddCredential}
	list := Request{Action: ActionListCredentials}

	tests := []struct {
		name    string
		policy  Policy
		req     Request
		allowed bool
	}{
		{"allow all add", AllowAll{}, add, true},
		{"deny all list", DenyAll{Reason: "maintenance"}, list, false},
		{"read-only add", ReadOnly{}, add, false},
		{"read-only list", ReadOnly{}, list, true},
		{"read-only select", ReadOnly{}, Request{Action: ActionSelectCredential}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.policy.Evaluate(ctx, tt.req).Allowed())
		})
	}
}

func TestRoleBased(t *testing.T) {
	p := RoleBased{Grants: map[string][]Action{
		"viewer": {ActionListCredentials, ActionGetCredential},
		"owner":  {ActionListCredentials, ActionAddCredential, ActionRemoveCredential},
	}}
	ctx := context.Background()

	d := p.Evaluate(ctx, Request{Action: ActionAddCredential, Subject: Subject{ID: "bob", Roles: []string{"viewer"}}})
	assert.False(t, d.Allowed())
	assert.Equal(t, "roles [viewer] may not credential.add", d.Reason)

	d = p.Evaluate(ctx, Request{Action: ActionAddCredential, Subject: Subject{ID: "bob", Roles: []string{"viewer", "owner"}}})
	assert.True(t, d.Allowed())

	d = p.Evaluate(ctx, Request{Action: ActionListCredentials})
	assert.False(t, d.Allowed())
	assert.Equal(t, "no roles for subject", d.Reason)
}

func TestFuncPolicy(t *testing.T) {
	p := Func(func(_ context.Context, req Request) Decision {
		if req.Resource == "secret" {
			return Deny("hidden")
		}
		return Allow()
	})
	ctx := context.Background()
	assert.True(t, p.Evaluate(ctx, Request{Action: ActionGetCredential, Resource: "c1"}).Allowed())
	assert.False(t, p.Evaluate(ctx, Request{Action: ActionGetCredential, Resource: "secret"}).Allowed())
}

func TestDeniedError(t *testing.T) {
	var err error = &DeniedError{Action: ActionPutProof, Reason: "wallet is read-only"}
	assert.True(t, errors.Is(err, ErrDenied))
	assert.Equal(t, "access denied: proof.put: wallet is read-only", err.Error())

	var de *DeniedError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, ActionPutProof, de.Action)
}
