// Package policy decides whether a caller may reach a wallet operation.
//
// Every operation exposed through Guard is evaluated against a Policy first.
// A Deny decision stops the call before the cache or store is touched.
package policy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Action names a guarded wallet operation.
type Action string

const (
	ActionListCredentials  Action = "credential.list"
	ActionGetCredential    Action = "credential.get"
	ActionAddCredential    Action = "credential.add"
	ActionRemoveCredential Action = "credential.remove"
	ActionSelectCredential Action = "credential.select"
	ActionRefresh          Action = "credential.refresh"
	ActionPutProof         Action = "proof.put"
	ActionGetProof         Action = "proof.get"
	ActionListProofs       Action = "proof.list"
	ActionDeleteProof      Action = "proof.delete"
	ActionPruneProofs      Action = "proof.prune"
	ActionReadSettings     Action = "setting.read"
	ActionWriteSettings    Action = "setting.write"
)

// Mutates reports whether the action changes persisted state.
func (a Action) Mutates() bool {
	switch a {
	case ActionAddCredential, ActionRemoveCredential, ActionPutProof, ActionDeleteProof,
		ActionPruneProofs, ActionWriteSettings:
		return true
	}
	return false
}

// Effect is the outcome of a policy evaluation.
type Effect int

const (
	EffectAllow Effect = iota
	EffectDeny
)

// Decision is either Allow or Deny(reason).
type Decision struct {
	Effect Effect
	Reason string
}

// Allow permits the request.
func Allow() Decision {
	return Decision{Effect: EffectAllow}
}

// Deny refuses the request for the given reason.
func Deny(reason string) Decision {
	return Decision{Effect: EffectDeny, Reason: reason}
}

// Allowed reports whether the decision permits the request.
func (d Decision) Allowed() bool {
	return d.Effect == EffectAllow
}

func (d Decision) String() string {
	if d.Allowed() {
		return "allow"
	}
	return "deny: " + d.Reason
}

// Subject is the party attempting an action.
type Subject struct {
	ID    string
	Roles []string
}

type subjectKey struct{}

// WithSubject attaches the acting subject to ctx.
func WithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, s)
}

// SubjectFrom returns the subject attached to ctx, if any.
func SubjectFrom(ctx context.Context) (Subject, bool) {
	s, ok := ctx.Value(subjectKey{}).(Subject)
	return s, ok
}

// Request describes one attempted operation.
type Request struct {
	Action   Action
	Subject  Subject
	Resource string // record id or setting key, empty for collection-wide actions
}

// Policy evaluates requests.
type Policy interface {
	Evaluate(ctx context.Context, req Request) Decision
}

// Func adapts a function to Policy.
type Func func(ctx context.Context, req Request) Decision

func (f Func) Evaluate(ctx context.Context, req Request) Decision {
	return f(ctx, req)
}

// AllowAll permits everything. It is the policy for a single-owner local wallet.
type AllowAll struct{}

func (AllowAll) Evaluate(context.Context, Request) Decision {
	return Allow()
}

// DenyAll refuses everything with a fixed reason.
type DenyAll struct {
	Reason string
}

func (d DenyAll) Evaluate(context.Context, Request) Decision {
	return Deny(d.Reason)
}

// ReadOnly permits every action that leaves persisted state unchanged.
// Selecting a credential is UI state, so it is allowed.
type ReadOnly struct{}

func (ReadOnly) Evaluate(_ context.Context, req Request) Decision {
	if req.Action.Mutates() {
		return Deny("wallet is read-only")
	}
	return Allow()
}

// RoleBased grants actions per role. A subject is allowed an action if any of
// its roles grants it.
type RoleBased struct {
	Grants map[string][]Action
}

func (r RoleBased) Evaluate(_ context.Context, req Request) Decision {
	if len(req.Subject.Roles) == 0 {
		return Deny("no roles for subject")
	}
	for _, role := range req.Subject.Roles {
		if slices.Contains(r.Grants[role], req.Action) {
			return Allow()
		}
	}
	return Deny(fmt.Sprintf("roles [%s] may not %s", strings.Join(req.Subject.Roles, ", "), req.Action))
}

// ErrDenied is matched by every *DeniedError.
var ErrDenied = errors.New("access denied")

// DeniedError reports a request refused by policy.
type DeniedError struct {
	Action Action
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrDenied, e.Action, e.Reason)
}

// Is makes errors.Is(err, ErrDenied) true.
func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}
