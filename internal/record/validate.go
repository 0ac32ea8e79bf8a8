package record

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// ErrInvalidRecord is matched by every *ValidationError.
var ErrInvalidRecord = errors.New("invalid record")

// ValidationError reports why a record does not fit its schema.
type ValidationError struct {
	Kind     string   // "credential" or "proof"
	ID       string   // record id, if present
	Problems []string // one entry per failing path, "path: message"
}

func (e *ValidationError) Error() string {
	id := e.ID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("invalid %s %s: %s", e.Kind, id, strings.Join(e.Problems, "; "))
}

// Is makes errors.Is(err, ErrInvalidRecord) true for validation failures.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// Validator checks records against the embedded CUE schema.
//
// A cue.Context is not safe for concurrent use, so evaluation is serialized.
type Validator struct {
	mu         sync.Mutex
	ctx        *cue.Context
	credential cue.Value
	proof      cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}

	v := &Validator{
		ctx:        ctx,
		credential: schema.LookupPath(cue.ParsePath("#Credential")),
		proof:      schema.LookupPath(cue.ParsePath("#Proof")),
	}
	if !v.credential.Exists() || !v.proof.Exists() {
		return nil, fmt.Errorf("compile record schema: missing #Credential or #Proof")
	}
	return v, nil
}

// ValidateCredential checks c's structure, including the required attributes.
func (v *Validator) ValidateCredential(c Credential) error {
	return v.validate("credential", c.ID, v.credential, c)
}

// ValidateProof checks p's structure. It does not check that the referenced
// credential exists.
func (v *Validator) ValidateProof(p Proof) error {
	return v.validate("proof", p.ID, v.proof, p)
}

func (v *Validator) validate(kind, id string, def cue.Value, rec any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("validate %s: %w", kind, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// JSON is valid CUE, so the encoded record compiles directly.
	val := v.ctx.CompileBytes(data, cue.Filename(kind+".json"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("validate %s: %w", kind, err)
	}

	err = def.Unify(val).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	return &ValidationError{Kind: kind, ID: id, Problems: problems(err)}
}

// problems flattens a CUE error list into "path: message" strings.
func problems(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := strings.Join(e.Path(), "."); path != "" {
			msg = path + ": " + msg
		}
		out = append(out, msg)
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

func defaultSchema() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = NewValidator()
	})
	return defaultValidator, defaultErr
}

// ValidateCredential checks c against the shared schema.
func ValidateCredential(c Credential) error {
	v, err := defaultSchema()
	if err != nil {
		return err
	}
	return v.ValidateCredential(c)
}

// ValidateProof checks p against the shared schema.
func ValidateProof(p Proof) error {
	v, err := defaultSchema()
	if err != nil {
		return err
	}
	return v.ValidateProof(p)
}
