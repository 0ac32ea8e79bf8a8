package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Attribute names every credential must carry.
const (
	AttrName          = "name"
	AttrBirthdate     = "birthdate"
	AttrLicenseNumber = "licenseNumber"
	AttrState         = "state"
	AttrExpiry        = "expiry"
)

// RequiredAttributes lists the attribute keys a credential cannot omit.
// Issuers may add any further keys.
var RequiredAttributes = []string{AttrName, AttrBirthdate, AttrLicenseNumber, AttrState, AttrExpiry}

// Credential is a verifiable credential held by the wallet.
type Credential struct {
	ID              string            `json:"id"`
	IssuerPublicKey string            `json:"issuerPublicKey"`
	Signature       string            `json:"signature"`
	Attributes      map[string]string `json:"attributes"`
	IssuedAt        string            `json:"issuedAt"`
	Metadata        Metadata          `json:"metadata"`

	// Issuer and Subject are optional identifiers some issuers attach.
	Issuer  string `json:"issuer,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// Clone returns a copy that shares no maps with c.
func (c Credential) Clone() Credential {
	out := c
	out.Attributes = maps.Clone(c.Attributes)
	out.Metadata.Extra = maps.Clone(c.Metadata.Extra)
	return out
}

// Metadata is descriptive, non-cryptographic information about a credential.
// Extra holds any additional keys the issuer supplied; they are flattened
// alongside issuerName and credentialType in JSON.
type Metadata struct {
	IssuerName     string
	CredentialType string
	Extra          map[string]any
}

const (
	metaIssuerName     = "issuerName"
	metaCredentialType = "credentialType"
)

// MarshalJSON flattens Extra next to the named fields.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	out[metaIssuerName] = m.IssuerName
	out[metaCredentialType] = m.CredentialType
	return json.Marshal(out)
}

// UnmarshalJSON splits the named fields from any extra keys.
// Extra numbers decode as json.Number so large integers keep every digit.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}

	*m = Metadata{}
	for k, v := range raw {
		switch k {
		case metaIssuerName, metaCredentialType:
			s, ok := v.(string)
			if !ok && v != nil {
				return fmt.Errorf("unmarshal metadata: %s must be a string, got %T", k, v)
			}
			if k == metaIssuerName {
				m.IssuerName = s
			} else {
				m.CredentialType = s
			}
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[k] = v
		}
	}
	return nil
}

// Proof is a disclosure artifact derived from a credential for one verifier.
//
// CredentialID is a relation, not ownership: a proof may outlive the
// credential it was derived from.
type Proof struct {
	ID           string         `json:"id"`
	CredentialID string         `json:"credentialId"`
	VerifierID   string         `json:"verifierId"`
	Predicate    string         `json:"predicate"`
	Proof        string         `json:"proof"`
	Revealed     map[string]any `json:"revealed"`
	Timestamp    string         `json:"timestamp"`
	Verified     bool           `json:"verified"`
}

// Setting is a single wallet configuration entry. Value holds any JSON value.
type Setting struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// NewSetting encodes v as the setting's value.
func NewSetting(key string, v any) (Setting, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Setting{}, fmt.Errorf("encode setting %q: %w", key, err)
	}
	return Setting{Key: key, Value: data}, nil
}

// Decode unmarshals the setting's value into v.
func (s Setting) Decode(v any) error {
	if err := json.Unmarshal(s.Value, v); err != nil {
		return fmt.Errorf("decode setting %q: %w", s.Key, err)
	}
	return nil
}
