package credential

import "time"

// Claim names carried by issued tokens.
const (
	ClaimRole         = "role"
	ClaimJurisdiction = "jurisdiction"
	ClaimKey          = "key"
)

// DefaultSubjectKey identifies the consumer the issuer acts for.
const DefaultSubjectKey = "paradym-user"

// TokenLifetime is the fixed validity of an issued token.
const TokenLifetime = time.Hour

// Claims is the verified content of a token.
type Claims struct {
	Role         string
	Jurisdiction string
	Key          string
	Issuer       string
	ID           string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Attributes returns the decision attributes derived from the claims.
func (c *Claims) Attributes() map[string]string {
	return map[string]string{
		ClaimRole:         c.Role,
		ClaimJurisdiction: c.Jurisdiction,
	}
}

// PresentedCredential is one wallet credential in a token request.
type PresentedCredential struct {
	PresentedAttributes map[string]interface{} `json:"presentedAttributes"`
}

// TokenRequest is the body of a token request.
type TokenRequest struct {
	Credentials []PresentedCredential `json:"credentials"`
}

// attribute returns the named attribute of the first credential. Values
// that are not non-empty strings count as absent.
func (r *TokenRequest) attribute(name string) string {
	if r == nil || len(r.Credentials) == 0 {
		return ""
	}
	v, ok := r.Credentials[0].PresentedAttributes[name].(string)
	if !ok {
		return ""
	}
	return v
}
