package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UsagePolicy is an ODRL-shaped policy document. Only the constraints
// affect the compiled program; the other fields are informational.
type UsagePolicy struct {
	Context    json.RawMessage `json:"@context,omitempty"`
	UID        string          `json:"uid,omitempty"`
	Type       string          `json:"@type,omitempty"`
	Permission []Permission    `json:"permission"`
}

// Permission groups ordered constraints.
type Permission struct {
	Target     json.RawMessage `json:"target,omitempty"`
	Action     json.RawMessage `json:"action,omitempty"`
	Assigner   json.RawMessage `json:"assigner,omitempty"`
	Assignee   json.RawMessage `json:"assignee,omitempty"`
	Constraint []Constraint    `json:"constraint"`
}

// Constraint is an equality requirement. Operator is carried but every
// constraint compiles to equality.
type Constraint struct {
	LeftOperand  Operand `json:"leftOperand"`
	Operator     string  `json:"operator,omitempty"`
	RightOperand Operand `json:"rightOperand"`
}

// Operand is the literal text of a constraint operand. It decodes from
// a JSON string, number or boolean.
type Operand string

// UnmarshalJSON implements json.Unmarshaler.
func (o *Operand) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*o = ""
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*o = Operand(s)
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*o = Operand(fmt.Sprintf("%t", v))
	case '{', '[':
		return fmt.Errorf("operand must be a string, number or boolean")
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*o = Operand(n.String())
	}
	return nil
}

// Constraints returns every constraint in document order.
func (p *UsagePolicy) Constraints() []Constraint {
	var out []Constraint
	for _, perm := range p.Permission {
		out = append(out, perm.Constraint...)
	}
	return out
}

// CompiledRule is a compiled Rego module.
type CompiledRule struct {
	Module     string
	Package    string
	Predicates int
}
