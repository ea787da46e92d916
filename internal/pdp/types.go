package pdp

// DecisionRequest is the input document of a decision query. It is
// built from verified credential claims and the request line only.
type DecisionRequest struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Attributes map[string]string `json:"attributes"`
}

// DecisionResult is the outcome of a decision query.
type DecisionResult struct {
	Allow bool `json:"allow"`
	// Reason is the PDP-supplied explanation, if any.
	Reason string `json:"reason,omitempty"`
	// DecisionID is set when the PDP has decision logging enabled.
	DecisionID string `json:"decision_id,omitempty"`
	// Defined is false when the decision document does not exist yet,
	// typically because no policy has been published.
	Defined bool `json:"-"`
}
