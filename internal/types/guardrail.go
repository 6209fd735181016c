package types

// GuardrailDecision is the aggregate outcome of a guardrail evaluation.
type GuardrailDecision string

// Guardrail decisions.
const (
	DecisionApproved      GuardrailDecision = "approved"
	DecisionNeedsRevision GuardrailDecision = "needs_revision"
	DecisionRejected      GuardrailDecision = "rejected"
)

// Names of the individual guardrail checks.
const (
	CheckLength   = "length"
	CheckCitation = "citation"
	CheckGeneric  = "generic_phrase"
	CheckFact     = "fact"
	CheckTone     = "tone"
)

// CheckResult holds one guardrail check's outcome. Pass/fail checks carry
// a Score of 1.0 or 0.0; LLM-backed checks carry a continuous score.
type CheckResult struct {
	Name   string  `json:"name"`
	Passed bool    `json:"passed"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
	Detail string  `json:"detail,omitempty"`
}

// GuardrailResult is the aggregate quality verdict for one message variant.
type GuardrailResult struct {
	Decision     GuardrailDecision `json:"decision"`
	OverallScore float64           `json:"overall_score"`
	Checks       []CheckResult     `json:"checks"`
	Feedback     []string          `json:"feedback,omitempty"`
	PassedChecks int               `json:"passed_checks"`
	TotalChecks  int               `json:"total_checks"`
}

// CheckFailed reports whether the named check ran and did not pass.
func (r *GuardrailResult) CheckFailed(name string) bool {
	for _, c := range r.Checks {
		if c.Name == name {
			return !c.Passed
		}
	}
	return false
}

// FailedChecks returns the names of all checks that did not pass.
func (r *GuardrailResult) FailedChecks() []string {
	var failed []string
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c.Name)
		}
	}
	return failed
}
