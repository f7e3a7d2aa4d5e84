package model

// SessionDecision is the outcome of one session-gating pass over a protected view.
type SessionDecision string

const (
	DecisionPending SessionDecision = "pending"
	DecisionGranted SessionDecision = "granted"
	DecisionDenied  SessionDecision = "denied"
)

// IsTerminal reports whether no further transition can happen for the mount.
func (d SessionDecision) IsTerminal() bool {
	return d == DecisionGranted || d == DecisionDenied
}

// Reason records why a decision was reached. The HTML views never show it;
// every denial there looks the same.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNoCredential       Reason = "no_credential"
	ReasonRejected           Reason = "rejected"
	ReasonVerificationFailed Reason = "verification_failed"
)
