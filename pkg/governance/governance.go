// Package governance implements the risk-tiered approval extension: a
// pure (Contract, Policy) -> Decision function layered strictly on top of
// the capability gate. With no governance configuration, every decision
// is Allow and the gate's own permit/deny is the only thing that matters.
package governance

import "github.com/alp-run/alp/pkg/capability"

// Contract describes the behavioral promise of an operation: whether it
// has side effects, and if so, whether it is deterministic and/or
// idempotent. Pure operations (arithmetic, strings, JSON) are always
// {SideEffects:false}; sandboxed operations and tool_call carry one fixed
// Contract per op name, so every tool_call is classified alike whatever
// tool it invokes.
type Contract struct {
	SideEffects   bool
	Deterministic bool
	Idempotent    bool
}

// RiskLevel classifies a Contract's risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Risk derives a contract's risk tier: no side effects is always low;
// among side-effecting operations, idempotency is the strongest mitigant,
// then determinism; an operation with neither is critical.
func (c Contract) Risk() RiskLevel {
	if !c.SideEffects {
		return RiskLow
	}
	if c.Idempotent {
		return RiskMedium
	}
	if c.Deterministic {
		return RiskHigh
	}
	return RiskCritical
}

// Action is the governance verdict for a risk tier.
type Action string

const (
	ActionAllow           Action = "allow"
	ActionRequireApproval Action = "require-approval"
	ActionDeny            Action = "deny"
)

// Decision is the outcome of evaluating a Contract against a Policy.
type Decision struct {
	Action    Action
	RiskLevel RiskLevel
}

// Evaluate maps a Contract's risk tier through policy to a Decision. A
// zero-value policy (no governance block configured) always yields Allow,
// per SPEC_FULL.md 4.9's additive-only guarantee.
func Evaluate(c Contract, policy capability.GovernanceConfig) Decision {
	risk := c.Risk()
	var configured string
	switch risk {
	case RiskLow:
		configured = policy.Low
	case RiskMedium:
		configured = policy.Medium
	case RiskHigh:
		configured = policy.High
	case RiskCritical:
		configured = policy.Critical
	}
	if configured == "" {
		return Decision{Action: ActionAllow, RiskLevel: risk}
	}
	return Decision{Action: Action(configured), RiskLevel: risk}
}
