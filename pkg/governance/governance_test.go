package governance_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/capability"
	"github.com/alp-run/alp/pkg/governance"
)

func TestEvaluate_NoSideEffectsIsAlwaysLowAllow(t *testing.T) {
	d := governance.Evaluate(governance.Contract{}, capability.GovernanceConfig{Critical: "deny"})
	require.Equal(t, governance.RiskLow, d.RiskLevel)
	require.Equal(t, governance.ActionAllow, d.Action)
}

func TestEvaluate_NonIdempotentNonDeterministicIsCritical(t *testing.T) {
	d := governance.Evaluate(governance.Contract{SideEffects: true}, capability.GovernanceConfig{Critical: "deny"})
	require.Equal(t, governance.RiskCritical, d.RiskLevel)
	require.Equal(t, governance.ActionDeny, d.Action)
}

func TestEvaluate_EmptyPolicyAlwaysAllows(t *testing.T) {
	d := governance.Evaluate(governance.Contract{SideEffects: true}, capability.GovernanceConfig{})
	require.Equal(t, governance.ActionAllow, d.Action)
}

func TestEvaluate_IdempotentIsMedium(t *testing.T) {
	d := governance.Evaluate(governance.Contract{SideEffects: true, Idempotent: true}, capability.GovernanceConfig{Medium: "require-approval"})
	require.Equal(t, governance.RiskMedium, d.RiskLevel)
	require.Equal(t, governance.ActionRequireApproval, d.Action)
}
