package ops

import (
	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/value"
)

// EvalCondition evaluates a condition expression (used by if, json_filter,
// and flow edge "when" clauses) against v, which is bound as
// $value for the duration of the check. A condition mapping carries
// exactly one of: eq/ne/gt/gte/lt/lte (two operands), and/or (a sequence
// of sub-conditions), not (one sub-condition), or is itself treated as a
// scalar and checked for truthiness.
func EvalCondition(cond map[string]any, v any) (bool, error) {
	if raw, ok := cond["eq"]; ok {
		a, b, err := pair(raw)
		if err != nil {
			return false, err
		}
		return value.Equal(resolveValueToken(a, v), resolveValueToken(b, v)), nil
	}
	if raw, ok := cond["ne"]; ok {
		a, b, err := pair(raw)
		if err != nil {
			return false, err
		}
		return !value.Equal(resolveValueToken(a, v), resolveValueToken(b, v)), nil
	}
	if raw, ok := cond["gt"]; ok {
		return compare(raw, v, func(lt, eq bool) bool { return !lt && !eq })
	}
	if raw, ok := cond["gte"]; ok {
		return compare(raw, v, func(lt, eq bool) bool { return !lt || eq })
	}
	if raw, ok := cond["lt"]; ok {
		return compare(raw, v, func(lt, eq bool) bool { return lt })
	}
	if raw, ok := cond["lte"]; ok {
		return compare(raw, v, func(lt, eq bool) bool { return lt || eq })
	}
	if raw, ok := cond["and"]; ok {
		subs, ok := raw.([]any)
		if !ok {
			return false, alperr.New(alperr.KindType, "and: expected a list of sub-conditions")
		}
		for _, s := range subs {
			sm, ok := s.(map[string]any)
			if !ok {
				return false, alperr.New(alperr.KindType, "and: sub-condition must be a mapping")
			}
			ok2, err := EvalCondition(sm, v)
			if err != nil {
				return false, err
			}
			if !ok2 {
				return false, nil
			}
		}
		return true, nil
	}
	if raw, ok := cond["or"]; ok {
		subs, ok := raw.([]any)
		if !ok {
			return false, alperr.New(alperr.KindType, "or: expected a list of sub-conditions")
		}
		for _, s := range subs {
			sm, ok := s.(map[string]any)
			if !ok {
				return false, alperr.New(alperr.KindType, "or: sub-condition must be a mapping")
			}
			ok2, err := EvalCondition(sm, v)
			if err != nil {
				return false, err
			}
			if ok2 {
				return true, nil
			}
		}
		return false, nil
	}
	if raw, ok := cond["not"]; ok {
		sm, ok := raw.(map[string]any)
		if !ok {
			return false, alperr.New(alperr.KindType, "not: expected a mapping sub-condition")
		}
		ok2, err := EvalCondition(sm, v)
		if err != nil {
			return false, err
		}
		return !ok2, nil
	}
	// No recognized operator key: the condition mapping is itself treated
	// as a scalar-truthy check against $value.
	return value.Of(v).Bool(), nil
}

func pair(raw any) (any, any, error) {
	seq, ok := raw.([]any)
	if !ok || len(seq) != 2 {
		return nil, nil, alperr.New(alperr.KindSyntax, "condition operator requires exactly two operands")
	}
	return seq[0], seq[1], nil
}

func compare(raw any, v any, pick func(lt, eq bool) bool) (bool, error) {
	a, b, err := pair(raw)
	if err != nil {
		return false, err
	}
	av := resolveValueToken(a, v)
	bv := resolveValueToken(b, v)
	lt, ok := value.Less(av, bv)
	if !ok {
		return false, alperr.New(alperr.KindType, "condition: operands are not comparable")
	}
	eq := value.Equal(av, bv)
	return pick(lt, eq), nil
}

// resolveValueToken resolves the literal "$value" token to v. Condition
// operands are pre-resolved for any other $-reference by the caller's
// env.ResolveArgs pass before EvalCondition is ever invoked; "$value" is
// special-cased here because the value being tested (a flow edge's
// upstream output, or the current item in json_filter) is not necessarily
// bound in the environment at all.
func resolveValueToken(token any, v any) any {
	if s, ok := token.(string); ok && s == "$value" {
		return v
	}
	return token
}
