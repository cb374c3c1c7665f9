package abtest

import (
	"fmt"
	"strings"

	"github.com/sitecraft/AlgoOrchestration/internal/db"
)

// matchesTargeting evaluates the test's rules against the call metadata. A
// test without rules targets everyone; a missing field fails its rule.
func matchesTargeting(def *db.ABTestDefinition, metadata map[string]interface{}) bool {
	if len(def.TargetingRules) == 0 {
		return true
	}
	for _, rule := range def.TargetingRules {
		matched := matchRule(rule, metadata)
		switch def.TargetingLogic {
		case db.LogicOr:
			if matched {
				return true
			}
		default: // and
			if !matched {
				return false
			}
		}
	}
	return def.TargetingLogic != db.LogicOr
}

func matchRule(rule db.TargetingRule, metadata map[string]interface{}) bool {
	actual, ok := metadata[rule.Field]
	if !ok {
		return false
	}
	switch rule.Operator {
	case db.OpEq:
		return targetValuesEqual(actual, rule.Value)
	case db.OpNe:
		return !targetValuesEqual(actual, rule.Value)
	case db.OpGt, db.OpLt, db.OpGte, db.OpLte:
		a, aOk := targetToFloat(actual)
		b, bOk := targetToFloat(rule.Value)
		if !aOk || !bOk {
			return false
		}
		switch rule.Operator {
		case db.OpGt:
			return a > b
		case db.OpLt:
			return a < b
		case db.OpGte:
			return a >= b
		default:
			return a <= b
		}
	case db.OpIn:
		list, ok := rule.Value.([]interface{})
		if !ok {
			return false
		}
		for _, candidate := range list {
			if targetValuesEqual(actual, candidate) {
				return true
			}
		}
		return false
	case db.OpContains:
		haystack, hOk := actual.(string)
		needle, nOk := rule.Value.(string)
		return hOk && nOk && strings.Contains(haystack, needle)
	default:
		return false
	}
}

func targetValuesEqual(a, b interface{}) bool {
	af, aOk := targetToFloat(a)
	bf, bOk := targetToFloat(b)
	if aOk && bOk {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func targetToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
