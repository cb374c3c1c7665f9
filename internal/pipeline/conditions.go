package pipeline

import (
	"fmt"
	"strings"

	"github.com/sitecraft/AlgoOrchestration/internal/db"
)

// evaluateConditions decides whether a stage runs. The condition fields are
// looked up in the merged view of the pipeline input and the accumulator;
// a missing field fails the individual condition, not the evaluation.
func evaluateConditions(set *db.ConditionSet, scope map[string]interface{}) bool {
	if set == nil || len(set.Conditions) == 0 {
		return true
	}
	for _, cond := range set.Conditions {
		matched := evaluateCondition(cond, scope)
		switch set.Logic {
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
	return set.Logic != db.LogicOr
}

func evaluateCondition(cond db.StageCondition, scope map[string]interface{}) bool {
	actual, ok := lookupField(scope, cond.Field)
	if !ok {
		return false
	}
	switch cond.Operator {
	case db.OpEq:
		return valuesEqual(actual, cond.Value)
	case db.OpNe:
		return !valuesEqual(actual, cond.Value)
	case db.OpGt, db.OpLt, db.OpGte, db.OpLte:
		a, aOk := toFloat(actual)
		b, bOk := toFloat(cond.Value)
		if !aOk || !bOk {
			return false
		}
		switch cond.Operator {
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
		list, ok := cond.Value.([]interface{})
		if !ok {
			return false
		}
		for _, candidate := range list {
			if valuesEqual(actual, candidate) {
				return true
			}
		}
		return false
	case db.OpContains:
		switch haystack := actual.(type) {
		case string:
			needle, ok := cond.Value.(string)
			return ok && strings.Contains(haystack, needle)
		case []interface{}:
			for _, item := range haystack {
				if valuesEqual(item, cond.Value) {
					return true
				}
			}
			return false
		default:
			return false
		}
	default:
		return false
	}
}

// lookupField resolves a dotted path like "project.budget" through nested maps.
func lookupField(scope map[string]interface{}, field string) (interface{}, bool) {
	parts := strings.Split(field, ".")
	var current interface{} = scope
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// valuesEqual compares numerically when both sides are numbers, so a JSON
// float64 matches a literal int in a definition.
func valuesEqual(a, b interface{}) bool {
	af, aOk := toFloat(a)
	bf, bOk := toFloat(b)
	if aOk && bOk {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v interface{}) (float64, bool) {
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
