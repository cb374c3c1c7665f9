package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"pgregory.net/rapid"
)

func TestEvaluateConditionOperators(t *testing.T) {
	scope := map[string]interface{}{
		"budget":   1500.0,
		"category": "residential",
		"tags":     []interface{}{"urgent", "fixed-price"},
		"project": map[string]interface{}{
			"floors": 3,
		},
	}

	cases := []struct {
		name string
		cond db.StageCondition
		want bool
	}{
		{"eq string", db.StageCondition{Field: "category", Operator: db.OpEq, Value: "residential"}, true},
		{"ne string", db.StageCondition{Field: "category", Operator: db.OpNe, Value: "commercial"}, true},
		{"gt number", db.StageCondition{Field: "budget", Operator: db.OpGt, Value: 1000}, true},
		{"lt number", db.StageCondition{Field: "budget", Operator: db.OpLt, Value: 1000}, false},
		{"gte boundary", db.StageCondition{Field: "budget", Operator: db.OpGte, Value: 1500}, true},
		{"lte boundary", db.StageCondition{Field: "budget", Operator: db.OpLte, Value: 1499}, false},
		{"in list", db.StageCondition{Field: "category", Operator: db.OpIn, Value: []interface{}{"residential", "industrial"}}, true},
		{"not in list", db.StageCondition{Field: "category", Operator: db.OpIn, Value: []interface{}{"industrial"}}, false},
		{"contains substring", db.StageCondition{Field: "category", Operator: db.OpContains, Value: "resid"}, true},
		{"contains list item", db.StageCondition{Field: "tags", Operator: db.OpContains, Value: "urgent"}, true},
		{"dotted path", db.StageCondition{Field: "project.floors", Operator: db.OpGt, Value: 2}, true},
		{"missing field", db.StageCondition{Field: "nope", Operator: db.OpEq, Value: 1}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, evaluateCondition(c.cond, scope))
		})
	}
}

func TestEvaluateConditionsLogic(t *testing.T) {
	scope := map[string]interface{}{"a": 1.0, "b": 2.0}
	yes := db.StageCondition{Field: "a", Operator: db.OpEq, Value: 1}
	no := db.StageCondition{Field: "b", Operator: db.OpEq, Value: 3}

	assert.True(t, evaluateConditions(nil, scope))
	assert.True(t, evaluateConditions(&db.ConditionSet{Logic: db.LogicAnd, Conditions: []db.StageCondition{yes, yes}}, scope))
	assert.False(t, evaluateConditions(&db.ConditionSet{Logic: db.LogicAnd, Conditions: []db.StageCondition{yes, no}}, scope))
	assert.True(t, evaluateConditions(&db.ConditionSet{Logic: db.LogicOr, Conditions: []db.StageCondition{no, yes}}, scope))
	assert.False(t, evaluateConditions(&db.ConditionSet{Logic: db.LogicOr, Conditions: []db.StageCondition{no, no}}, scope))
}

func TestNumericComparisonProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Float64Range(-1e6, 1e6).Draw(rt, "a")
		b := rapid.Float64Range(-1e6, 1e6).Draw(rt, "b")
		scope := map[string]interface{}{"v": a}

		gt := evaluateCondition(db.StageCondition{Field: "v", Operator: db.OpGt, Value: b}, scope)
		lte := evaluateCondition(db.StageCondition{Field: "v", Operator: db.OpLte, Value: b}, scope)
		// Property: gt and lte partition the line
		assert.NotEqual(t, gt, lte)

		eq := evaluateCondition(db.StageCondition{Field: "v", Operator: db.OpEq, Value: b}, scope)
		ne := evaluateCondition(db.StageCondition{Field: "v", Operator: db.OpNe, Value: b}, scope)
		assert.NotEqual(t, eq, ne)
	})
}
