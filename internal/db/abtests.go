package db

import (
	"context"
	"time"
)

type TestState string

const (
	TestDraft     TestState = "draft"
	TestRunning   TestState = "running"
	TestPaused    TestState = "paused"
	TestCompleted TestState = "completed"
	TestCancelled TestState = "cancelled"
)

type TestVariant struct {
	Id          string                 `json:"id"`
	Name        string                 `json:"name"`
	AlgorithmId string                 `json:"algorithm_id"`
	Version     string                 `json:"version"`
	Config      map[string]interface{} `json:"config,omitempty"`
	Weight      float64                `json:"weight"` // percentage, all variants sum to 100
	IsControl   bool                   `json:"is_control"`
}

type TargetingRule struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    interface{}       `json:"value"`
}

type SuccessCriteria struct {
	PrimaryMetric      string  `json:"primary_metric"` // success_rate or latency
	MinimumImprovement float64 `json:"minimum_improvement"`
	ConfidenceLevel    float64 `json:"confidence_level"`
	MinimumSampleSize  int     `json:"minimum_sample_size"`
}

type ABTestDefinition struct {
	Id                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Variants          []TestVariant   `json:"variants"`
	TrafficAllocation float64         `json:"traffic_allocation"` // 0..100
	TargetingLogic    ConditionLogic  `json:"targeting_logic"`
	TargetingRules    []TargetingRule `json:"targeting_rules,omitempty"`
	IncludeUsers      []string        `json:"include_users,omitempty"`
	ExcludeUsers      []string        `json:"exclude_users,omitempty"`
	Criteria          SuccessCriteria `json:"criteria"`
	State             TestState       `json:"state"`
	CreatedBy         string          `json:"created_by"`
	CreatedTs         time.Time       `json:"created_ts"`
	StartedTs         *time.Time      `json:"started_ts,omitempty"`
	EndedTs           *time.Time      `json:"ended_ts,omitempty"`
	EndReason         string          `json:"end_reason,omitempty"`
}

type UserVariantAssignment struct {
	TestId     string    `json:"test_id"`
	UserId     string    `json:"user_id"`
	VariantId  string    `json:"variant_id"`
	AssignedTs time.Time `json:"assigned_ts"`
}

type TestExecutionResult struct {
	Id            int64         `json:"id"`
	TestId        string        `json:"test_id"`
	VariantId     string        `json:"variant_id"`
	UserId        string        `json:"user_id"`
	Success       bool          `json:"success"`
	ExecutionTime time.Duration `json:"execution_time"`
	Error         string        `json:"error,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

type TestService interface {
	CreateTest(ctx context.Context, def *ABTestDefinition) (*ABTestDefinition, error)
	GetTest(ctx context.Context, id string) (*ABTestDefinition, error)
	ListTests(ctx context.Context, state *TestState) ([]*ABTestDefinition, error)
	// UpdateTestState applies the transition only when the current state is one
	// of from; otherwise returns ErrInvalidTransition.
	UpdateTestState(ctx context.Context, id string, from []TestState, to TestState, endReason string) error
	RecordResult(ctx context.Context, result *TestExecutionResult) (*TestExecutionResult, error)
	ListResults(ctx context.Context, testId string) ([]*TestExecutionResult, error)
}

type AssignmentService interface {
	// CreateIfAbsent stores the assignment unless one already exists for the
	// (test, user) pair; the stored assignment is returned either way, so
	// concurrent first calls converge on a single winner.
	CreateIfAbsent(ctx context.Context, a *UserVariantAssignment) (*UserVariantAssignment, error)
	GetAssignment(ctx context.Context, testId string, userId string) (*UserVariantAssignment, error)
	ListAssignments(ctx context.Context, testId string) ([]*UserVariantAssignment, error)
	DeleteAssignments(ctx context.Context, testId string) error
}
