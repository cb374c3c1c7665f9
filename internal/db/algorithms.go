package db

import (
	"context"
	"time"
)

type AlgorithmCategory string

const (
	CategoryScheduling   AlgorithmCategory = "scheduling"
	CategoryEstimation   AlgorithmCategory = "estimation"
	CategoryRiskAnalysis AlgorithmCategory = "risk_analysis"
	CategoryDocumentAI   AlgorithmCategory = "document_ai"
	CategoryOptimization AlgorithmCategory = "optimization"
)

type AlgorithmPriority string

const (
	PriorityLow      AlgorithmPriority = "low"
	PriorityMedium   AlgorithmPriority = "medium"
	PriorityHigh     AlgorithmPriority = "high"
	PriorityCritical AlgorithmPriority = "critical"
)

// AlgorithmVersion is immutable once created; new behavior means a new version.
type AlgorithmVersion struct {
	Id           int64
	AlgorithmId  string
	Version      string
	Name         string
	Category     AlgorithmCategory
	Priority     AlgorithmPriority
	CreatedBy    string
	Active       bool
	Default      bool
	Baseline     PerformanceBaseline
	Dependencies []string
	Config       map[string]interface{}
	CreatedTs    time.Time
}

type PerformanceBaseline struct {
	ExpectedLatency  time.Duration          `json:"expected_latency"`
	ExpectedErrRate  float64                `json:"expected_error_rate"`
	SmokeTestInput   map[string]interface{} `json:"smoke_test_input"`
	MinimumThroughpt float64                `json:"minimum_throughput"`
}

type AlgorithmService interface {
	CreateVersion(ctx context.Context, v *AlgorithmVersion) (*AlgorithmVersion, error)
	GetVersion(ctx context.Context, algorithmId string, version string) (*AlgorithmVersion, error)
	ListVersions(ctx context.Context, algorithmId string) ([]*AlgorithmVersion, error)
	ListAlgorithmIds(ctx context.Context) ([]string, error)
	// ActiveVersion prefers a version flagged both active and default and falls
	// back to any active version. Returns ErrNotFound if none qualifies.
	ActiveVersion(ctx context.Context, algorithmId string) (*AlgorithmVersion, error)
	// UpdateVersionFlags sets the version's active/default flags. Flagging a
	// version default clears the flags on the algorithm's other versions, so at
	// most one version is active-and-default at a time.
	UpdateVersionFlags(ctx context.Context, algorithmId string, version string, active bool, isDefault bool) error
}
