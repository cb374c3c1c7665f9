// Package executor defines the contract with the single-algorithm executor.
// The executor is an external collaborator; the orchestration layer only
// depends on this interface and never on individual algorithm internals.
package executor

import (
	"context"
	"time"
)

// Invocation carries the caller identity and correlation data through an
// executor call. User and project identifiers are passed through only; this
// layer never reaches into their storage.
type Invocation struct {
	CorrelationId string
	UserId        string
	ProjectId     string
	Environment   string
	Metadata      map[string]interface{}
}

type Result struct {
	Success          bool                   `json:"success"`
	Data             map[string]interface{} `json:"data,omitempty"`
	Error            string                 `json:"error,omitempty"`
	ExecutionTime    time.Duration          `json:"execution_time"`
	AlgorithmVersion string                 `json:"algorithm_version"`
	Confidence       *float64               `json:"confidence,omitempty"`
}

type Executor interface {
	Execute(ctx context.Context, algorithmId string, input map[string]interface{}, inv *Invocation) (*Result, error)
}
