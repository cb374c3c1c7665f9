package db

import (
	"context"
	"time"
)

type InputSource string

const (
	InputFromPipeline    InputSource = "pipeline_input"
	InputFromAccumulator InputSource = "accumulator"
	InputConstant        InputSource = "constant"
	InputFromEnv         InputSource = "environment"
)

type OutputTarget string

const (
	OutputToPipeline    OutputTarget = "pipeline_output"
	OutputToNextStage   OutputTarget = "next_stage"
	OutputToAccumulator OutputTarget = "accumulator"
)

type InputMapping struct {
	Source   InputSource            `json:"source"`
	Key      string                 `json:"key,omitempty"`      // accumulator / pipeline input key, env var name
	Constant map[string]interface{} `json:"constant,omitempty"` // used when Source == InputConstant
}

type OutputMapping struct {
	Target OutputTarget `json:"target"`
	Key    string       `json:"key,omitempty"` // accumulator key to merge under
}

type ConditionOperator string

const (
	OpEq       ConditionOperator = "eq"
	OpNe       ConditionOperator = "ne"
	OpGt       ConditionOperator = "gt"
	OpLt       ConditionOperator = "lt"
	OpGte      ConditionOperator = "gte"
	OpLte      ConditionOperator = "lte"
	OpIn       ConditionOperator = "in"
	OpContains ConditionOperator = "contains"
)

type ConditionLogic string

const (
	LogicAnd ConditionLogic = "and"
	LogicOr  ConditionLogic = "or"
)

type StageCondition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    interface{}       `json:"value"`
}

type ConditionSet struct {
	Logic      ConditionLogic   `json:"logic"`
	Conditions []StageCondition `json:"conditions"`
}

type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffExponential BackoffKind = "exponential"
)

type RetryPolicy struct {
	MaxRetries   int           `json:"max_retries"`
	Backoff      BackoffKind   `json:"backoff"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
}

type Stage struct {
	Id           string        `json:"id"`
	Name         string        `json:"name"`
	AlgorithmId  string        `json:"algorithm_id"`
	Input        InputMapping  `json:"input"`
	Output       OutputMapping `json:"output"`
	Conditions   *ConditionSet `json:"conditions,omitempty"`
	Retry        *RetryPolicy  `json:"retry,omitempty"`
	Timeout      time.Duration `json:"timeout"`
	Dependencies []string      `json:"dependencies"`
}

type PipelineDefinition struct {
	Id              string        `json:"id"`
	Name            string        `json:"name"`
	Version         string        `json:"version"`
	Stages          []Stage       `json:"stages"`
	InputSchemaRef  string        `json:"input_schema_ref,omitempty"`
	OutputSchemaRef string        `json:"output_schema_ref,omitempty"`
	Timeout         time.Duration `json:"timeout"`
	MaxConcurrency  int           `json:"max_concurrency"`
	// HaltOnFailure aborts the whole execution on the first stage failure.
	// When false, dependents of a failed stage are skipped and the execution
	// completes with partial results.
	HaltOnFailure bool      `json:"halt_on_failure"`
	Active        bool      `json:"active"`
	CreatedTs     time.Time `json:"created_ts"`
}

type PipelineService interface {
	CreatePipeline(ctx context.Context, def *PipelineDefinition) (*PipelineDefinition, error)
	GetPipeline(ctx context.Context, id string) (*PipelineDefinition, error)
	ListPipelines(ctx context.Context) ([]*PipelineDefinition, error)
	UpdatePipelineActive(ctx context.Context, id string, active bool) error
}
