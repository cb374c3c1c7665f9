package executor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is the executor double used across the engine tests. Outcomes are
// scripted per algorithm id; unscripted algorithms succeed with empty data.
type Mock struct {
	mu        sync.Mutex
	Outcomes  map[string]MockOutcome
	Calls     []MockCall
	callCount map[string]int
}

type MockOutcome struct {
	Fail        bool
	FailTimes   int // fail only the first N calls, then succeed
	Latency     time.Duration
	Data        map[string]interface{}
	Version     string
	BlockOnCtx  bool // park until the context is cancelled
}

type MockCall struct {
	AlgorithmId string
	Input       map[string]interface{}
	Invocation  *Invocation
}

var _ Executor = &Mock{}

func NewMock() *Mock {
	return &Mock{
		Outcomes:  make(map[string]MockOutcome),
		callCount: make(map[string]int),
	}
}

func (m *Mock) Execute(ctx context.Context, algorithmId string, input map[string]interface{}, inv *Invocation) (*Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{AlgorithmId: algorithmId, Input: input, Invocation: inv})
	m.callCount[algorithmId]++
	count := m.callCount[algorithmId]
	outcome := m.Outcomes[algorithmId]
	m.mu.Unlock()

	if outcome.BlockOnCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if outcome.Latency > 0 {
		select {
		case <-time.After(outcome.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	start := time.Now()
	version := outcome.Version
	if version == "" {
		version = "1.0.0"
	}
	if outcome.Fail || (outcome.FailTimes > 0 && count <= outcome.FailTimes) {
		return &Result{
			Success:          false,
			Error:            fmt.Sprintf("algorithm %s failed", algorithmId),
			ExecutionTime:    outcome.Latency + time.Since(start),
			AlgorithmVersion: version,
		}, nil
	}
	data := outcome.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Result{
		Success:          true,
		Data:             data,
		ExecutionTime:    outcome.Latency + time.Since(start),
		AlgorithmVersion: version,
	}, nil
}

func (m *Mock) CallsFor(algorithmId string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount[algorithmId]
}
