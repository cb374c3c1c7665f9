package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sitecraft/AlgoOrchestration/internal/db"
)

type Tests struct {
	mu      sync.RWMutex
	nextId  int64
	tests   map[string]*db.ABTestDefinition
	order   []string
	results map[string][]*db.TestExecutionResult
}

var _ db.TestService = &Tests{}

func NewTests() *Tests {
	return &Tests{
		tests:   make(map[string]*db.ABTestDefinition),
		results: make(map[string][]*db.TestExecutionResult),
	}
}

func (t *Tests) CreateTest(_ context.Context, def *db.ABTestDefinition) (*db.ABTestDefinition, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tests[def.Id]; ok {
		return nil, db.ErrAlreadyExists
	}
	stored := *def
	if stored.CreatedTs.IsZero() {
		stored.CreatedTs = time.Now()
	}
	t.tests[def.Id] = &stored
	t.order = append(t.order, def.Id)
	ret := stored
	return &ret, nil
}

func (t *Tests) GetTest(_ context.Context, id string) (*db.ABTestDefinition, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	def, ok := t.tests[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	ret := *def
	return &ret, nil
}

func (t *Tests) ListTests(_ context.Context, state *db.TestState) ([]*db.ABTestDefinition, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var ret []*db.ABTestDefinition
	for _, id := range t.order {
		def := t.tests[id]
		if state != nil && def.State != *state {
			continue
		}
		c := *def
		ret = append(ret, &c)
	}
	return ret, nil
}

func testStateIn(state db.TestState, states []db.TestState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

func (t *Tests) UpdateTestState(_ context.Context, id string, from []db.TestState, to db.TestState, endReason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	def, ok := t.tests[id]
	if !ok {
		return db.ErrNotFound
	}
	if !testStateIn(def.State, from) {
		return db.ErrInvalidTransition
	}
	def.State = to
	now := time.Now()
	switch to {
	case db.TestRunning:
		if def.StartedTs == nil {
			def.StartedTs = &now
		}
	case db.TestCompleted, db.TestCancelled:
		def.EndedTs = &now
		def.EndReason = endReason
	}
	return nil
}

func (t *Tests) RecordResult(_ context.Context, result *db.TestExecutionResult) (*db.TestExecutionResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextId++
	stored := *result
	stored.Id = t.nextId
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	t.results[result.TestId] = append(t.results[result.TestId], &stored)
	ret := stored
	return &ret, nil
}

func (t *Tests) ListResults(_ context.Context, testId string) ([]*db.TestExecutionResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ret := make([]*db.TestExecutionResult, 0, len(t.results[testId]))
	for _, r := range t.results[testId] {
		c := *r
		ret = append(ret, &c)
	}
	return ret, nil
}

type Assignments struct {
	mu          sync.RWMutex
	assignments map[string]map[string]*db.UserVariantAssignment // testId -> userId
}

var _ db.AssignmentService = &Assignments{}

func NewAssignments() *Assignments {
	return &Assignments{
		assignments: make(map[string]map[string]*db.UserVariantAssignment),
	}
}

func (a *Assignments) CreateIfAbsent(_ context.Context, assignment *db.UserVariantAssignment) (*db.UserVariantAssignment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	byUser, ok := a.assignments[assignment.TestId]
	if !ok {
		byUser = make(map[string]*db.UserVariantAssignment)
		a.assignments[assignment.TestId] = byUser
	}
	if existing, ok := byUser[assignment.UserId]; ok {
		ret := *existing
		return &ret, nil
	}
	stored := *assignment
	if stored.AssignedTs.IsZero() {
		stored.AssignedTs = time.Now()
	}
	byUser[assignment.UserId] = &stored
	ret := stored
	return &ret, nil
}

func (a *Assignments) GetAssignment(_ context.Context, testId string, userId string) (*db.UserVariantAssignment, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if existing, ok := a.assignments[testId][userId]; ok {
		ret := *existing
		return &ret, nil
	}
	return nil, db.ErrNotFound
}

func (a *Assignments) ListAssignments(_ context.Context, testId string) ([]*db.UserVariantAssignment, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ret := make([]*db.UserVariantAssignment, 0, len(a.assignments[testId]))
	for _, assignment := range a.assignments[testId] {
		c := *assignment
		ret = append(ret, &c)
	}
	return ret, nil
}

func (a *Assignments) DeleteAssignments(_ context.Context, testId string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.assignments, testId)
	return nil
}
