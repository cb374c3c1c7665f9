package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sitecraft/AlgoOrchestration/internal/db"
)

type Pipelines struct {
	mu        sync.RWMutex
	pipelines map[string]*db.PipelineDefinition
	order     []string
}

var _ db.PipelineService = &Pipelines{}

func NewPipelines() *Pipelines {
	return &Pipelines{
		pipelines: make(map[string]*db.PipelineDefinition),
	}
}

func (p *Pipelines) CreatePipeline(_ context.Context, def *db.PipelineDefinition) (*db.PipelineDefinition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pipelines[def.Id]; ok {
		return nil, db.ErrAlreadyExists
	}
	stored := *def
	if stored.CreatedTs.IsZero() {
		stored.CreatedTs = time.Now()
	}
	p.pipelines[def.Id] = &stored
	p.order = append(p.order, def.Id)
	ret := stored
	return &ret, nil
}

func (p *Pipelines) GetPipeline(_ context.Context, id string) (*db.PipelineDefinition, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	def, ok := p.pipelines[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	ret := *def
	return &ret, nil
}

func (p *Pipelines) ListPipelines(_ context.Context) ([]*db.PipelineDefinition, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ret := make([]*db.PipelineDefinition, 0, len(p.order))
	for _, id := range p.order {
		c := *p.pipelines[id]
		ret = append(ret, &c)
	}
	return ret, nil
}

func (p *Pipelines) UpdatePipelineActive(_ context.Context, id string, active bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	def, ok := p.pipelines[id]
	if !ok {
		return db.ErrNotFound
	}
	def.Active = active
	return nil
}
