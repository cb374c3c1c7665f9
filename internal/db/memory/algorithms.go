package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sitecraft/AlgoOrchestration/internal/db"
)

type Algorithms struct {
	mu       sync.RWMutex
	nextId   int64
	versions map[string][]*db.AlgorithmVersion // keyed by algorithm id, insertion order
}

var _ db.AlgorithmService = &Algorithms{}

func NewAlgorithms() *Algorithms {
	return &Algorithms{
		versions: make(map[string][]*db.AlgorithmVersion),
	}
}

func (a *Algorithms) CreateVersion(_ context.Context, v *db.AlgorithmVersion) (*db.AlgorithmVersion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, existing := range a.versions[v.AlgorithmId] {
		if existing.Version == v.Version {
			return nil, db.ErrAlreadyExists
		}
	}
	a.nextId++
	stored := *v
	stored.Id = a.nextId
	if stored.CreatedTs.IsZero() {
		stored.CreatedTs = time.Now()
	}
	a.versions[v.AlgorithmId] = append(a.versions[v.AlgorithmId], &stored)
	ret := stored
	return &ret, nil
}

func (a *Algorithms) GetVersion(_ context.Context, algorithmId string, version string) (*db.AlgorithmVersion, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, v := range a.versions[algorithmId] {
		if v.Version == version {
			ret := *v
			return &ret, nil
		}
	}
	return nil, db.ErrNotFound
}

func (a *Algorithms) ListVersions(_ context.Context, algorithmId string) ([]*db.AlgorithmVersion, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ret := make([]*db.AlgorithmVersion, 0, len(a.versions[algorithmId]))
	for _, v := range a.versions[algorithmId] {
		c := *v
		ret = append(ret, &c)
	}
	return ret, nil
}

func (a *Algorithms) ListAlgorithmIds(_ context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.versions))
	for id := range a.versions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (a *Algorithms) ActiveVersion(_ context.Context, algorithmId string) (*db.AlgorithmVersion, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var fallback *db.AlgorithmVersion
	for _, v := range a.versions[algorithmId] {
		if !v.Active {
			continue
		}
		if v.Default {
			ret := *v
			return &ret, nil
		}
		if fallback == nil {
			fallback = v
		}
	}
	if fallback == nil {
		return nil, db.ErrNotFound
	}
	ret := *fallback
	return &ret, nil
}

func (a *Algorithms) UpdateVersionFlags(_ context.Context, algorithmId string, version string, active bool, isDefault bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var target *db.AlgorithmVersion
	for _, v := range a.versions[algorithmId] {
		if v.Version == version {
			target = v
			break
		}
	}
	if target == nil {
		return db.ErrNotFound
	}
	if isDefault {
		// default is exclusive per algorithm
		for _, v := range a.versions[algorithmId] {
			if v != target {
				v.Active = false
				v.Default = false
			}
		}
	}
	target.Active = active
	target.Default = isDefault
	return nil
}
