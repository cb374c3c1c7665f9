package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sitecraft/AlgoOrchestration/internal/db"
	lsql "github.com/sitecraft/AlgoOrchestration/pkg/sql"
)

type Algorithms struct {
	db *lsql.Instance
}

var _ db.AlgorithmService = &Algorithms{}

func NewAlgorithms(instance *lsql.Instance) db.AlgorithmService {
	return &Algorithms{
		db: instance,
	}
}

const algorithmVersionColumns = `
	id, algorithm_id, version, name, category, priority, created_by,
	active, is_default, baseline, dependencies, config, created_ts
`

func (a *Algorithms) CreateVersion(ctx context.Context, v *db.AlgorithmVersion) (*db.AlgorithmVersion, error) {
	row := a.db.QueryRowContext(ctx, `
	SELECT id FROM algorithm_versions
	WHERE algorithm_id = ? AND version = ?
	`, v.AlgorithmId, v.Version)
	var existing int64
	if err := row.Scan(&existing); err == nil {
		return nil, db.ErrAlreadyExists
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	baseline, err := json.Marshal(v.Baseline)
	if err != nil {
		return nil, err
	}
	dependencies, err := json.Marshal(v.Dependencies)
	if err != nil {
		return nil, err
	}
	config, err := json.Marshal(v.Config)
	if err != nil {
		return nil, err
	}

	createdTs := v.CreatedTs
	if createdTs.IsZero() {
		createdTs = time.Now()
	}
	query := `
	INSERT INTO algorithm_versions
	(algorithm_id, version, name, category, priority, created_by, active, is_default, baseline, dependencies, config, created_ts)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id
	`
	id, err := a.db.ExecAndReturnId(ctx, query, v.AlgorithmId, v.Version, v.Name, string(v.Category), string(v.Priority),
		v.CreatedBy, v.Active, v.Default, string(baseline), string(dependencies), string(config), createdTs)
	if err != nil {
		return nil, err
	}
	ret := *v
	ret.Id = id
	ret.CreatedTs = createdTs
	return &ret, nil
}

func (a *Algorithms) GetVersion(ctx context.Context, algorithmId string, version string) (*db.AlgorithmVersion, error) {
	query := `
	SELECT ` + algorithmVersionColumns + `
	FROM algorithm_versions
	WHERE algorithm_id = ? AND version = ?
	`
	return algorithmVersionFromRow(a.db.QueryRowContext(ctx, query, algorithmId, version))
}

func (a *Algorithms) ListVersions(ctx context.Context, algorithmId string) ([]*db.AlgorithmVersion, error) {
	query := `
	SELECT ` + algorithmVersionColumns + `
	FROM algorithm_versions
	WHERE algorithm_id = ?
	ORDER BY created_ts
	`
	rows, err := a.db.QueryContext(ctx, query, algorithmId)
	if err != nil {
		return nil, err
	}
	response := make([]*db.AlgorithmVersion, 0)
	for rows.Next() {
		v, err := algorithmVersionFromRow(rows)
		if err != nil {
			return nil, err
		}
		response = append(response, v)
	}
	return response, nil
}

func (a *Algorithms) ListAlgorithmIds(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
	SELECT DISTINCT algorithm_id
	FROM algorithm_versions
	ORDER BY algorithm_id
	`)
	if err != nil {
		return nil, err
	}
	response := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		response = append(response, id)
	}
	return response, nil
}

func (a *Algorithms) ActiveVersion(ctx context.Context, algorithmId string) (*db.AlgorithmVersion, error) {
	query := `
	SELECT ` + algorithmVersionColumns + `
	FROM algorithm_versions
	WHERE algorithm_id = ? AND active = true
	ORDER BY is_default DESC, created_ts DESC
	LIMIT 1
	`
	return algorithmVersionFromRow(a.db.QueryRowContext(ctx, query, algorithmId))
}

func (a *Algorithms) UpdateVersionFlags(ctx context.Context, algorithmId string, version string, active bool, isDefault bool) error {
	// One transaction keeps the default flag exclusive per algorithm.
	return a.db.Transaction(ctx, func(ctx context.Context, tx *lsql.Tx) error {
		if isDefault {
			clear := `
			UPDATE algorithm_versions
			SET active = false, is_default = false
			WHERE algorithm_id = ? AND version != ?
			`
			if _, err := tx.ExecContext(ctx, clear, algorithmId, version); err != nil {
				return err
			}
		}
		query := `
		UPDATE algorithm_versions
		SET active = ?, is_default = ?
		WHERE algorithm_id = ? AND version = ?
		`
		result, err := tx.ExecContext(ctx, query, active, isDefault, algorithmId, version)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return db.ErrNotFound
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func algorithmVersionFromRow(row rowScanner) (*db.AlgorithmVersion, error) {
	v := &db.AlgorithmVersion{}
	var baseline, dependencies, config string
	err := row.Scan(&v.Id, &v.AlgorithmId, &v.Version, &v.Name, &v.Category, &v.Priority,
		&v.CreatedBy, &v.Active, &v.Default, &baseline, &dependencies, &config, &v.CreatedTs)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(baseline), &v.Baseline); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dependencies), &v.Dependencies); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(config), &v.Config); err != nil {
		return nil, err
	}
	return v, nil
}
