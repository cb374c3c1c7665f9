package sqlite

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
	existing := a.db.QueryRowContext(ctx, `
	SELECT id FROM algorithm_versions
	WHERE algorithm_id = ? AND version = ?
	`, v.AlgorithmId, v.Version)
	var id int64
	if err := existing.Scan(&id); err == nil {
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
	`
	args := []interface{}{v.AlgorithmId, v.Version, v.Name, string(v.Category), string(v.Priority),
		v.CreatedBy, v.Active, v.Default, string(baseline), string(dependencies), string(config), createdTs}
	newId, err := a.db.ExecAndReturnId(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	ret := *v
	ret.Id = newId
	ret.CreatedTs = createdTs
	return &ret, nil
}

func (a *Algorithms) GetVersion(ctx context.Context, algorithmId string, version string) (*db.AlgorithmVersion, error) {
	row := a.db.QueryRowContext(ctx, `
	SELECT `+algorithmVersionColumns+`
	FROM algorithm_versions
	WHERE algorithm_id = ? AND version = ?
	`, algorithmId, version)
	return algorithmVersionInstance(row)
}

func (a *Algorithms) ListVersions(ctx context.Context, algorithmId string) ([]*db.AlgorithmVersion, error) {
	rows, err := a.db.QueryContext(ctx, `
	SELECT `+algorithmVersionColumns+`
	FROM algorithm_versions
	WHERE algorithm_id = ?
	ORDER BY created_ts
	`, algorithmId)
	if err != nil {
		return nil, err
	}
	response := make([]*db.AlgorithmVersion, 0)
	for rows.Next() {
		v, err := algorithmVersionInstance(rows)
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
	row := a.db.QueryRowContext(ctx, `
	SELECT `+algorithmVersionColumns+`
	FROM algorithm_versions
	WHERE algorithm_id = ? AND active = true
	ORDER BY is_default DESC, created_ts DESC
	LIMIT 1
	`, algorithmId)
	return algorithmVersionInstance(row)
}

func (a *Algorithms) UpdateVersionFlags(ctx context.Context, algorithmId string, version string, active bool, isDefault bool) error {
	// Clearing the siblings and flagging the target share a transaction so the
	// algorithm never ends up with two default versions.
	return a.db.Transaction(ctx, func(ctx context.Context, tx *lsql.Tx) error {
		if isDefault {
			if _, err := tx.ExecContext(ctx, `
			UPDATE algorithm_versions
			SET active = false, is_default = false
			WHERE algorithm_id = ? AND version != ?
			`, algorithmId, version); err != nil {
				return err
			}
		}
		result, err := tx.ExecContext(ctx, `
		UPDATE algorithm_versions
		SET active = ?, is_default = ?
		WHERE algorithm_id = ? AND version = ?
		`, active, isDefault, algorithmId, version)
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

func algorithmVersionInstance(row rowScanner) (*db.AlgorithmVersion, error) {
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
