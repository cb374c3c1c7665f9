package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sitecraft/AlgoOrchestration/internal/db"
	lsql "github.com/sitecraft/AlgoOrchestration/pkg/sql"
)

type Deployments struct {
	db *lsql.Instance
}

var _ db.DeploymentService = &Deployments{}

func NewDeployments(instance *lsql.Instance) db.DeploymentService {
	return &Deployments{
		db: instance,
	}
}

const deploymentColumns = `
	id, algorithm_id, version, environment, state, deployed_by,
	health_checks, failure_reason, rolled_back_from, created_ts, updated_ts
`

func (d *Deployments) CreateDeployment(ctx context.Context, deployment *db.Deployment) (*db.Deployment, error) {
	checks, err := json.Marshal(deployment.HealthChecks)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	ret := *deployment
	err = d.db.Transaction(ctx, func(ctx context.Context, tx *lsql.Tx) error {
		row := tx.QueryRowContext(ctx, `
		SELECT COUNT(id) FROM deployments
		WHERE algorithm_id = ? AND environment = ? AND state IN (?, ?)
		`, deployment.AlgorithmId, string(deployment.Environment),
			string(db.DeploymentActive), string(db.DeploymentDeploying))
		var occupied int64
		if err := row.Scan(&occupied); err != nil {
			return err
		}
		if occupied > 0 && (deployment.State == db.DeploymentActive || deployment.State == db.DeploymentDeploying) {
			return db.ErrAlreadyExists
		}

		query := `
		INSERT INTO deployments
		(algorithm_id, version, environment, state, deployed_by, health_checks, failure_reason, rolled_back_from, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
		`
		id, err := tx.ExecAndReturnId(ctx, query,
			deployment.AlgorithmId, deployment.Version, string(deployment.Environment), string(deployment.State),
			deployment.DeployedBy, string(checks), deployment.FailureReason, deployment.RolledBackFrom, now, now)
		if err != nil {
			return err
		}
		ret.Id = id
		ret.CreatedTs = now
		ret.UpdatedTs = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (d *Deployments) GetDeployment(ctx context.Context, id int64) (*db.Deployment, error) {
	query := `
	SELECT ` + deploymentColumns + `
	FROM deployments
	WHERE id = ?
	`
	return deploymentFromRow(d.db.QueryRowContext(ctx, query, id))
}

func (d *Deployments) ListDeployments(ctx context.Context, algorithmId string, environment *db.Environment) ([]*db.Deployment, error) {
	query := `
	SELECT ` + deploymentColumns + `
	FROM deployments
	WHERE algorithm_id = ?
	`
	args := []interface{}{algorithmId}
	if environment != nil {
		query += ` AND environment = ?`
		args = append(args, string(*environment))
	}
	query += ` ORDER BY created_ts`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	response := make([]*db.Deployment, 0)
	for rows.Next() {
		deployment, err := deploymentFromRow(rows)
		if err != nil {
			return nil, err
		}
		response = append(response, deployment)
	}
	return response, nil
}

func (d *Deployments) ActiveDeployment(ctx context.Context, algorithmId string, environment db.Environment) (*db.Deployment, error) {
	query := `
	SELECT ` + deploymentColumns + `
	FROM deployments
	WHERE algorithm_id = ? AND environment = ? AND state = ?
	`
	return deploymentFromRow(d.db.QueryRowContext(ctx, query, algorithmId, string(environment), string(db.DeploymentActive)))
}

func (d *Deployments) UpdateDeploymentState(ctx context.Context, id int64, from []db.DeploymentState, to db.DeploymentState) error {
	fromStates := make([]string, 0, len(from))
	for _, state := range from {
		fromStates = append(fromStates, string(state))
	}

	return d.db.Transaction(ctx, func(ctx context.Context, tx *lsql.Tx) error {
		if to == db.DeploymentActive {
			row := tx.QueryRowContext(ctx, `
			SELECT COUNT(other.id)
			FROM deployments other, deployments own
			WHERE own.id = ? AND other.id != own.id
			  AND other.algorithm_id = own.algorithm_id AND other.environment = own.environment
			  AND other.state IN (?, ?)
			`, id, string(db.DeploymentActive), string(db.DeploymentDeploying))
			var occupied int64
			if err := row.Scan(&occupied); err != nil {
				return err
			}
			if occupied > 0 {
				return db.ErrAlreadyExists
			}
		}

		result, err := tx.ExecContext(ctx, `
		UPDATE deployments
		SET state = ?, updated_ts = ?
		WHERE id = ? AND state IN (?)
		`, string(to), time.Now(), id, fromStates)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			row := tx.QueryRowContext(ctx, `SELECT id FROM deployments WHERE id = ?`, id)
			var found int64
			if err := row.Scan(&found); err != nil {
				if err == sql.ErrNoRows {
					return db.ErrNotFound
				}
				return err
			}
			return db.ErrInvalidTransition
		}
		return nil
	})
}

func (d *Deployments) UpdateDeploymentChecks(ctx context.Context, id int64, checks []db.HealthCheck, failureReason string) error {
	encoded, err := json.Marshal(checks)
	if err != nil {
		return err
	}
	result, err := d.db.ExecContext(ctx, `
	UPDATE deployments
	SET health_checks = ?, failure_reason = ?, updated_ts = ?
	WHERE id = ?
	`, string(encoded), failureReason, time.Now(), id)
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
}

func deploymentFromRow(row rowScanner) (*db.Deployment, error) {
	deployment := &db.Deployment{}
	var checks string
	err := row.Scan(&deployment.Id, &deployment.AlgorithmId, &deployment.Version, &deployment.Environment,
		&deployment.State, &deployment.DeployedBy, &checks, &deployment.FailureReason,
		&deployment.RolledBackFrom, &deployment.CreatedTs, &deployment.UpdatedTs)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(checks), &deployment.HealthChecks); err != nil {
		return nil, err
	}
	return deployment, nil
}
