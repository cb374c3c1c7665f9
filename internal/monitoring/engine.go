// Package monitoring records execution outcomes into time-bucketed metrics,
// evaluates alert thresholds and serves dashboards and health scores.
package monitoring

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/events"
)

var (
	ErrValidation = fmt.Errorf("validation failed")
)

type Engine struct {
	config *Config
	db     db.Database
	bus    *events.Bus
}

func NewEngine(config *Config, database db.Database, bus *events.Bus) *Engine {
	return &Engine{
		config: config,
		db:     database,
		bus:    bus,
	}
}

// RecordExecution folds one executor outcome into the algorithm's current
// bucket and evaluates every configured threshold against the updated window.
// A failure while evaluating one threshold never blocks the others.
func (e *Engine) RecordExecution(ctx context.Context, algorithmId string, success bool, execTime time.Duration) error {
	windowStart := time.Now().Truncate(e.config.BucketGranularity)
	bucket, err := e.db.Metrics().RecordSample(ctx, algorithmId, windowStart, execTime, success)
	if err != nil {
		return err
	}
	e.evaluateThresholds(ctx, algorithmId, bucket, execTime)
	return nil
}

var validAlertMetrics = map[db.AlertMetric]bool{
	db.MetricErrorRate:    true,
	db.MetricResponseTime: true,
	db.MetricThroughput:   true,
}

var validAlertOperators = map[db.ConditionOperator]bool{
	db.OpGt:  true,
	db.OpLt:  true,
	db.OpGte: true,
	db.OpLte: true,
	db.OpEq:  true,
}

func (e *Engine) SetThreshold(ctx context.Context, t *db.AlertThreshold) (*db.AlertThreshold, error) {
	if t.AlgorithmId == "" {
		return nil, fmt.Errorf("%w: algorithm id is required", ErrValidation)
	}
	if !validAlertMetrics[t.Metric] {
		return nil, fmt.Errorf("%w: unknown metric %q", ErrValidation, t.Metric)
	}
	if !validAlertOperators[t.Operator] {
		return nil, fmt.Errorf("%w: unknown operator %q", ErrValidation, t.Operator)
	}
	return e.db.Metrics().CreateThreshold(ctx, t)
}

func (e *Engine) evaluateThresholds(ctx context.Context, algorithmId string, bucket *db.MetricsBucket, execTime time.Duration) {
	thresholds, err := e.db.Metrics().ListThresholds(ctx, algorithmId)
	if err != nil {
		log.Printf("failed to list thresholds for %s: %s", algorithmId, err)
		return
	}
	for _, threshold := range thresholds {
		var current float64
		switch threshold.Metric {
		case db.MetricErrorRate:
			current = bucket.ErrorRate
		case db.MetricResponseTime:
			// the observed call time in milliseconds, not the bucket average
			current = float64(execTime.Milliseconds())
		case db.MetricThroughput:
			current = float64(bucket.Throughput)
		default:
			continue
		}
		if !compareThreshold(current, threshold.Operator, threshold.Threshold) {
			continue
		}
		if e.suppressed(ctx, threshold) {
			continue
		}
		alert, err := e.db.Metrics().CreateAlert(ctx, &db.PerformanceAlert{
			AlgorithmId:  algorithmId,
			Metric:       threshold.Metric,
			Severity:     threshold.Severity,
			Threshold:    threshold.Threshold,
			CurrentValue: current,
			Message: fmt.Sprintf("%s %s %s threshold %.2f (observed %.2f)",
				algorithmId, threshold.Metric, threshold.Operator, threshold.Threshold, current),
		})
		if err != nil {
			log.Printf("failed to create %s alert for %s: %s", threshold.Metric, algorithmId, err)
			continue
		}
		if pubErr := e.bus.Publish(events.NewEvent(events.TopicAlertTriggered, "monitoring", map[string]interface{}{
			"algorithm_id":  algorithmId,
			"metric":        string(alert.Metric),
			"severity":      string(alert.Severity),
			"current_value": alert.CurrentValue,
		})); pubErr != nil {
			log.Debugf("alert event not fully delivered: %s", pubErr)
		}
		log.Printf("alert: %s", alert.Message)
	}
}

// suppressed applies the alert cooldown: a breach is dropped while an
// unresolved alert of the same key is younger than the cooldown.
func (e *Engine) suppressed(ctx context.Context, threshold *db.AlertThreshold) bool {
	if e.config.AlertCooldown <= 0 {
		return false
	}
	latest, err := e.db.Metrics().LatestUnresolvedAlert(ctx, threshold.AlgorithmId, threshold.Metric, threshold.Severity)
	if err != nil {
		return false
	}
	return time.Since(latest.CreatedTs) < e.config.AlertCooldown
}

func compareThreshold(current float64, op db.ConditionOperator, threshold float64) bool {
	switch op {
	case db.OpGt:
		return current > threshold
	case db.OpLt:
		return current < threshold
	case db.OpGte:
		return current >= threshold
	case db.OpLte:
		return current <= threshold
	case db.OpEq:
		return current == threshold
	default:
		return false
	}
}

func (e *Engine) ResolveAlert(ctx context.Context, id int64) error {
	if err := e.db.Metrics().ResolveAlert(ctx, id, time.Now()); err != nil {
		return err
	}
	if pubErr := e.bus.Publish(events.NewEvent(events.TopicAlertResolved, "monitoring", map[string]interface{}{
		"alert_id": id,
	})); pubErr != nil {
		log.Debugf("alert resolved event not fully delivered: %s", pubErr)
	}
	return nil
}

func (e *Engine) ListAlerts(ctx context.Context, algorithmId string, unresolvedOnly bool) ([]*db.PerformanceAlert, error) {
	return e.db.Metrics().ListAlerts(ctx, algorithmId, unresolvedOnly)
}
