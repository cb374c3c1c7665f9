package abtest

import (
	"context"
	"math"
	"time"

	"github.com/sitecraft/AlgoOrchestration/internal/db"
)

const (
	MetricSuccessRate = "success_rate"
	MetricLatency     = "latency"
)

type Recommendation string

const (
	RecommendContinue Recommendation = "continue"
	RecommendExtend   Recommendation = "extend"
	RecommendStop     Recommendation = "stop"
	RecommendDeploy   Recommendation = "deploy"
)

type VariantStatistics struct {
	VariantId   string        `json:"variant_id"`
	Name        string        `json:"name"`
	IsControl   bool          `json:"is_control"`
	Executions  int           `json:"executions"`
	Successes   int           `json:"successes"`
	SuccessRate float64       `json:"success_rate"`
	AvgLatency  time.Duration `json:"avg_latency"`
	// ConfidenceInterval bounds the success rate at the test's confidence level.
	ConfidenceInterval [2]float64 `json:"confidence_interval"`
}

type TestStatistics struct {
	TestId          string               `json:"test_id"`
	State           db.TestState         `json:"state"`
	PrimaryMetric   string               `json:"primary_metric"`
	TotalExecutions int                  `json:"total_executions"`
	Variants        []*VariantStatistics `json:"variants"`
	ControlId       string               `json:"control_id"`
	BestVariantId   string               `json:"best_variant_id,omitempty"`
	// Improvement is the best treatment's relative gain over control on the
	// primary metric; negative means the treatment is worse.
	Improvement    float64        `json:"improvement"`
	PValue         float64        `json:"p_value"`
	Significant    bool           `json:"significant"`
	Recommendation Recommendation `json:"recommendation"`
}

// GetTestStatistics aggregates the raw results per variant and compares the
// best treatment against control with a two-proportion z-test (success rate)
// or a two-sample z-test on means (latency).
func (e *Engine) GetTestStatistics(ctx context.Context, testId string) (*TestStatistics, error) {
	def, err := e.GetTest(ctx, testId)
	if err != nil {
		return nil, err
	}
	results, err := e.db.Tests().ListResults(ctx, testId)
	if err != nil {
		return nil, err
	}

	stats := &TestStatistics{
		TestId:         testId,
		State:          def.State,
		PrimaryMetric:  def.Criteria.PrimaryMetric,
		Recommendation: RecommendContinue,
	}

	byVariant := map[string]*variantSample{}
	for _, variant := range def.Variants {
		byVariant[variant.Id] = &variantSample{
			stats: &VariantStatistics{
				VariantId: variant.Id,
				Name:      variant.Name,
				IsControl: variant.IsControl,
			},
		}
		if variant.IsControl {
			stats.ControlId = variant.Id
		}
	}
	for _, result := range results {
		sample, ok := byVariant[result.VariantId]
		if !ok {
			continue
		}
		sample.stats.Executions++
		if result.Success {
			sample.stats.Successes++
		}
		latency := float64(result.ExecutionTime.Milliseconds())
		sample.latencySum += latency
		sample.latencySqSum += latency * latency
		stats.TotalExecutions++
	}

	z := zScore(def.Criteria.ConfidenceLevel)
	for _, variant := range def.Variants {
		sample := byVariant[variant.Id]
		s := sample.stats
		if s.Executions > 0 {
			s.SuccessRate = float64(s.Successes) / float64(s.Executions)
			s.AvgLatency = time.Duration(sample.latencySum/float64(s.Executions)) * time.Millisecond
			margin := z * math.Sqrt(s.SuccessRate*(1-s.SuccessRate)/float64(s.Executions))
			s.ConfidenceInterval = [2]float64{
				math.Max(0, s.SuccessRate-margin),
				math.Min(1, s.SuccessRate+margin),
			}
		}
		stats.Variants = append(stats.Variants, s)
	}

	control := byVariant[stats.ControlId]
	best := bestTreatment(def, byVariant)
	if best == nil || control == nil || control.stats.Executions == 0 || best.stats.Executions == 0 {
		return stats, nil
	}
	stats.BestVariantId = best.stats.VariantId

	switch def.Criteria.PrimaryMetric {
	case MetricLatency:
		stats.Improvement = latencyImprovement(control, best)
		stats.PValue = meanPValue(control, best)
	default:
		stats.Improvement = rateImprovement(control.stats, best.stats)
		stats.PValue = proportionPValue(control.stats, best.stats)
	}

	enoughSamples := control.stats.Executions >= def.Criteria.MinimumSampleSize &&
		best.stats.Executions >= def.Criteria.MinimumSampleSize
	stats.Significant = enoughSamples && stats.PValue <= 1-def.Criteria.ConfidenceLevel

	switch {
	case stats.Significant && stats.Improvement >= def.Criteria.MinimumImprovement:
		stats.Recommendation = RecommendDeploy
	case stats.Significant && stats.Improvement < 0:
		stats.Recommendation = RecommendStop
	case !stats.Significant && stats.Improvement > 0 && enoughSamples:
		stats.Recommendation = RecommendExtend
	default:
		stats.Recommendation = RecommendContinue
	}
	return stats, nil
}

type variantSample struct {
	stats        *VariantStatistics
	latencySum   float64
	latencySqSum float64
}

// bestTreatment picks the strongest non-control variant with data on the
// primary metric.
func bestTreatment(def *db.ABTestDefinition, byVariant map[string]*variantSample) *variantSample {
	var best *variantSample
	for _, variant := range def.Variants {
		if variant.IsControl {
			continue
		}
		sample := byVariant[variant.Id]
		if sample.stats.Executions == 0 {
			continue
		}
		if best == nil {
			best = sample
			continue
		}
		if def.Criteria.PrimaryMetric == MetricLatency {
			if sample.stats.AvgLatency < best.stats.AvgLatency {
				best = sample
			}
		} else if sample.stats.SuccessRate > best.stats.SuccessRate {
			best = sample
		}
	}
	return best
}

func rateImprovement(control, treatment *VariantStatistics) float64 {
	if control.SuccessRate == 0 {
		return treatment.SuccessRate
	}
	return (treatment.SuccessRate - control.SuccessRate) / control.SuccessRate
}

func latencyImprovement(control, treatment *variantSample) float64 {
	controlMean := control.latencySum / float64(control.stats.Executions)
	treatmentMean := treatment.latencySum / float64(treatment.stats.Executions)
	if controlMean == 0 {
		return 0
	}
	return (controlMean - treatmentMean) / controlMean
}

// proportionPValue is a pooled two-proportion z-test on success counts.
func proportionPValue(control, treatment *VariantStatistics) float64 {
	n1, n2 := float64(control.Executions), float64(treatment.Executions)
	pooled := (float64(control.Successes) + float64(treatment.Successes)) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 {
		return 1
	}
	z := math.Abs(treatment.SuccessRate-control.SuccessRate) / se
	return 2 * (1 - normalCDF(z))
}

// meanPValue is a two-sample z-test on latency means using sample variances.
func meanPValue(control, treatment *variantSample) float64 {
	n1, n2 := float64(control.stats.Executions), float64(treatment.stats.Executions)
	m1 := control.latencySum / n1
	m2 := treatment.latencySum / n2
	v1 := control.latencySqSum/n1 - m1*m1
	v2 := treatment.latencySqSum/n2 - m2*m2
	se := math.Sqrt(v1/n1 + v2/n2)
	if se == 0 {
		return 1
	}
	z := math.Abs(m1-m2) / se
	return 2 * (1 - normalCDF(z))
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// zScore maps the common confidence levels to their two-sided critical value.
func zScore(confidence float64) float64 {
	switch {
	case confidence >= 0.99:
		return 2.576
	case confidence >= 0.95:
		return 1.960
	case confidence >= 0.90:
		return 1.645
	default:
		return 1.960
	}
}
