package db

import (
	"time"

	"pgregory.net/rapid"
)

func AlgorithmVersionGenerator() *rapid.Generator[*AlgorithmVersion] {
	return rapid.Custom(func(t *rapid.T) *AlgorithmVersion {
		return &AlgorithmVersion{
			AlgorithmId: rapid.StringMatching("[a-z][a-z0-9-]{3,15}").Draw(t, "algorithmId"),
			Version:     rapid.StringMatching("[0-9]\\.[0-9]\\.[0-9]").Draw(t, "version"),
			Name:        rapid.StringMatching("[A-Za-z ]{4,24}").Draw(t, "name"),
			Category:    rapid.SampledFrom([]AlgorithmCategory{CategoryScheduling, CategoryEstimation, CategoryRiskAnalysis, CategoryDocumentAI, CategoryOptimization}).Draw(t, "category"),
			Priority:    rapid.SampledFrom([]AlgorithmPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}).Draw(t, "priority"),
			CreatedBy:   rapid.StringMatching("[a-z]{4,10}").Draw(t, "createdBy"),
			Active:      rapid.Bool().Draw(t, "active"),
			Default:     rapid.Bool().Draw(t, "default"),
		}
	})
}

func StageGenerator(algorithmIds []string) *rapid.Generator[Stage] {
	return rapid.Custom(func(t *rapid.T) Stage {
		return Stage{
			Id:          rapid.StringMatching("stage-[a-z0-9]{4}").Draw(t, "stageId"),
			AlgorithmId: rapid.SampledFrom(algorithmIds).Draw(t, "stageAlgorithm"),
			Input:       InputMapping{Source: InputFromPipeline},
			Output:      OutputMapping{Target: OutputToAccumulator, Key: "out"},
			Timeout:     time.Duration(rapid.IntRange(1, 30).Draw(t, "timeoutSecs")) * time.Second,
		}
	})
}

func TestVariantGenerator(weight float64, isControl bool) *rapid.Generator[TestVariant] {
	return rapid.Custom(func(t *rapid.T) TestVariant {
		return TestVariant{
			Id:          rapid.StringMatching("variant-[a-z0-9]{4}").Draw(t, "variantId"),
			AlgorithmId: rapid.StringMatching("[a-z][a-z0-9-]{3,15}").Draw(t, "variantAlgorithm"),
			Version:     rapid.StringMatching("[0-9]\\.[0-9]\\.[0-9]").Draw(t, "variantVersion"),
			Weight:      weight,
			IsControl:   isControl,
		}
	})
}

func UserIdGenerator() *rapid.Generator[string] {
	return rapid.StringMatching("user-[a-z0-9]{8}")
}
