package pipeline

import (
	"os"

	"github.com/sitecraft/AlgoOrchestration/internal/db"
)

// resolveInput builds the map handed to the stage's executor call.
func resolveInput(mapping db.InputMapping, pipelineInput, accumulator map[string]interface{}) map[string]interface{} {
	switch mapping.Source {
	case db.InputFromAccumulator:
		if mapping.Key == "" {
			return copyMap(accumulator)
		}
		if nested, ok := accumulator[mapping.Key].(map[string]interface{}); ok {
			return copyMap(nested)
		}
		if value, ok := accumulator[mapping.Key]; ok {
			return map[string]interface{}{mapping.Key: value}
		}
		return map[string]interface{}{}
	case db.InputConstant:
		return copyMap(mapping.Constant)
	case db.InputFromEnv:
		return map[string]interface{}{mapping.Key: os.Getenv(mapping.Key)}
	default: // pipeline_input
		if mapping.Key == "" {
			return copyMap(pipelineInput)
		}
		if nested, ok := pipelineInput[mapping.Key].(map[string]interface{}); ok {
			return copyMap(nested)
		}
		if value, ok := pipelineInput[mapping.Key]; ok {
			return map[string]interface{}{mapping.Key: value}
		}
		return map[string]interface{}{}
	}
}

// applyOutput routes a successful stage's data. The accumulator holds
// everything downstream stages may read; only pipeline_output replaces the
// execution's final output.
func (ex *execution) applyOutput(stage db.Stage, data map[string]interface{}) {
	switch stage.Output.Target {
	case db.OutputToPipeline:
		ex.output = copyMap(data)
	default: // next_stage and accumulator both land in the accumulator
		key := stage.Output.Key
		if key == "" {
			key = stage.Id
		}
		ex.accumulator[key] = copyMap(data)
	}
}

func copyMap(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
