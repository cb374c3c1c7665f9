// Package events carries lifecycle notifications between the orchestration
// components and their consumers. Consumers subscribe to typed topics on the
// bus; nothing in this layer registers ad hoc callbacks.
package events

import (
	"time"

	"github.com/google/uuid"
)

type Topic string

const (
	TopicAlgorithmRegistered  Topic = "algorithm.registered"
	TopicDeploymentSucceeded  Topic = "deployment.succeeded"
	TopicDeploymentFailed     Topic = "deployment.failed"
	TopicDeploymentRolledBack Topic = "deployment.rolled_back"
	TopicPipelineRegistered   Topic = "pipeline.registered"
	TopicPipelineCompleted    Topic = "pipeline.completed"
	TopicPipelineFailed       Topic = "pipeline.failed"
	TopicAlertTriggered       Topic = "alert.triggered"
	TopicAlertResolved        Topic = "alert.resolved"
	TopicTestStarted          Topic = "abtest.started"
	TopicTestStopped          Topic = "abtest.stopped"
)

type Event struct {
	Id            string                 `json:"id"`
	Topic         Topic                  `json:"topic"`
	Source        string                 `json:"source"`
	CorrelationId string                 `json:"correlation_id,omitempty"`
	Time          time.Time              `json:"time"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

func NewEvent(topic Topic, source string, payload map[string]interface{}) Event {
	return Event{
		Id:      uuid.New().String(),
		Topic:   topic,
		Source:  source,
		Time:    time.Now(),
		Payload: payload,
	}
}
