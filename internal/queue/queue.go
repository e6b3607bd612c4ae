// Package queue connects the pipeline stages over a watermill event bus:
// named topics carry content identifiers between collection, translation and
// analysis with at-least-once delivery.
package queue

import (
	"encoding/json"
	"fmt"
)

// Task topics. Translate tasks feed the translation stage, which on success
// emits an analyse task; analyse tasks are terminal. Tasks that exhaust their
// retries are parked on the poison topic for operator inspection.
const (
	TopicTranslate = "content.translate"
	TopicAnalyse   = "content.analyse"
	TopicPoison    = "content.poison"
)

// Task is the payload every topic carries: a reference to one content row.
type Task struct {
	ContentID uint `json:"content_id"`
}

// EncodeTask serializes a task payload
func EncodeTask(task Task) ([]byte, error) {
	return json.Marshal(task)
}

// DecodeTask parses a task payload
func DecodeTask(payload []byte) (Task, error) {
	var task Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return Task{}, fmt.Errorf("malformed task payload: %w", err)
	}
	if task.ContentID == 0 {
		return Task{}, fmt.Errorf("malformed task payload: missing content_id")
	}
	return task, nil
}
