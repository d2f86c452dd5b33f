// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package github

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// TopicPrefix is the subject prefix for queued webhook jobs. The full topic
// is TopicPrefix + "." + event type, all under the stream's "webhooks.>"
// subject space.
const TopicPrefix = "webhooks.github"

// Job is the queue envelope for an accepted delivery. The raw payload rides
// along untouched so the worker parses exactly the bytes GitHub signed.
type Job struct {
	DeliveryID string          `json:"delivery_id"`
	EventType  EventType       `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// NewJob builds a Job for an allow-listed delivery.
func NewJob(deliveryID string, eventType EventType, payload []byte) *Job {
	return &Job{
		DeliveryID: deliveryID,
		EventType:  eventType,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}
}

// ValidationError describes a Job field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid job: %s %s", e.Field, e.Message)
}

// Validate checks the envelope before publish or processing.
func (j *Job) Validate() error {
	if j.DeliveryID == "" {
		return &ValidationError{Field: "delivery_id", Message: "is required"}
	}
	if !Supported(string(j.EventType)) {
		return &ValidationError{Field: "event_type", Message: fmt.Sprintf("%q is not supported", j.EventType)}
	}
	if len(j.Payload) == 0 {
		return &ValidationError{Field: "payload", Message: "is empty"}
	}
	return nil
}

// Topic returns the NATS subject this job publishes to.
func (j *Job) Topic() string {
	return TopicPrefix + "." + string(j.EventType)
}

// Event parses the payload into the typed union.
func (j *Job) Event() (*Event, error) {
	return ParseEvent(j.EventType, j.Payload)
}

// Marshal serializes the job for transport.
func (j *Job) Marshal() ([]byte, error) {
	return json.Marshal(j)
}

// UnmarshalJob decodes and validates a transported job.
func UnmarshalJob(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}
