// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/github"
)

type mockProcessor struct {
	err  error
	jobs []*github.Job
}

func (m *mockProcessor) Process(ctx context.Context, job *github.Job) error {
	m.jobs = append(m.jobs, job)
	return m.err
}

func jobMessage(t *testing.T, job *github.Job) *message.Message {
	t.Helper()
	payload, err := job.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return message.NewMessage(job.DeliveryID, payload)
}

func TestHandlerDispatchesJob(t *testing.T) {
	proc := &mockProcessor{}
	h := NewHandler(proc)

	job := teamJob("d-10")
	if err := h.Handle(jobMessage(t, job)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(proc.jobs) != 1 || proc.jobs[0].DeliveryID != "d-10" {
		t.Fatalf("processor got %+v", proc.jobs)
	}
	processed, failed, malformed := h.Stats()
	if processed != 1 || failed != 0 || malformed != 0 {
		t.Errorf("Stats() = %d/%d/%d", processed, failed, malformed)
	}
}

func TestHandlerAcksUndecodableEnvelope(t *testing.T) {
	proc := &mockProcessor{}
	h := NewHandler(proc)

	msg := message.NewMessage("garbage", []byte(`not a job`))
	if err := h.Handle(msg); err != nil {
		t.Fatalf("undecodable envelope must be acked, got %v", err)
	}
	if len(proc.jobs) != 0 {
		t.Errorf("processor must not see undecodable envelopes")
	}
	_, _, malformed := h.Stats()
	if malformed != 1 {
		t.Errorf("malformed = %d, want 1", malformed)
	}
}

func TestHandlerPropagatesProcessorError(t *testing.T) {
	wantErr := errors.New("store down")
	h := NewHandler(&mockProcessor{err: wantErr})

	if err := h.Handle(jobMessage(t, teamJob("d-11"))); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want processor error", err)
	}
	_, failed, _ := h.Stats()
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
}
