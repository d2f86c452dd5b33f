// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const testPoisonTopic = "dlq.webhooks"

func testRouter(t *testing.T, pubsub *gochannel.GoChannel, maxDeliver int) *Router {
	t.Helper()

	cfg := RouterConfig{
		CloseTimeout:     5 * time.Second,
		RetryMaxRetries:  maxDeliver,
		RetryBase:        time.Millisecond,
		RetryCap:         time.Millisecond,
		PoisonQueueTopic: testPoisonTopic,
	}
	r, err := NewRouter(cfg, pubsub, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}

// A delivery that fails on early attempts must be retried in place, not
// dead-lettered on the first error.
func TestRouterRetriesBeforeDeadLettering(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	router := testRouter(t, pubsub, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deadLetters, err := pubsub.Subscribe(ctx, testPoisonTopic)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	var calls atomic.Int64
	succeeded := make(chan struct{})
	router.AddConsumerHandler("flaky", "webhooks.github", pubsub, func(msg *message.Message) error {
		if calls.Add(1) < 3 {
			return errors.New("transient store failure")
		}
		close(succeeded)
		return nil
	})

	<-router.RunAsync(ctx)
	defer router.Close()

	if !router.IsRunning() {
		t.Error("IsRunning() = false after startup")
	}

	if err := pubsub.Publish("webhooks.github", message.NewMessage("d-1", []byte(`{}`))); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-succeeded:
	case <-time.After(5 * time.Second):
		t.Fatalf("handler never succeeded, called %d times", calls.Load())
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("handler called %d times, want 3", got)
	}

	select {
	case msg := <-deadLetters:
		t.Fatalf("message %s dead-lettered despite eventual success", msg.UUID)
	case <-time.After(200 * time.Millisecond):
	}
}

// Only a delivery that has exhausted every attempt reaches the dead letter
// topic.
func TestRouterDeadLettersAfterExhaustedRetries(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	router := testRouter(t, pubsub, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deadLetters, err := pubsub.Subscribe(ctx, testPoisonTopic)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	var calls atomic.Int64
	router.AddConsumerHandler("broken", "webhooks.github", pubsub, func(msg *message.Message) error {
		calls.Add(1)
		return errors.New("permanent failure")
	})

	<-router.RunAsync(ctx)
	defer router.Close()

	if err := pubsub.Publish("webhooks.github", message.NewMessage("d-2", []byte(`{}`))); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-deadLetters:
		msg.Ack()
		if msg.UUID != "d-2" {
			t.Errorf("dead-lettered UUID = %s, want d-2", msg.UUID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("exhausted delivery never reached the dead letter topic")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("handler called %d times, want all 3 attempts before dead-lettering", got)
	}
}
