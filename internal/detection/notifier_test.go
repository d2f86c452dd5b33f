// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package detection

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func sampleAlert() *Alert {
	return &Alert{
		RuleName: HackerTeamName,
		Severity: SeverityHigh,
		Message:  `Team "hackers" created by eve matches suspicious name pattern`,
		Metadata: map[string]interface{}{
			"teamName": "hackers",
			"creator":  "eve",
		},
	}
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewConsoleNotifierTo(&buf)

	if n.Name() != "console" {
		t.Errorf("Name() = %q", n.Name())
	}
	if err := n.Notify(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "[high]") {
		t.Errorf("output missing severity header: %q", out)
	}
	if !strings.Contains(out, HackerTeamName) {
		t.Errorf("output missing rule name: %q", out)
	}
	if !strings.Contains(out, colorRed) {
		t.Errorf("high severity should print in red: %q", out)
	}
	if !strings.Contains(out, `"teamName": "hackers"`) {
		t.Errorf("output missing metadata: %q", out)
	}
}

func TestSeverityColor(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityLow, colorBlue},
		{SeverityMedium, colorYellow},
		{SeverityHigh, colorRed},
		{SeverityCritical, colorMagenta},
		{Severity("unknown"), colorReset},
	}
	for _, tt := range tests {
		if got := severityColor(tt.severity); got != tt.want {
			t.Errorf("severityColor(%q) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}

func TestWebhookNotifier(t *testing.T) {
	var received *Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		var alert Alert
		if err := json.Unmarshal(body, &alert); err != nil {
			t.Errorf("decode posted alert: %v", err)
		}
		received = &alert
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if n.Name() != "webhook" {
		t.Errorf("Name() = %q", n.Name())
	}
	if err := n.Notify(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if received == nil || received.RuleName != HackerTeamName {
		t.Errorf("posted alert = %+v", received)
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Notify(context.Background(), sampleAlert()); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestWebhookNotifierUnreachable(t *testing.T) {
	n := NewWebhookNotifier("http://127.0.0.1:1/alerts")
	if err := n.Notify(context.Background(), sampleAlert()); err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}
