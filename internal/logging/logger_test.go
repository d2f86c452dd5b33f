// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetLoggerCapturesOutput(t *testing.T) {
	orig := Logger()
	defer SetLogger(orig)

	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))

	Info().Str("delivery_id", "d-1").Msg("Webhook queued")

	out := buf.String()
	if !strings.Contains(out, `"delivery_id":"d-1"`) {
		t.Errorf("output missing field: %q", out)
	}
	if !strings.Contains(out, "Webhook queued") {
		t.Errorf("output missing message: %q", out)
	}
}

func TestWatermillAdapter(t *testing.T) {
	orig := Logger()
	defer SetLogger(orig)

	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	SetLevelString("trace")
	defer SetLevelString("info")

	adapter := NewWatermillAdapter()
	adapter.Info("Message published", map[string]interface{}{"topic": "webhooks.github.push"})

	out := buf.String()
	if !strings.Contains(out, "Message published") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "webhooks.github.push") {
		t.Errorf("output missing field: %q", out)
	}

	buf.Reset()
	child := adapter.With(map[string]interface{}{"handler": "webhook-processor"})
	child.Debug("Handler started", nil)
	if !strings.Contains(buf.String(), "webhook-processor") {
		t.Errorf("With() fields not carried: %q", buf.String())
	}
}
