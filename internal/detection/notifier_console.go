// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package detection

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
)

// ANSI color codes per severity.
const (
	colorBlue    = "\033[34m"
	colorYellow  = "\033[33m"
	colorRed     = "\033[31m"
	colorMagenta = "\033[35m"
	colorReset   = "\033[0m"
)

// ConsoleNotifier prints alerts to a writer with severity-colored headers.
// It is the default sink when no external notifier is configured.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleNotifier writes to stdout.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{out: os.Stdout}
}

// NewConsoleNotifierTo writes to the given writer. Useful for tests.
func NewConsoleNotifierTo(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: w}
}

// Name implements Notifier.
func (n *ConsoleNotifier) Name() string { return "console" }

// Notify implements Notifier.
func (n *ConsoleNotifier) Notify(ctx context.Context, alert *Alert) error {
	meta, err := json.MarshalIndent(alert.Metadata, "", "  ")
	if err != nil {
		meta = []byte("{}")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	_, err = fmt.Fprintf(n.out, "%s[%s]%s %s\n%s\n%s\n",
		severityColor(alert.Severity),
		alert.Severity,
		colorReset,
		alert.RuleName,
		alert.Message,
		meta,
	)
	return err
}

func severityColor(s Severity) string {
	switch s {
	case SeverityLow:
		return colorBlue
	case SeverityMedium:
		return colorYellow
	case SeverityHigh:
		return colorRed
	case SeverityCritical:
		return colorMagenta
	default:
		return colorReset
	}
}
