// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/logging"
)

// APIError is the error payload of an error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the JSON envelope for all gateway responses.
type Response struct {
	Status     string    `json:"status"`
	DeliveryID string    `json:"delivery_id,omitempty"`
	Error      *APIError `json:"error,omitempty"`
}

// sanitizeLogValue replaces control characters in user-supplied strings so
// a crafted header cannot forge or corrupt log entries.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON writes a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError writes an error envelope, logging the underlying cause.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("Request rejected")
	}

	respondJSON(w, status, &Response{
		Status: "error",
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}
