// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// signaturePrefix is the scheme tag GitHub prepends to the hex digest.
const signaturePrefix = "sha256="

// verifySignature checks the X-Hub-Signature-256 header against the HMAC of
// the raw request body. The expected value is "sha256=" followed by the hex
// digest of HMAC-SHA256(secret, body).
//
// Length is compared first so obviously malformed headers short-circuit;
// the digest comparison itself is constant time.
func verifySignature(secret string, body []byte, header string) bool {
	if header == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := signaturePrefix + hex.EncodeToString(mac.Sum(nil))

	if len(header) != len(expected) {
		return false
	}
	return hmac.Equal([]byte(header), []byte(expected))
}
