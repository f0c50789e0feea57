// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass is the coarse category a provider failure maps to. The class
// selects the user-facing message sent over the chat stream; the raw error
// is only ever logged.
type ErrorClass int

const (
	// ClassUnknown covers everything not matched by a more specific class.
	ClassUnknown ErrorClass = iota

	// ClassRateLimited covers HTTP 429 and provider quota errors.
	ClassRateLimited

	// ClassBadRequest covers HTTP 400, 401 and 403: malformed requests and
	// credential failures. Both surface the provider detail to the user so
	// a misconfigured key is diagnosable from the chat window.
	ClassBadRequest
)

// String returns the metrics label for the class.
func (c ErrorClass) String() string {
	switch c {
	case ClassRateLimited:
		return "rate_limited"
	case ClassBadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

// ProviderError is a failure reported by an LLM backend with enough
// structure to classify it. StatusCode is the upstream HTTP status when one
// exists, zero otherwise. Detail is the provider's own message.
type ProviderError struct {
	StatusCode int
	Detail     string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("provider error: %s", e.Detail)
}

// RateLimitMessage is streamed verbatim when a request is throttled.
const RateLimitMessage = "⏱️ Traffic is high. Please wait 10 seconds before asking again."

// Classify maps a provider failure to its ErrorClass.
//
// # Description
//
// Structured errors are classified by status code: 429 is rate limiting,
// 400/401/403 are bad requests, anything else is unknown. Errors without a
// ProviderError in their chain fall back to substring matching on the error
// text, which keeps classification working for backends that only surface
// flat error strings.
//
// # Limitations
//
// The substring fallback can misclassify an error whose text incidentally
// contains "429" or "rate_limit". Structured errors never hit that path.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch provErr.StatusCode {
		case 429:
			return ClassRateLimited
		case 400, 401, 403:
			return ClassBadRequest
		}
		return ClassUnknown
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate_limit") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429") {
		return ClassRateLimited
	}
	return ClassUnknown
}

// UserMessage renders the user-facing text for a provider failure. The
// result is what gets streamed to the chat client in an error frame.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	detail := err.Error()
	var provErr *ProviderError
	if errors.As(err, &provErr) && provErr.Detail != "" {
		detail = provErr.Detail
	}

	switch Classify(err) {
	case ClassRateLimited:
		return RateLimitMessage
	case ClassBadRequest:
		return "API Error: " + detail
	default:
		return "Error: " + detail
	}
}
