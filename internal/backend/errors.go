// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusCustom is the status the backend uses for errors that carry a
// structured payload meant for custom display.
const StatusCustom = 520

// Error is a non-successful backend answer. Status and Data are kept exactly
// as received so UI code can special-case a status value.
type Error struct {
	// Op names the backend operation, e.g. "login".
	Op string
	// Status is the HTTP status code.
	Status int
	// Data is the raw response body.
	Data json.RawMessage
	// Message is the "message" field of a JSON object body, the trimmed body
	// text, or the HTTP status text, in that order.
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.Status, e.Message)
}

// IsStatus reports whether err is a backend *Error with the given status.
func IsStatus(err error, status int) bool {
	var be *Error
	return errors.As(err, &be) && be.Status == status
}

// newError builds an *Error from a raw response body.
func newError(op string, status int, body []byte) *Error {
	return &Error{
		Op:      op,
		Status:  status,
		Data:    rawOrString(body),
		Message: extractMessage(body, status),
	}
}

// extractMessage picks a human-readable message out of an error body.
func extractMessage(body []byte, status int) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"message", "error", "type"} {
			if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && !json.Valid(body) {
		return text
	}
	return http.StatusText(status)
}

// rawOrString keeps valid JSON as-is and encodes anything else as a JSON string,
// so Data is always valid JSON (or nil for an empty body).
func rawOrString(body []byte) json.RawMessage {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	b, _ := json.Marshal(string(body))
	return json.RawMessage(b)
}
