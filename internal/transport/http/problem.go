package transporthttp

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Problem is the error body shape returned by the backend on failures.
// Only the fields present are populated; plain text bodies are kept in Detail.
type Problem struct {
	Title   string `json:"title,omitempty"`
	Status  int    `json:"status,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Problem    Problem
}

func (e *StatusError) Error() string {
	msg := firstNonEmpty(e.Problem.Detail, e.Problem.Message, e.Problem.Error, e.Problem.Title)
	if msg == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, msg)
}

// DescribeFailure turns a non-2xx response into a StatusError.
func DescribeFailure(status int, body []byte) error {
	var p Problem
	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "{") {
		_ = json.Unmarshal([]byte(text), &p)
	} else if text != "" {
		if len(text) > 200 {
			text = text[:200]
		}
		p.Detail = text
	}
	return &StatusError{StatusCode: status, Problem: p}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
