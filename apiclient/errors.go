package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxErrorBody = 64 << 10

// StatusError is returned for any non-2xx response that the client does not recover from.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	if d := e.Detail(); d != "" {
		return fmt.Sprintf("request failed: %s: %s", e.Status, d)
	}
	return fmt.Sprintf("request failed: %s", e.Status)
}

// Detail returns the `detail` field of a REST framework error body, if present.
func (e *StatusError) Detail() string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	return body.Detail
}

func newStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
	}
}
