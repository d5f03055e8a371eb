package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Error is a non-2xx API response.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
	Body    string
}

func newError(method, path string, status int, raw []byte) *Error {
	body := strings.TrimSpace(string(raw))
	return &Error{
		Method:  method,
		Path:    path,
		Status:  status,
		Message: serverMessage(body),
		Body:    body,
	}
}

// serverMessage pulls the human message out of the API's error envelope.
// The API answers {"message": ...} and older handlers {"error": ...}.
func serverMessage(body string) string {
	if body == "" || !gjson.Valid(body) {
		return ""
	}
	for _, field := range []string{"message", "error", "error.message"} {
		if v := gjson.Get(body, field); v.Type == gjson.String {
			if msg := strings.TrimSpace(v.String()); msg != "" {
				return msg
			}
		}
	}
	return ""
}

func (e *Error) Error() string {
	text := e.Message
	if text == "" {
		text = http.StatusText(e.Status)
	}
	return fmt.Sprintf("apiclient: %s %s: %d %s", e.Method, e.Path, e.Status, text)
}

// StatusCode returns the HTTP status of err when it wraps an *Error, else 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message returns the server-provided message carried by err, or fallback
// when err is not an API error or the server sent none.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsNotFound reports a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
