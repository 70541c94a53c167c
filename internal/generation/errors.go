package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/edutools-backend/internal/platform/httpx"
)

const (
	OpText  = "text generation"
	OpImage = "image generation"
	OpVideo = "video generation"
)

const QuotaExceededMessage = "The request could not be completed because the API quota has been exceeded. " +
	"Please check your plan and billing details with Google AI Studio."

var (
	ErrNoText       = errors.New("No text content found in the response.")
	ErrNoImage      = errors.New("No image data found in the response.")
	ErrNoVideo      = errors.New("No video URI found in the completed operation.")
	ErrVideoTimeout = errors.New("video generation timed out")
)

// Error is the only error type backends return. Message is safe to show to end users.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// QuotaExceeded reports whether the backend rejected the call for quota reasons.
func (e *Error) QuotaExceeded() bool {
	return e != nil && e.Status == http.StatusTooManyRequests
}

// APIError is a non-2xx response from a backend API. Body usually holds a JSON error object.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type errorDetail struct {
	Code    json.RawMessage `json:"code"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
}

type errorBody struct {
	Error *errorDetail `json:"error"`
}

// Describe wraps err as an *Error for op. Any 429 gets QuotaExceededMessage. Otherwise a JSON
// error object embedded in the error text decides the message: quota exhaustion gets QuotaExceededMessage, any other message becomes
// "API Error: <message>". Everything else reads "An error occurred during <op>: <err>".
func Describe(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	out := &Error{
		Op:      op,
		Message: fmt.Sprintf("An error occurred during %s: %s", op, err.Error()),
		Err:     err,
	}
	var sc httpx.HTTPStatusCoder
	if errors.As(err, &sc) {
		out.Status = sc.HTTPStatusCode()
	}
	if out.Status == http.StatusTooManyRequests {
		out.Message = QuotaExceededMessage
		return out
	}

	detail := embeddedError(err.Error())
	if detail == nil {
		return out
	}
	code := strings.Trim(strings.TrimSpace(string(detail.Code)), `"`)
	switch {
	case detail.Status == "RESOURCE_EXHAUSTED" || code == "429":
		out.Status = http.StatusTooManyRequests
		out.Message = QuotaExceededMessage
	case detail.Message != "":
		out.Message = "API Error: " + detail.Message
	}
	return out
}

func embeddedError(s string) *errorDetail {
	i := strings.Index(s, "{")
	j := strings.LastIndex(s, "}")
	if i < 0 || j <= i {
		return nil
	}
	var body errorBody
	if err := json.Unmarshal([]byte(s[i:j+1]), &body); err != nil {
		return nil
	}
	return body.Error
}
