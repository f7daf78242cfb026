package upstream

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorMessage(t *testing.T) {
	withMessage := &APIError{Method: "GET", Path: "/Customers/1", StatusCode: 404, Message: "bad customer id"}
	assert.Equal(t, "bad customer id", withMessage.Error())

	raw := &APIError{Method: "GET", Path: "/Customers/1", StatusCode: 404, Status: "Not Found", Body: `{"x":1}`}
	assert.Equal(t, `GET /Customers/1: 404 Not Found: {"x":1}`, raw.Error())
}

func TestClassifyTransport(t *testing.T) {
	err := ClassifyTransport("GET", "http://x", fmt.Errorf("do: %w", context.DeadlineExceeded))
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.True(t, te.Timeout)
	assert.True(t, te.Retryable())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = ClassifyTransport("GET", "http://x", errors.New("connection refused"))
	require.True(t, errors.As(err, &te))
	assert.False(t, te.Timeout)

	err = ClassifyTransport("GET", "http://x", context.Canceled)
	assert.False(t, errors.As(err, &te))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"bad customer id"}`, "bad customer id"},
		{"message field", `{"message":"lower"}`, "lower"},
		{"Message field", `{"Message":"upper"}`, "upper"},
		{"preference", `{"Message":"c","message":"b","error":"a"}`, "a"},
		{"empty error skipped", `{"error":"","message":"b"}`, "b"},
		{"non string error", `{"error":{"code":1},"Message":"upper"}`, "upper"},
		{"no fields", `{"detail":"x"}`, "request failed with status 500"},
		{"not json", `<html>oops</html>`, "request failed with status 500"},
		{"empty", ``, "request failed with status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorMessage([]byte(tt.body), 500))
		})
	}
}
