package log

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestErrorWithTraceID(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	assert.Equal(t, "req-42", ErrorWithTraceID(Fields{RequestIDKey: "req-42"}, "boom"))

	traceID := ErrorWithTraceID(nil, "boom")
	_, err := uuid.Parse(traceID)
	assert.NoError(t, err)
}

func TestWithRequestID(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	ctx := context.WithValue(context.Background(), RequestIDKey, "abc")
	assert.Equal(t, "abc", WithRequestID(ctx).Data[RequestIDKey])
	assert.Equal(t, "unknown", WithRequestID(context.Background()).Data[RequestIDKey])
}
