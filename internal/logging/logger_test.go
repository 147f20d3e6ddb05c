package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	l := WithComponent("graph")
	l.Warn().Msg("breaker opened")

	assert.Contains(t, buf.String(), `"component":"graph"`)
	assert.Contains(t, buf.String(), `"message":"breaker opened"`)
}

func TestContextWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	ctx := ContextWithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	Ctx(ctx).Info().Msg("handled")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	generated := ContextWithRequestID(context.Background(), "")
	assert.NotEmpty(t, RequestID(generated))
	assert.Empty(t, RequestID(context.Background()))
}
