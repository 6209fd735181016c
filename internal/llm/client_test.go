package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hangingClient blocks until the caller's context expires, like a stalled
// provider call.
type hangingClient struct {
	closed bool
}

func (c *hangingClient) Generate(ctx context.Context, _ string, _ float32, _ int) (string, error) {
	<-ctx.Done()
	return "", wrapGenerateError(ctx.Err())
}

func (c *hangingClient) GenerateJSON(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	return c.Generate(ctx, prompt, temperature, maxTokens)
}

func (c *hangingClient) Close() error {
	c.closed = true
	return nil
}

func TestWithTimeout(t *testing.T) {
	t.Run("hung call is cut off with a timeout error", func(t *testing.T) {
		client := WithTimeout(&hangingClient{}, 20*time.Millisecond)

		start := time.Now()
		_, err := client.Generate(context.Background(), "prompt", 0.7, 100)
		require.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)

		var llmErr *Error
		require.True(t, errors.As(err, &llmErr))
		assert.Equal(t, KindTimeout, llmErr.Kind)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("generate json carries the deadline too", func(t *testing.T) {
		client := WithTimeout(&hangingClient{}, 20*time.Millisecond)

		_, err := client.GenerateJSON(context.Background(), "prompt", 0.1, 100)
		var llmErr *Error
		require.True(t, errors.As(err, &llmErr))
		assert.Equal(t, KindTimeout, llmErr.Kind)
	})

	t.Run("caller deadline still wins when shorter", func(t *testing.T) {
		client := WithTimeout(&hangingClient{}, time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := client.Generate(ctx, "prompt", 0.7, 100)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("non-positive timeout leaves the client unwrapped", func(t *testing.T) {
		inner := &hangingClient{}
		assert.Same(t, Client(inner), WithTimeout(inner, 0))
	})

	t.Run("close passes through", func(t *testing.T) {
		inner := &hangingClient{}
		require.NoError(t, WithTimeout(inner, time.Second).Close())
		assert.True(t, inner.closed)
	})
}
