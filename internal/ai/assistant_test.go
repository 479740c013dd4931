package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssistant_Reply(t *testing.T) {
	t.Run("cleans the model answer", func(t *testing.T) {
		gen := GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
			assert.Equal(t, "hello", prompt)
			return "## Title\n**Hi** there", nil
		})
		a := NewAssistant(gen, nil, time.Second)
		assert.Equal(t, "Hi there", a.Reply(context.Background(), "hello"))
	})

	t.Run("model error falls back", func(t *testing.T) {
		gen := GeneratorFunc(func(context.Context, string) (string, error) {
			return "", errors.New("quota exceeded")
		})
		a := NewAssistant(gen, nil, time.Second)
		assert.Equal(t, FallbackReply, a.Reply(context.Background(), "hello"))
	})

	t.Run("empty answer falls back", func(t *testing.T) {
		gen := GeneratorFunc(func(context.Context, string) (string, error) {
			return "  \n ", nil
		})
		a := NewAssistant(gen, nil, time.Second)
		assert.Equal(t, FallbackReply, a.Reply(context.Background(), "hello"))
	})

	t.Run("slow model times out", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		gen := GeneratorFunc(func(context.Context, string) (string, error) {
			<-release
			return "too late", nil
		})
		a := NewAssistant(gen, nil, 20*time.Millisecond)

		start := time.Now()
		assert.Equal(t, FallbackReply, a.Reply(context.Background(), "hello"))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("nil generator is unavailable", func(t *testing.T) {
		a := NewAssistant(nil, nil, time.Second)
		assert.Equal(t, FallbackReply, a.Reply(context.Background(), "hello"))
		_, err := a.Recommend(context.Background(), "pick")
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestAssistant_Recommend(t *testing.T) {
	rec := GeneratorFunc(func(context.Context, string) (string, error) {
		return "  Food \n", nil
	})
	a := NewAssistant(nil, rec, time.Second)

	answer, err := a.Recommend(context.Background(), "pick one")
	require.NoError(t, err)
	assert.Equal(t, "Food", answer)
}

func TestBreakerGenerator(t *testing.T) {
	calls := 0
	failing := GeneratorFunc(func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("upstream down")
	})
	b := NewBreakerGenerator("test-breaker", failing, BreakerSettings{
		MaxConsecutiveFailures: 2,
		OpenTimeout:            time.Minute,
		HalfOpenRequests:       1,
	})

	for i := 0; i < 2; i++ {
		_, err := b.Generate(context.Background(), "x")
		assert.EqualError(t, err, "upstream down")
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnavailable)
}
