package ai

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"snapgram/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// FallbackReply is sent to the user whenever the model cannot answer.
const FallbackReply = "Sorry, I'm having trouble responding right now."

const (
	kindChat      = "chat"
	kindRecommend = "recommend"
)

// Assistant bounds every model call with a timeout and records its outcome.
type Assistant struct {
	chat      TextGenerator
	recommend TextGenerator
	timeout   time.Duration
}

// NewAssistant returns an Assistant using chat for replies and recommend
// for category picks. A nil generator behaves like Unavailable.
func NewAssistant(chat, recommend TextGenerator, timeout time.Duration) *Assistant {
	if chat == nil {
		chat = Unavailable
	}
	if recommend == nil {
		recommend = Unavailable
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Assistant{chat: chat, recommend: recommend, timeout: timeout}
}

// Reply answers a chat prompt. It never fails: any model error, timeout or
// empty answer yields FallbackReply.
func (a *Assistant) Reply(ctx context.Context, prompt string) string {
	text, err := a.call(ctx, kindChat, a.chat, prompt)
	if err != nil {
		slog.WarnContext(ctx, "assistant reply failed", slog.String("error", err.Error()))
		return FallbackReply
	}
	text = CleanText(text)
	if text == "" {
		return FallbackReply
	}
	return text
}

// Recommend returns the model's raw answer to a recommendation prompt.
func (a *Assistant) Recommend(ctx context.Context, prompt string) (string, error) {
	return a.call(ctx, kindRecommend, a.recommend, prompt)
}

func (a *Assistant) call(ctx context.Context, kind string, gen TextGenerator, prompt string) (text string, err error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ctx, span := observability.StartClientSpan(ctx, "ai.generate",
		attribute.String("ai.kind", kind),
		attribute.Int("ai.prompt_length", len(prompt)),
	)
	start := time.Now()
	defer func() {
		outcome := "success"
		switch {
		case err == nil:
		case ctx.Err() != nil:
			outcome = "timeout"
		default:
			outcome = "error"
		}
		observability.ObserveAICall(kind, outcome, start)
		observability.EndSpan(span, err)
	}()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		t, e := gen.Generate(ctx, prompt)
		done <- result{t, e}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		return strings.TrimSpace(r.text), nil
	}
}
