package response

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-chat-be/internal/pkg/logger"
	"doc-chat-be/pkg/apperrors"
	"doc-chat-be/pkg/llm"
	"doc-chat-be/pkg/rag/search"
)

type stubLLM struct {
	response string
	err      error
	delay    time.Duration
	calls    int32
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.Generate(ctx, "", options...)
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.response, s.err
}

func newTestGenerator(stub *stubLLM, cfg Config) *Generator {
	return NewGenerator(stub, logger.NewNopLogger(), cfg)
}

func TestGenerate_SentinelShortCircuit(t *testing.T) {
	stub := &stubLLM{response: "should never be seen"}
	gen := newTestGenerator(stub, DefaultConfig())

	for _, block := range []string{"", "   ", search.NoContextSentinel} {
		res := gen.Generate(context.Background(), "what is this?", block)
		assert.Equal(t, MsgNoRelevantInfo, res.Answer)
		assert.False(t, res.Degraded)
	}

	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.calls), "model must not be called without context")
}

func TestGenerate_GroundedAnswer(t *testing.T) {
	stub := &stubLLM{response: "The revenue was $5M in 2023."}
	gen := newTestGenerator(stub, DefaultConfig())

	res := gen.Generate(context.Background(), "what was the revenue?", "[doc.pdf | relevance: 0.91]\nRevenue: $5M (2023)")

	require.False(t, res.Degraded)
	assert.Equal(t, "The revenue was $5M in 2023.", res.Answer)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.calls))
}

func TestGenerate_TimeoutProducesApology(t *testing.T) {
	stub := &stubLLM{response: "too late", delay: 200 * time.Millisecond}
	gen := newTestGenerator(stub, Config{Timeout: 20 * time.Millisecond, MaxAnswerLen: 4000})

	res := gen.Generate(context.Background(), "q", "some context")

	assert.True(t, res.Degraded)
	assert.Equal(t, apperrors.KindTimeout, res.Kind)
	assert.Equal(t, MsgTimeout, res.Answer)
}

func TestGenerate_QuotaError(t *testing.T) {
	stub := &stubLLM{err: errors.New("API returned status 429: quota exceeded")}
	gen := newTestGenerator(stub, DefaultConfig())

	res := gen.Generate(context.Background(), "q", "some context")

	assert.True(t, res.Degraded)
	assert.Equal(t, apperrors.KindAPI, res.Kind)
	assert.Equal(t, MsgQuota, res.Answer)
}

func TestGenerate_AuthError(t *testing.T) {
	stub := &stubLLM{err: errors.New("API returned status 401: invalid api key")}
	gen := newTestGenerator(stub, DefaultConfig())

	res := gen.Generate(context.Background(), "q", "some context")

	assert.True(t, res.Degraded)
	assert.Equal(t, apperrors.KindAPI, res.Kind)
	assert.Equal(t, MsgAuthConfig, res.Answer)
}

func TestGenerate_EmptyResponseIsFailure(t *testing.T) {
	stub := &stubLLM{response: "   "}
	gen := newTestGenerator(stub, DefaultConfig())

	res := gen.Generate(context.Background(), "q", "some context")

	assert.True(t, res.Degraded)
	assert.Equal(t, apperrors.KindLLM, res.Kind)
	assert.Equal(t, MsgGeneric, res.Answer)
}

func TestGenerate_TruncatesLongAnswers(t *testing.T) {
	long := strings.Repeat("a", 500)
	stub := &stubLLM{response: long}
	gen := newTestGenerator(stub, Config{Timeout: time.Second, MaxAnswerLen: 100})

	res := gen.Generate(context.Background(), "q", "some context")

	require.False(t, res.Degraded)
	assert.True(t, strings.HasSuffix(res.Answer, TruncationNotice))
	assert.Equal(t, 100, len([]rune(strings.TrimSuffix(res.Answer, TruncationNotice))))
}

func TestGenerate_GenericRefusalGetsDisclaimer(t *testing.T) {
	stub := &stubLLM{response: "I don't have enough information about that topic."}
	gen := newTestGenerator(stub, DefaultConfig())

	res := gen.Generate(context.Background(), "q", "some context")

	require.False(t, res.Degraded)
	assert.True(t, strings.HasSuffix(res.Answer, GroundingDisclaimer))
}

func TestBuildGroundedPrompt_ContainsPieces(t *testing.T) {
	gen := newTestGenerator(&stubLLM{}, DefaultConfig())

	prompt := gen.buildGroundedPrompt("what is X?", "[a.txt | relevance: 0.80]\nX is Y.")

	assert.Contains(t, prompt, "<reference_material>")
	assert.Contains(t, prompt, "X is Y.")
	assert.Contains(t, prompt, "what is X?")
	assert.Contains(t, prompt, "ONLY")
}
