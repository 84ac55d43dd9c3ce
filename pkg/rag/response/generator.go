package response

import (
	"context"
	"errors"
	"strings"
	"time"

	"doc-chat-be/internal/pkg/logger"
	"doc-chat-be/pkg/apperrors"
	"doc-chat-be/pkg/llm"
	"doc-chat-be/pkg/rag/search"
)

type Config struct {
	Timeout      time.Duration
	MaxAnswerLen int // runes; longer answers are truncated with a notice
}

func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxAnswerLen: 4000,
	}
}

// Result is the tagged outcome of a generation attempt. Degraded marks an
// apology answer produced from a failure category; the answer text is
// always safe to show the user.
type Result struct {
	Answer   string
	Degraded bool
	Kind     apperrors.Kind // failure category when Degraded
}

// Generator turns a question plus retrieved context into a grounded answer.
type Generator struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
	config      Config
}

func NewGenerator(llmProvider llm.LLMProvider, log logger.ILogger, config Config) *Generator {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxAnswerLen <= 0 {
		config.MaxAnswerLen = 4000
	}
	return &Generator{
		llmProvider: llmProvider,
		logger:      log,
		config:      config,
	}
}

// Generate answers the question strictly from the context block. A block
// that is empty or equals the "nothing found" sentinel short-circuits to a
// fixed response without spending a model call.
func (g *Generator) Generate(ctx context.Context, question, contextBlock string) Result {
	trimmed := strings.TrimSpace(contextBlock)
	if trimmed == "" || trimmed == search.NoContextSentinel {
		return Result{Answer: MsgNoRelevantInfo}
	}

	prompt := g.buildGroundedPrompt(question, contextBlock)

	answer, err := g.callModel(ctx, prompt)
	if err != nil {
		kind := categorizeError(err)
		g.logger.Error("generation", "model call failed", map[string]interface{}{
			"error": err.Error(),
			"kind":  string(kind),
		})
		return Result{Answer: apologyFor(kind, err), Degraded: true, Kind: kind}
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		// Distinct from a timeout: the provider replied with nothing.
		g.logger.Error("generation", "model returned empty response", nil)
		return Result{Answer: MsgGeneric, Degraded: true, Kind: apperrors.KindLLM}
	}

	return Result{Answer: g.postProcess(answer)}
}

// callModel races the provider call against the generation timeout. The
// loser is abandoned, not canceled: the goroutine writes into a buffered
// channel, so a late completion is a no-op rather than a state corruption.
func (g *Generator) callModel(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		text, err := g.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.3))
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case out := <-done:
		return out.text, out.err
	}
}

func (g *Generator) buildGroundedPrompt(question, contextBlock string) string {
	var prompt strings.Builder

	prompt.WriteString("<reference_material>\n")
	prompt.WriteString("CRITICAL: This is the ONLY data source. Do NOT use outside knowledge.\n")
	prompt.WriteString("Each passage is labeled with its source and relevance.\n\n")
	prompt.WriteString(contextBlock)
	prompt.WriteString("\n</reference_material>\n\n")

	prompt.WriteString("<task_instructions>\n")
	prompt.WriteString("You are a diligent assistant answering questions about an uploaded document.\n\n")
	prompt.WriteString("RULES (MUST FOLLOW):\n")
	prompt.WriteString("1. Answer ONLY using the text in <reference_material>.\n")
	prompt.WriteString("2. Answer in English, directly and concisely.\n")
	prompt.WriteString("3. If the material does not contain the answer, say so explicitly. Never fabricate.\n")
	prompt.WriteString("4. Quote exact values (numbers, dates, names) as they appear in the material.\n")
	prompt.WriteString("</task_instructions>\n\n")

	prompt.WriteString("<user_question>\n")
	prompt.WriteString(question)
	prompt.WriteString("\n</user_question>\n\n")

	prompt.WriteString("Answer:")

	return prompt.String()
}

// postProcess trims, caps length, and appends a grounding disclaimer when
// the model produced a generic refusal instead of engaging with the
// context.
func (g *Generator) postProcess(answer string) string {
	runes := []rune(answer)
	if len(runes) > g.config.MaxAnswerLen {
		answer = string(runes[:g.config.MaxAnswerLen]) + TruncationNotice
	}

	lower := strings.ToLower(answer)
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			return answer + GroundingDisclaimer
		}
	}
	return answer
}

// categorizeError buckets a provider failure into the small set of
// user-facing categories.
func categorizeError(err error) apperrors.Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.KindTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "resource_exhausted"):
		return apperrors.KindAPI
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"), strings.Contains(msg, "api key"), strings.Contains(msg, "unauthorized"), strings.Contains(msg, "permission"):
		return apperrors.KindAPI
	default:
		return apperrors.KindLLM
	}
}

// apologyFor maps a failure category to its canned user-facing message.
// The API bucket is split into quota vs. misconfiguration by peeking at
// the raw error, which the category alone cannot distinguish.
func apologyFor(kind apperrors.Kind, err error) string {
	switch kind {
	case apperrors.KindTimeout:
		return MsgTimeout
	case apperrors.KindAPI:
		if err != nil {
			msg := strings.ToLower(err.Error())
			if strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "permission") {
				return MsgAuthConfig
			}
		}
		return MsgQuota
	default:
		return MsgGeneric
	}
}
