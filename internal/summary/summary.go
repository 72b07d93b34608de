// Package summary writes short popular-science summaries of papers with a
// text oracle.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-ranking-service/internal/domain"
	"github.com/helixir/paper-ranking-service/internal/oracle"
)

// Texts returned to clients in place of a summary.
const (
	// Unavailable is used when there is nothing to summarize.
	Unavailable = "无法生成总结"
	// Failed is used when the oracle call fails.
	Failed = "总结生成失败"
)

// DefaultPromptTemplate receives the paper block as %s.
const DefaultPromptTemplate = `一篇论文的详细信息为%s；
请帮我对该论文进行总结，格式要求如下：
先用一段话介绍以往的研究背景和尚未解决的问题；
再介绍这项研究的方法，研究方法部分要具体；
然后介绍主要发现，主要发现的内容多一些；
最后用一段话总结研究的意义和作者强调的局限。
只根据论文具体内容回答，不要联想，论文中没有提到的内容不要出现，不要出现"可能"。
可以适当添加一些小表情，语言轻松有趣，只输出总结内容，不要输出别的内容。`

// DefaultTimeout bounds a single summary request.
const DefaultTimeout = 90 * time.Second

// Input is the paper to summarize.
type Input struct {
	Title    string
	URL      string
	Abstract string
}

// Block renders the paper as the "title/url/abstract" block embedded in
// the prompt.
func (in Input) Block() string {
	return fmt.Sprintf("title:%s\nurl:%s\nabstract:%s",
		strings.TrimSpace(in.Title), strings.TrimSpace(in.URL), strings.TrimSpace(in.Abstract))
}

// Summarizer produces paper summaries.
type Summarizer struct {
	asker    oracle.Asker
	template string
	timeout  time.Duration
	logger   zerolog.Logger
}

// Config configures a Summarizer.
type Config struct {
	// PromptTemplate must contain exactly one %s. Empty uses
	// DefaultPromptTemplate.
	PromptTemplate string
	Timeout        time.Duration
}

// New creates a Summarizer.
func New(asker oracle.Asker, cfg Config, logger zerolog.Logger) *Summarizer {
	tmpl := cfg.PromptTemplate
	if tmpl == "" {
		tmpl = DefaultPromptTemplate
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Summarizer{
		asker:    asker,
		template: tmpl,
		timeout:  timeout,
		logger:   logger.With().Str("component", "summary").Logger(),
	}
}

// Prompt returns the full prompt for in.
func (s *Summarizer) Prompt(in Input) string {
	return fmt.Sprintf(s.template, in.Block())
}

// Summarize asks the oracle for a summary. A paper with neither title nor
// abstract is rejected with a validation error.
func (s *Summarizer) Summarize(ctx context.Context, in Input) (string, error) {
	if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Abstract) == "" {
		return "", domain.NewValidationError("paper_data", "title or abstract is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	answer, err := s.asker.Ask(ctx, s.Prompt(in))
	if err != nil {
		s.logger.Error().Err(err).Str("url", in.URL).Msg("summary generation failed")
		return "", fmt.Errorf("summarize: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("summarize: %w", oracle.ErrEmptyAnswer)
	}
	s.logger.Info().
		Str("url", in.URL).
		Int("length", len([]rune(answer))).
		Dur("duration", time.Since(start)).
		Msg("summary generated")
	return answer, nil
}
