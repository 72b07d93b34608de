package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-ranking-service/internal/domain"
	"github.com/helixir/paper-ranking-service/internal/oracle"
)

type recordingAsker struct {
	answer      string
	err         error
	prompt      string
	hasDeadline bool
}

func (r *recordingAsker) Ask(ctx context.Context, prompt string) (string, error) {
	r.prompt = prompt
	_, r.hasDeadline = ctx.Deadline()
	return r.answer, r.err
}

func TestSummarizer_Summarize(t *testing.T) {
	in := Input{
		Title:    "Lactate clearance in septic shock",
		URL:      "https://pubmed.ncbi.nlm.nih.gov/36000001/",
		Abstract: "Lactate clearance predicted survival.",
	}

	t.Run("returns trimmed answer", func(t *testing.T) {
		asker := &recordingAsker{answer: "\n  这是一项关于乳酸清除率的研究 🧪\n"}
		s := New(asker, Config{}, zerolog.Nop())

		out, err := s.Summarize(context.Background(), in)

		require.NoError(t, err)
		assert.Equal(t, "这是一项关于乳酸清除率的研究 🧪", out)
		assert.Contains(t, asker.prompt, "title:Lactate clearance in septic shock\nurl:https://pubmed.ncbi.nlm.nih.gov/36000001/\nabstract:Lactate clearance predicted survival.")
		assert.True(t, asker.hasDeadline)
	})

	t.Run("custom template", func(t *testing.T) {
		asker := &recordingAsker{answer: "ok"}
		s := New(asker, Config{PromptTemplate: "Summarize: %s", Timeout: time.Second}, zerolog.Nop())

		_, err := s.Summarize(context.Background(), Input{Title: "T"})
		require.NoError(t, err)
		assert.Equal(t, "Summarize: title:T\nurl:\nabstract:", asker.prompt)
	})

	t.Run("empty paper is rejected without calling the oracle", func(t *testing.T) {
		asker := &recordingAsker{answer: "x"}
		s := New(asker, Config{}, zerolog.Nop())

		_, err := s.Summarize(context.Background(), Input{URL: "https://example.org"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, asker.prompt)
	})

	t.Run("oracle error is wrapped", func(t *testing.T) {
		cause := errors.New("upstream down")
		s := New(&recordingAsker{err: cause}, Config{}, zerolog.Nop())

		_, err := s.Summarize(context.Background(), in)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("blank answer is an error", func(t *testing.T) {
		s := New(&recordingAsker{answer: "  "}, Config{}, zerolog.Nop())

		_, err := s.Summarize(context.Background(), in)
		assert.ErrorIs(t, err, oracle.ErrEmptyAnswer)
	})
}
