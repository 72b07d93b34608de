// Package media produces the per-paper images shown next to search
// results: a screenshot of the article page and an AI illustration.
package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/paper-ranking-service/internal/observability"
)

// Item statuses.
const (
	StatusGenerated = "generated"
	StatusReused    = "reused"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// NotAvailable is shown in place of a missing image link.
const NotAvailable = "暂无"

// Request identifies the paper to illustrate.
type Request struct {
	PaperID  string `json:"paper_id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Abstract string `json:"abstract"`
}

// Item is the outcome for one image.
type Item struct {
	Kind   string `json:"kind"`
	Status string `json:"status"`
	// Path is the public path of the image; empty unless the status is
	// generated or reused.
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the image is available.
func (i Item) OK() bool {
	return i.Status == StatusGenerated || i.Status == StatusReused
}

// Result holds both images for a paper.
type Result struct {
	Key          string `json:"key"`
	Screenshot   Item   `json:"screenshot"`
	Illustration Item   `json:"illustration"`
}

// Message renders the result as the two-line summary returned by the API.
func (r Result) Message() string {
	link := func(i Item) string {
		if i.OK() {
			return i.Path
		}
		return NotAvailable
	}
	return fmt.Sprintf("主页截图链接:%s\n\nAI插图链接:%s", link(r.Screenshot), link(r.Illustration))
}

// Service generates and caches paper images. Either provider may be nil,
// in which case that image is skipped.
type Service struct {
	store         *Store
	screenshotter Screenshotter
	illustrator   Illustrator
	logger        zerolog.Logger
	metrics       *observability.Metrics
}

// NewService creates a media service.
func NewService(store *Store, screenshotter Screenshotter, illustrator Illustrator, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:         store,
		screenshotter: screenshotter,
		illustrator:   illustrator,
		logger:        logger.With().Str("component", "media").Logger(),
		metrics:       metrics,
	}
}

// Store returns the backing store.
func (s *Service) Store() *Store {
	return s.store
}

// Generate produces both images concurrently. Failures are reported per
// item; Generate itself only fails when ctx is done before it starts.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{Key: s.store.Key(req.PaperID, req.URL)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.Screenshot = s.captureScreenshot(gctx, res.Key, req)
		return nil
	})
	g.Go(func() error {
		res.Illustration = s.generateIllustration(gctx, res.Key, req)
		return nil
	})
	_ = g.Wait()

	s.logger.Info().
		Str("paper_id", req.PaperID).
		Str("key", res.Key).
		Str("screenshot", res.Screenshot.Status).
		Str("illustration", res.Illustration.Status).
		Msg("media generated")
	return res, nil
}

// CaptureScreenshot produces only the screenshot for req under key.
func (s *Service) CaptureScreenshot(ctx context.Context, key string, req Request) Item {
	return s.captureScreenshot(ctx, key, req)
}

// GenerateIllustration produces only the illustration for req under key.
func (s *Service) GenerateIllustration(ctx context.Context, key string, req Request) Item {
	return s.generateIllustration(ctx, key, req)
}

func (s *Service) captureScreenshot(ctx context.Context, key string, req Request) Item {
	pageURL := strings.TrimSpace(req.URL)
	if pageURL == "" {
		return Item{Kind: KindScreenshot, Status: StatusSkipped, Error: "paper has no url"}
	}
	if s.screenshotter == nil {
		return Item{Kind: KindScreenshot, Status: StatusSkipped, Error: "screenshot provider not configured"}
	}
	return s.produce(ctx, KindScreenshot, key, func(ctx context.Context) ([]byte, error) {
		return s.screenshotter.Capture(ctx, pageURL)
	})
}

func (s *Service) generateIllustration(ctx context.Context, key string, req Request) Item {
	if strings.TrimSpace(req.Title) == "" {
		return Item{Kind: KindIllustration, Status: StatusSkipped, Error: "paper has no title"}
	}
	if s.illustrator == nil {
		return Item{Kind: KindIllustration, Status: StatusSkipped, Error: "illustration provider not configured"}
	}
	prompt := IllustrationPrompt(req)
	return s.produce(ctx, KindIllustration, key, func(ctx context.Context) ([]byte, error) {
		return s.illustrator.Illustrate(ctx, prompt)
	})
}

// IllustrationPrompt builds the text-to-image prompt for a paper.
func IllustrationPrompt(req Request) string {
	block := fmt.Sprintf("title:%s\nabstract:%s", strings.TrimSpace(req.Title), strings.TrimSpace(req.Abstract))
	return fmt.Sprintf(IllustrationPromptTemplate, block)
}

// produce reuses an existing non-empty file or runs fn and stores its
// output.
func (s *Service) produce(ctx context.Context, kind, key string, fn func(context.Context) ([]byte, error)) Item {
	name := FileName(kind, key)
	item := Item{Kind: kind}
	logger := s.logger.With().Str("kind", kind).Str("file", name).Logger()

	if s.store.Exists(name) {
		item.Status = StatusReused
		item.Path = s.store.PublicPath(name)
		s.record(kind, item.Status, 0)
		logger.Info().Msg("using existing image")
		return item
	}

	start := time.Now()
	data, err := fn(ctx)
	if err == nil {
		err = s.store.Write(name, data)
	}
	elapsed := time.Since(start).Seconds()
	if err != nil {
		item.Status = StatusFailed
		item.Error = err.Error()
		s.record(kind, item.Status, elapsed)
		logger.Error().Err(err).Msg("image generation failed")
		return item
	}

	item.Status = StatusGenerated
	item.Path = s.store.PublicPath(name)
	s.record(kind, item.Status, elapsed)
	logger.Info().Int("bytes", len(data)).Float64("seconds", elapsed).Msg("image stored")
	return item
}

func (s *Service) record(kind, status string, seconds float64) {
	if s.metrics != nil {
		s.metrics.RecordMedia(kind, status, seconds)
	}
}
