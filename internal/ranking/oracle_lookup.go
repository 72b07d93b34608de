package ranking

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultNegativeMarker is the phrase the oracle is told to answer with when
	// it cannot determine a value ("cannot obtain").
	DefaultNegativeMarker = "无法获取"

	// DefaultMetricName is the metric asked about when none is configured.
	DefaultMetricName = "impact factor"

	// DefaultCallTimeout bounds a single oracle call.
	DefaultCallTimeout = 30 * time.Second

	// DefaultCallInterval is the minimum spacing between oracle calls.
	DefaultCallInterval = 500 * time.Millisecond
)

// DefaultPromptTemplate asks for a bare number. The verbs receive the group
// name, the metric name and the negative marker in that order.
const DefaultPromptTemplate = `What is the %[2]s of the journal "%[1]s"?
Reply with the %[2]s only, as a single bare number, with no other text.
If you cannot determine it, reply exactly "%[3]s".`

// Asker sends a single prompt to a text oracle and returns its raw answer.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// OracleLookupConfig configures an OracleLookup.
type OracleLookupConfig struct {
	// MetricName is substituted into the prompt (e.g. "impact factor").
	MetricName string

	// PromptTemplate overrides DefaultPromptTemplate.
	PromptTemplate string

	// NegativeMarker is the phrase that signals "no value".
	NegativeMarker string

	// CallTimeout bounds a single oracle call.
	CallTimeout time.Duration

	// Limiter spaces out oracle calls. Nil means one call per DefaultCallInterval.
	Limiter *rate.Limiter
}

// OracleLookup resolves group metrics by asking a text oracle.
type OracleLookup struct {
	asker    Asker
	metric   string
	template string
	marker   string
	timeout  time.Duration
	limiter  *rate.Limiter
}

// NewOracleLookup creates an OracleLookup backed by asker.
func NewOracleLookup(asker Asker, cfg OracleLookupConfig) *OracleLookup {
	if cfg.MetricName == "" {
		cfg.MetricName = DefaultMetricName
	}
	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = DefaultPromptTemplate
	}
	if cfg.NegativeMarker == "" {
		cfg.NegativeMarker = DefaultNegativeMarker
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Every(DefaultCallInterval), 1)
	}

	return &OracleLookup{
		asker:    asker,
		metric:   cfg.MetricName,
		template: cfg.PromptTemplate,
		marker:   cfg.NegativeMarker,
		timeout:  cfg.CallTimeout,
		limiter:  cfg.Limiter,
	}
}

// Prompt renders the question sent for group.
func (o *OracleLookup) Prompt(group string) string {
	return fmt.Sprintf(o.template, group, o.metric, o.marker)
}

// Lookup implements Lookup. The call waits for the rate limiter, then asks
// once with a bounded timeout. It is never retried.
func (o *OracleLookup) Lookup(ctx context.Context, group string) LookupResult {
	if err := o.limiter.Wait(ctx); err != nil {
		return TransportError(fmt.Errorf("wait for oracle slot: %w", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	answer, err := o.asker.Ask(callCtx, o.Prompt(group))
	if err != nil {
		return TransportError(err)
	}
	return ParseMetric(answer, o.marker)
}

// ParseMetric interprets an oracle answer. Empty answers, answers containing
// marker, and answers that are not a finite number are unknown.
func ParseMetric(answer, marker string) LookupResult {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return Unknown(answer)
	}
	if marker != "" && strings.Contains(trimmed, marker) {
		return Unknown(answer)
	}

	trimmed = strings.Trim(trimmed, "`\"'")
	trimmed = strings.TrimSuffix(trimmed, ".")
	v, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Unknown(answer)
	}
	return Value(v)
}
