package ranking

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/paper-ranking-service/internal/domain"
	"github.com/helixir/paper-ranking-service/internal/observability"
)

// DefaultTopK is the number of records returned by TopRanked when the caller
// does not choose one.
const DefaultTopK = 10

// DefaultMetricField is the record field the derived metric is written to.
const DefaultMetricField = domain.FieldImpactFactor

// State is the enrichment lifecycle of a MetricRanker.
type State int32

const (
	StateUnenriched State = iota
	StateEnriching
	StateEnriched
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnenriched:
		return "unenriched"
	case StateEnriching:
		return "enriching"
	case StateEnriched:
		return "enriched"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Option configures a MetricRanker.
type Option func(*MetricRanker)

// WithLogger sets the logger used for per-group warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *MetricRanker) {
		r.logger = logger.With().Str("component", "metric_ranker").Logger()
	}
}

// WithMetricField sets the field the metric is written to.
func WithMetricField(name string) Option {
	return func(r *MetricRanker) {
		if name != "" {
			r.metricField = name
		}
	}
}

// WithConcurrency allows up to n lookups in flight. The lookup's own rate
// limiter still bounds the call rate. Values below 1 mean sequential.
func WithConcurrency(n int) Option {
	return func(r *MetricRanker) {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
	}
}

// WithMetrics records lookup outcomes. Nil disables recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *MetricRanker) {
		r.metrics = m
	}
}

// WithTracer overrides the tracer used for enrichment spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *MetricRanker) {
		if t != nil {
			r.tracer = t
		}
	}
}

// MetricRanker ranks a dataset of records by a metric that is looked up once
// per distinct group key.
//
// The ranker owns a private copy of the dataset. Enrichment runs at most once
// per group: the group index remembers every resolved group, including the
// ones that resolved to unknown. All operations are safe for concurrent use
// and serialize on enrichment.
type MetricRanker struct {
	mu          sync.Mutex
	state       atomic.Int32
	records     []domain.Record
	groupField  string
	metricField string
	lookup      Lookup
	index       map[string]Metric
	concurrency int
	logger      zerolog.Logger
	metrics     *observability.Metrics
	tracer      trace.Tracer
}

// NewMetricRanker builds a ranker over dataset, grouping by groupField.
//
// dataset must be one of []domain.Record, []*domain.Paper,
// []*domain.MapRecord or []map[string]any. Anything else, a nil element, or a
// groupField that no record carries yields an *InvalidInputError. Metric
// values already present on records are kept and seed the group index.
func NewMetricRanker(dataset any, groupField string, lookup Lookup, opts ...Option) (*MetricRanker, error) {
	records, err := toRecords(dataset)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(groupField) == "" {
		return nil, newInvalidInputError("group field name is empty")
	}
	if lookup == nil {
		return nil, newInvalidInputError("lookup is nil")
	}

	r := &MetricRanker{
		groupField:  groupField,
		metricField: DefaultMetricField,
		lookup:      lookup,
		index:       make(map[string]Metric),
		concurrency: 1,
		logger:      zerolog.Nop(),
		tracer:      otel.Tracer("github.com/helixir/paper-ranking-service/internal/ranking"),
	}
	for _, opt := range opts {
		opt(r)
	}

	if len(records) > 0 && !anyHasField(records, groupField) {
		return nil, newInvalidInputError(fmt.Sprintf("field %q not found in any record", groupField))
	}

	r.records = make([]domain.Record, len(records))
	for i, rec := range records {
		c := rec.Clone()
		existing, _ := c.Field(r.metricField)
		m := coerceMetric(existing)
		c.SetField(r.metricField, m.Any())
		if key, ok := NormalizeKey(groupValue(c, groupField)); ok && m.Known {
			if prev, seen := r.index[key]; !seen {
				r.index[key] = m
			} else if prev.Value != m.Value {
				r.logger.Warn().
					Str("group", key).
					Int("record", i).
					Float64("kept", prev.Value).
					Float64("dropped", m.Value).
					Msg("conflicting metric values in group; keeping the first")
			}
		}
		r.records[i] = c
	}

	return r, nil
}

// State returns the current enrichment state.
func (r *MetricRanker) State() State {
	return State(r.state.Load())
}

// Len returns the number of records in the dataset.
func (r *MetricRanker) Len() int {
	return len(r.records)
}

// EnrichAll looks up every group that is not yet in the group index and
// writes the resolved metrics onto all records. Lookup failures become
// unknown metrics. Calling it again does not reissue lookups.
//
// The only error is the context's, returned when ctx is done before
// enrichment starts; the dataset is left untouched in that case.
func (r *MetricRanker) EnrichAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enrichLocked(ctx)
}

func (r *MetricRanker) enrichLocked(ctx context.Context) error {
	if r.State() == StateEnriched {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.state.Store(int32(StateEnriching))

	ctx, span := r.tracer.Start(ctx, "MetricRanker.EnrichAll")
	defer span.End()

	missing := r.missingGroups()
	span.SetAttributes(
		attribute.Int("ranking.records", len(r.records)),
		attribute.Int("ranking.groups_to_query", len(missing)),
	)
	r.logger.Info().
		Int("records", len(r.records)).
		Int("groups_to_query", len(missing)).
		Int("groups_known", len(r.index)).
		Msg("enriching dataset")

	resolved := r.resolve(ctx, missing)
	for key, m := range resolved {
		r.index[key] = m
	}
	r.broadcast()

	r.state.Store(int32(StateEnriched))
	return nil
}

// missingGroups returns distinct normalized keys absent from the index, in
// order of first appearance.
func (r *MetricRanker) missingGroups() []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, rec := range r.records {
		key, ok := NormalizeKey(groupValue(rec, r.groupField))
		if !ok {
			continue
		}
		if _, known := r.index[key]; known {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func (r *MetricRanker) resolve(ctx context.Context, keys []string) map[string]Metric {
	out := make(map[string]Metric, len(keys))
	if len(keys) == 0 {
		return out
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for _, key := range keys {
		g.Go(func() error {
			m := r.lookupOne(ctx, key)
			mu.Lock()
			out[key] = m
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *MetricRanker) lookupOne(ctx context.Context, key string) Metric {
	start := time.Now()
	res := r.lookup.Lookup(ctx, key)
	elapsed := time.Since(start)

	if r.metrics != nil {
		r.metrics.RecordOracleLookup(res.Kind.String(), elapsed.Seconds())
	}

	switch res.Kind {
	case LookupValue:
		r.logger.Info().Str("group", key).Float64("metric", res.Value).Dur("elapsed", elapsed).Msg("group metric resolved")
	case LookupUnknown:
		r.logger.Warn().Str("group", key).Str("answer", res.Raw).Msg("oracle returned no usable metric")
	default:
		r.logger.Warn().Str("group", key).Err(res.Err).Dur("elapsed", elapsed).Msg("oracle lookup failed")
	}
	return res.Metric()
}

// broadcast writes the indexed metric onto every record. Records without a
// usable group key get unknown.
func (r *MetricRanker) broadcast() {
	for _, rec := range r.records {
		var m Metric
		if key, ok := NormalizeKey(groupValue(rec, r.groupField)); ok {
			m = r.index[key]
		}
		rec.SetField(r.metricField, m.Any())
	}
}

// TopRanked returns copies of the k best records by descending metric.
// Records with an unknown metric come last in their original order.
// k <= 0 or k larger than the dataset returns every record.
func (r *MetricRanker) TopRanked(ctx context.Context, k int) ([]domain.Record, error) {
	ranked, err := r.sorted(ctx, false)
	if err != nil {
		return nil, err
	}
	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	if r.metrics != nil {
		r.metrics.RecordRankedRecords(len(ranked))
	}
	return ranked, nil
}

// FullRanking returns copies of every record sorted by metric. Unknown
// metrics are placed last regardless of direction.
func (r *MetricRanker) FullRanking(ctx context.Context, ascending bool) ([]domain.Record, error) {
	return r.sorted(ctx, ascending)
}

// HighestRanked returns the best record. The boolean is false when the
// dataset is empty.
func (r *MetricRanker) HighestRanked(ctx context.Context) (domain.Record, bool, error) {
	top, err := r.TopRanked(ctx, 1)
	if err != nil {
		return nil, false, err
	}
	if len(top) == 0 {
		return nil, false, nil
	}
	return top[0], true, nil
}

// GroupMetric returns the resolved metric of a group key, if it has one.
func (r *MetricRanker) GroupMetric(group string) (Metric, bool) {
	key, ok := NormalizeKey(group)
	if !ok {
		return Metric{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.index[key]
	return m, ok
}

type rankedRecord struct {
	pos    int
	metric Metric
}

func (r *MetricRanker) sorted(ctx context.Context, ascending bool) ([]domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.enrichLocked(ctx); err != nil {
		return nil, err
	}

	items := make([]rankedRecord, len(r.records))
	for i, rec := range r.records {
		v, _ := rec.Field(r.metricField)
		items[i] = rankedRecord{pos: i, metric: coerceMetric(v)}
	}

	slices.SortStableFunc(items, func(a, b rankedRecord) int {
		switch {
		case a.metric.Known && !b.metric.Known:
			return -1
		case !a.metric.Known && b.metric.Known:
			return 1
		case !a.metric.Known && !b.metric.Known:
			return 0
		}
		if ascending {
			return cmp.Compare(a.metric.Value, b.metric.Value)
		}
		return cmp.Compare(b.metric.Value, a.metric.Value)
	})

	out := make([]domain.Record, len(items))
	for i, it := range items {
		out[i] = r.records[it.pos].Clone()
	}
	return out, nil
}

// NormalizeKey trims a group value. Nil, blank and "nan" values have no key.
func NormalizeKey(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case fmt.Stringer:
		s = t.String()
	case float64:
		if math.IsNaN(t) {
			return "", false
		}
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return "", false
	}
	return s, true
}

// FormatMetric renders a metric field value with two decimals, or "N/A".
func FormatMetric(v any) string {
	m := coerceMetric(v)
	if !m.Known {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", m.Value)
}

// coerceMetric converts a stored metric value to a number. Values that are
// not numeric are unknown.
func coerceMetric(v any) Metric {
	var f float64
	switch t := v.(type) {
	case nil:
		return Metric{}
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case *float64:
		if t == nil {
			return Metric{}
		}
		f = *t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return Metric{}
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return Metric{}
		}
		f = parsed
	default:
		return Metric{}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Metric{}
	}
	return Known(f)
}

func groupValue(rec domain.Record, field string) any {
	v, _ := rec.Field(field)
	return v
}

func anyHasField(records []domain.Record, field string) bool {
	for _, rec := range records {
		if _, ok := rec.Field(field); ok {
			return true
		}
	}
	return false
}

func toRecords(dataset any) ([]domain.Record, error) {
	var out []domain.Record
	switch d := dataset.(type) {
	case nil:
		return nil, newInvalidInputError("dataset is nil")
	case []domain.Record:
		out = d
	case []*domain.Paper:
		out = make([]domain.Record, len(d))
		for i, p := range d {
			if p == nil {
				return nil, newInvalidInputError(fmt.Sprintf("record %d is nil", i))
			}
			out[i] = p
		}
	case []*domain.MapRecord:
		out = make([]domain.Record, len(d))
		for i, m := range d {
			if m == nil {
				return nil, newInvalidInputError(fmt.Sprintf("record %d is nil", i))
			}
			out[i] = m
		}
	case []map[string]any:
		out = make([]domain.Record, len(d))
		for i, m := range d {
			if m == nil {
				return nil, newInvalidInputError(fmt.Sprintf("record %d is nil", i))
			}
			out[i] = domain.MapRecordFromMap(m)
		}
	default:
		return nil, newInvalidInputError(fmt.Sprintf("dataset must be a sequence of records, got %T", dataset))
	}

	for i, rec := range out {
		if isNilRecord(rec) {
			return nil, newInvalidInputError(fmt.Sprintf("record %d is nil", i))
		}
	}
	return out, nil
}

// isNilRecord also catches typed nil pointers stored in the interface.
func isNilRecord(rec domain.Record) bool {
	switch t := rec.(type) {
	case nil:
		return true
	case *domain.Paper:
		return t == nil
	case *domain.MapRecord:
		return t == nil
	}
	v := reflect.ValueOf(rec)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
