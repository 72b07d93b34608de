package ranking

import (
	"context"
	"fmt"
)

// LookupKind distinguishes the three outcomes of a group metric lookup.
type LookupKind int

const (
	// LookupValue means the oracle produced a parseable number.
	LookupValue LookupKind = iota
	// LookupUnknown means the oracle answered but gave no usable number.
	LookupUnknown
	// LookupTransportError means the oracle could not be reached or timed out.
	LookupTransportError
)

// String returns the metric label used for the outcome.
func (k LookupKind) String() string {
	switch k {
	case LookupValue:
		return "value"
	case LookupUnknown:
		return "unknown"
	case LookupTransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("LookupKind(%d)", int(k))
	}
}

// LookupResult is the outcome of asking for one group's metric.
type LookupResult struct {
	Kind  LookupKind
	Value float64
	// Raw is the oracle's unparsed answer, kept for logging.
	Raw string
	Err error
}

// Value builds a successful lookup result.
func Value(v float64) LookupResult {
	return LookupResult{Kind: LookupValue, Value: v}
}

// Unknown builds a result for an answer that carried no usable number.
func Unknown(raw string) LookupResult {
	return LookupResult{Kind: LookupUnknown, Raw: raw}
}

// TransportError builds a result for a failed oracle call.
func TransportError(err error) LookupResult {
	return LookupResult{Kind: LookupTransportError, Err: err}
}

// Metric converts the result into the value stored in the group index.
func (r LookupResult) Metric() Metric {
	if r.Kind == LookupValue {
		return Known(r.Value)
	}
	return Metric{}
}

// Lookup resolves the metric of a single group. Implementations never
// return errors; failures are reported through the result kind.
type Lookup interface {
	Lookup(ctx context.Context, group string) LookupResult
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, group string) LookupResult

// Lookup implements Lookup.
func (f LookupFunc) Lookup(ctx context.Context, group string) LookupResult {
	return f(ctx, group)
}

// Metric is a group's derived numeric value. The zero value is unknown.
type Metric struct {
	Value float64
	Known bool
}

// Known builds a defined metric.
func Known(v float64) Metric {
	return Metric{Value: v, Known: true}
}

// Any returns the value written into records: a float64, or nil when unknown.
func (m Metric) Any() any {
	if !m.Known {
		return nil
	}
	return m.Value
}
