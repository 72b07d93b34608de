// Package ranking orders a dataset of records by a metric that is derived
// per group, such as ranking papers by the impact factor of their journal.
//
// # Enrichment
//
// A MetricRanker collects the distinct, non-blank group keys of its dataset
// and resolves each one exactly once through a Lookup. Lookup outcomes are
// tri-state: a value, unknown, or a transport error. Unknown and failed
// lookups leave the group's metric unknown and never abort the batch.
//
// OracleLookup is the production Lookup. It asks a text oracle for a bare
// number, spaces calls out with a rate limiter, and bounds each call with a
// timeout.
//
// # Ordering
//
// Records are sorted by metric with a stable sort. Records whose metric is
// unknown always come after every record with a defined metric, in their
// original relative order. Ranking operations return copies of the records.
package ranking
