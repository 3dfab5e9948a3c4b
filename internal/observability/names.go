package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameRequestCount          = "http.server.request_count"
	MetricNameRequestDuration       = "http.server.duration"
	MetricNameSnapshotFetches       = "statshub_snapshot_fetch_total"
	MetricNameSnapshotFetchDuration = "statshub_snapshot_fetch_duration_seconds"
	MetricNameSnapshotAge           = "statshub_snapshot_age_seconds"
	MetricNameStaleServed           = "statshub_cache_stale_served_total"
	MetricNameCacheHits             = "statshub_cache_hits_total"
	MetricNameCacheMisses           = "statshub_cache_misses_total"
)

// Attribute keys.
const (
	AttrOutcome = "outcome"
	AttrCache   = "cache"
)

// Fetch outcomes for statshub_snapshot_fetch_total.
const (
	OutcomeSuccess            = "success"
	OutcomeUpstreamError      = "upstream_error"
	OutcomeMissingCredentials = "missing_credentials"
	OutcomeDecodeError        = "decode_error"
)

// Cache names for the cache attribute.
const (
	CacheSnapshot   = "snapshot"
	CacheModelQuery = "model_query"
)

// AllowedOutcomes for statshub_snapshot_fetch_total and statshub_snapshot_fetch_duration_seconds.
var AllowedOutcomes = map[string]bool{
	OutcomeSuccess:            true,
	OutcomeUpstreamError:      true,
	OutcomeMissingCredentials: true,
	OutcomeDecodeError:        true,
}

// AllowedCacheNames for statshub_cache_hits_total and statshub_cache_misses_total.
var AllowedCacheNames = map[string]bool{
	CacheSnapshot:   true,
	CacheModelQuery: true,
}

// NormalizeOutcome returns outcome if allowed, otherwise "other".
func NormalizeOutcome(outcome string) string {
	return NormalizeReason(outcome, AllowedOutcomes)
}

// NormalizeCacheName returns name if allowed, otherwise "other".
func NormalizeCacheName(name string) string {
	return NormalizeReason(name, AllowedCacheNames)
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}
