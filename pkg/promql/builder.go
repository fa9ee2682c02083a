// Package promql builds PromQL expressions for the metrics backend. Builders
// are pure; label filters are rendered in sorted key order so output is
// deterministic. Values are interpolated directly with no escaping.
package promql

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Stat selects the aggregation wrapped around a rate expression.
type Stat string

const (
	StatSum     Stat = "sum"
	StatAverage Stat = "avg"
)

// Latency metric family, following the spanmetrics naming convention.
const (
	latencyBucketMetric = "latency_bucket"
	latencySumMetric    = "latency_sum"
	latencyCountMetric  = "latency_count"
)

var percentilePattern = regexp.MustCompile(`^p(\d{2})$`)

// BuildFilters renders a label-matcher block {k1="v1",k2="v2"} with sorted
// keys. An empty or nil map yields the empty string.
func BuildFilters(filters map[string]string) string {
	if len(filters) == 0 {
		return ""
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, filters[k]))
	}

	return "{" + strings.Join(parts, ",") + "}"
}

// BuildRateQuery wraps rate(metric{filters}[interval]) in the aggregation
// selected by stat. An unrecognized stat yields the bare rate expression
// rather than an error.
func BuildRateQuery(metric, filterExpr, interval string, stat Stat) string {
	rate := fmt.Sprintf("rate(%s%s[%s])", metric, filterExpr, interval)

	switch stat {
	case StatSum:
		return "sum(" + rate + ")"
	case StatAverage:
		return "avg(" + rate + ")"
	default:
		return rate
	}
}

// BuildLatencyQuery returns a quantile expression when stat matches pNN
// (two digits), and the mean-latency ratio of the sum and count rates for
// any other stat, including the empty default.
func BuildLatencyQuery(filterExpr, interval, stat string) string {
	if m := percentilePattern.FindStringSubmatch(stat); m != nil {
		return fmt.Sprintf("histogram_quantile(0.%s, rate(%s%s[%s]))",
			m[1], latencyBucketMetric, filterExpr, interval)
	}

	return fmt.Sprintf("rate(%s%s[%s]) / rate(%s%s[%s])",
		latencySumMetric, filterExpr, interval,
		latencyCountMetric, filterExpr, interval)
}
