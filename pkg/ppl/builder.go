// Package ppl builds piped-query-language strings for the search backend.
// All builders are pure: the same parameters always produce the same
// single-line query. Key-attribute predicates are emitted in sorted key
// order so output is deterministic. Values are interpolated directly with
// no escaping; queries target a trusted backend.
package ppl

import (
	"fmt"
	"sort"
	"strings"
)

// Event type predicates fixed per query purpose.
const (
	eventTypeService           = "SERVICE"
	eventTypeServiceOperation  = "SERVICE_OPERATION"
	eventTypeServiceDependency = "SERVICE_DEPENDENCY"
)

// Projections fixed per query purpose.
const (
	fieldsListServices = "serviceName, environmentType, platformType, timestamp"
	fieldsGetService   = "service.keyAttributes, service.groupByAttributes"
	fieldsOperations   = "operation, timestamp"
	fieldsDependencies = "operation, timestamp"
	fieldsServiceMap   = "service, remoteService, timestamp"
)

// Params carries the caller-supplied parts of a service query. A MaxResults
// of zero omits the result cap clause entirely; there is no default cap.
type Params struct {
	Index         string
	StartTime     string
	EndTime       string
	KeyAttributes map[string]string
	MaxResults    int
}

// BuildTimeFilterClause restricts the timestamp field to an inclusive
// ISO-8601 range. Bound ordering is not validated; a reversed range yields a
// syntactically valid query that matches nothing.
func BuildTimeFilterClause(start, end string) string {
	return fmt.Sprintf(" | where timestamp >= '%s' and timestamp <= '%s'", start, end)
}

// BuildEpochTimeFilterClause is the epoch-seconds variant of
// BuildTimeFilterClause.
func BuildEpochTimeFilterClause(start, end int64) string {
	return fmt.Sprintf(" | where timestamp >= %d and timestamp <= %d", start, end)
}

// BuildListServicesQuery returns the query backing the service list view.
func BuildListServicesQuery(p Params) string {
	return buildServiceQuery(p, eventTypeService, fieldsListServices)
}

// BuildGetServiceQuery returns the query backing the single-service view.
func BuildGetServiceQuery(p Params) string {
	return buildServiceQuery(p, eventTypeService, fieldsGetService)
}

// BuildListServiceOperationsQuery returns the query backing the operations
// table of a service.
func BuildListServiceOperationsQuery(p Params) string {
	return buildServiceQuery(p, eventTypeServiceOperation, fieldsOperations)
}

// BuildListServiceDependenciesQuery returns the query backing the
// dependencies table of a service.
func BuildListServiceDependenciesQuery(p Params) string {
	return buildServiceQuery(p, eventTypeServiceDependency, fieldsDependencies)
}

// BuildGetServiceMapQuery returns the query backing the topology map.
func BuildGetServiceMapQuery(p Params) string {
	return buildServiceQuery(p, eventTypeServiceDependency, fieldsServiceMap)
}

// buildServiceQuery assembles the shared clause sequence: source, time
// filter, key-attribute predicates, event type, projection, optional head.
func buildServiceQuery(p Params, eventType, projection string) string {
	var b strings.Builder

	b.WriteString("source=")
	b.WriteString(p.Index)
	b.WriteString(BuildTimeFilterClause(p.StartTime, p.EndTime))

	keys := make([]string, 0, len(p.KeyAttributes))
	for k := range p.KeyAttributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " | where %s = '%s'", k, p.KeyAttributes[k])
	}

	fmt.Fprintf(&b, " | where eventType = '%s'", eventType)
	b.WriteString(" | fields ")
	b.WriteString(projection)

	if p.MaxResults > 0 {
		fmt.Fprintf(&b, " | head %d", p.MaxResults)
	}

	return b.String()
}
