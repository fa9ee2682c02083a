package transform

import (
	"github.com/fidde/signal_explorer/pkg/dataframe"
	"github.com/fidde/signal_explorer/pkg/models"
)

// Column and path names read from query results.
const (
	colServiceName     = "serviceName"
	colEnvironmentType = "environmentType"
	colPlatformType    = "platformType"
	colTimestamp       = "timestamp"

	pathOperationName     = "operation.name"
	pathDependencyName    = "operation.remoteService.keyAttributes.name"
	pathServiceKeyAttrs   = "service.keyAttributes"
	pathServiceGroupAttrs = "service.groupByAttributes"
	pathRemoteKeyAttrs    = "remoteService.keyAttributes"
	pathRemoteGroupAttrs  = "remoteService.groupByAttributes"
)

// namePlaceholder stands in for entity names missing from a row.
const namePlaceholder = "-"

// entityTypeService is the key-attribute type assigned to discovered services.
const entityTypeService = "Service"

// ListServicesResponse deduplicates rows by (serviceName, environmentType),
// first occurrence winning, and emits one summary per unique pair. The
// result time range spans all rows' timestamps, computed before
// deduplication; an empty frame falls back to the current time.
func ListServicesResponse(f dataframe.Frame) models.ListServicesResult {
	rows := f.Transpose()

	timestamps := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		if ts, ok := pathValue(row, colTimestamp); ok {
			timestamps = append(timestamps, ts)
		}
	}
	timeRange := dataframe.ExtractTimeRange(timestamps)

	result := models.ListServicesResult{
		StartTime:        timeRange.Start,
		EndTime:          timeRange.End,
		ServiceSummaries: []models.ServiceSummary{},
	}

	seen := make(map[string]struct{})
	for _, row := range rows {
		name := pathString(row, colServiceName)
		if name == "" {
			name = namePlaceholder
		}
		envType := pathString(row, colEnvironmentType)

		key := name + "|" + envType
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		env := ParseEnvironmentType(envType)
		result.ServiceSummaries = append(result.ServiceSummaries, models.ServiceSummary{
			KeyAttributes: models.KeyAttributes{
				Name:        name,
				Environment: envType,
				Type:        entityTypeService,
			},
			AttributeMaps: BuildAttributeMaps(pathString(row, colPlatformType), env, name),
		})
	}

	return result
}

// GetServiceResponse passes the first row's key and group-by attribute
// objects through unchanged. An empty frame yields a zero-value result.
func GetServiceResponse(f dataframe.Frame) models.GetServiceResult {
	rows := f.Transpose()
	if len(rows) == 0 {
		return models.GetServiceResult{}
	}

	row := rows[0]
	return models.GetServiceResult{
		Service: models.ServiceDetail{
			KeyAttributes:     pathObject(row, pathServiceKeyAttrs),
			GroupByAttributes: pathObject(row, pathServiceGroupAttrs),
		},
	}
}

// ListServiceOperationsResponse groups rows by operation name, in first-seen
// order, counting the rows sharing each name.
func ListServiceOperationsResponse(f dataframe.Frame) models.ListOperationsResult {
	result := models.ListOperationsResult{Operations: []models.OperationSummary{}}

	index := make(map[string]int)
	for _, row := range f.Transpose() {
		name := pathString(row, pathOperationName)
		if name == "" {
			name = namePlaceholder
		}
		if i, ok := index[name]; ok {
			result.Operations[i].Count++
			continue
		}
		index[name] = len(result.Operations)
		result.Operations = append(result.Operations, models.OperationSummary{Name: name, Count: 1})
	}

	return result
}

// ListServiceDependenciesResponse groups rows by remote service name, in
// first-seen order, counting calls per dependency.
func ListServiceDependenciesResponse(f dataframe.Frame) models.ListDependenciesResult {
	result := models.ListDependenciesResult{Dependencies: []models.DependencySummary{}}

	index := make(map[string]int)
	for _, row := range f.Transpose() {
		name := pathString(row, pathDependencyName)
		if name == "" {
			name = namePlaceholder
		}
		if i, ok := index[name]; ok {
			result.Dependencies[i].CallCount++
			continue
		}
		index[name] = len(result.Dependencies)
		result.Dependencies = append(result.Dependencies, models.DependencySummary{Name: name, CallCount: 1})
	}

	return result
}

// ServiceMapResponse builds the topology from dependency rows: nodes are the
// union of service and remote-service key attributes deduplicated by
// (name, environment), edges aggregate rows per (source, target) pair, and
// the group-by attribute sets span both sides of every row.
func ServiceMapResponse(f dataframe.Frame) models.ServiceMapResult {
	result := models.ServiceMapResult{
		Nodes: []models.Node{},
		Edges: []models.Edge{},
	}

	nodeSeen := make(map[string]struct{})
	edgeIndex := make(map[string]int)
	var groupBys []map[string]interface{}

	addNode := func(attrs map[string]interface{}) (models.NodeRef, bool) {
		if attrs == nil {
			return models.NodeRef{}, false
		}
		name := objString(attrs, "name")
		if name == "" {
			name = namePlaceholder
		}
		envType := objString(attrs, "environment")

		key := name + "|" + envType
		if _, dup := nodeSeen[key]; !dup {
			nodeSeen[key] = struct{}{}

			entityType := objString(attrs, "type")
			if entityType == "" {
				entityType = entityTypeService
			}
			env := ParseEnvironmentType(envType)
			result.Nodes = append(result.Nodes, models.Node{
				KeyAttributes: models.KeyAttributes{
					Name:        name,
					Environment: envType,
					Type:        entityType,
				},
				AttributeMaps: BuildAttributeMaps("", env, name),
			})
		}

		return models.NodeRef{Name: name, Environment: envType}, true
	}

	for _, row := range f.Transpose() {
		source, haveSource := addNode(pathObject(row, pathServiceKeyAttrs))
		target, haveTarget := addNode(pathObject(row, pathRemoteKeyAttrs))

		if haveSource && haveTarget {
			key := source.Name + "|" + source.Environment + "->" + target.Name + "|" + target.Environment
			if i, ok := edgeIndex[key]; ok {
				result.Edges[i].CallCount++
			} else {
				edgeIndex[key] = len(result.Edges)
				result.Edges = append(result.Edges, models.Edge{Source: source, Target: target, CallCount: 1})
			}
		}

		if gb := pathObject(row, pathServiceGroupAttrs); gb != nil {
			groupBys = append(groupBys, gb)
		}
		if gb := pathObject(row, pathRemoteGroupAttrs); gb != nil {
			groupBys = append(groupBys, gb)
		}
	}

	result.AvailableGroupByAttributes = BuildAvailableGroupByAttributes(groupBys)

	return result
}
