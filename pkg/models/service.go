// Package models defines the core data structures shared across the service.
package models

// KeyAttributes is the identifying tuple for a monitored service entity.
// Environment is a colon-delimited platform+detail encoding such as
// "eks:cluster/namespace" or "ec2:asg-name".
type KeyAttributes struct {
	Name        string `json:"Name"`
	Environment string `json:"Environment"`
	Type        string `json:"Type"`
}

// ServiceSummary is one deduplicated service entry in a list-services result.
type ServiceSummary struct {
	KeyAttributes KeyAttributes       `json:"KeyAttributes"`
	AttributeMaps []map[string]string `json:"AttributeMaps,omitempty"`
}

// ListServicesResult is the normalized response of a list-services query.
// StartTime and EndTime are the earliest and latest timestamps observed
// across all rows, in epoch seconds, computed before deduplication.
type ListServicesResult struct {
	StartTime        int64            `json:"StartTime"`
	EndTime          int64            `json:"EndTime"`
	ServiceSummaries []ServiceSummary `json:"ServiceSummaries"`
}

// ServiceDetail carries the raw key and group-by attribute objects of a
// single service, passed through from the query result without reshaping.
type ServiceDetail struct {
	KeyAttributes     map[string]interface{} `json:"KeyAttributes"`
	GroupByAttributes map[string]interface{} `json:"GroupByAttributes"`
}

// GetServiceResult wraps the single service returned by a get-service query.
type GetServiceResult struct {
	Service ServiceDetail `json:"Service"`
}

// OperationSummary is one grouped operation with its row count.
type OperationSummary struct {
	Name  string `json:"Name"`
	Count int    `json:"Count"`
}

// ListOperationsResult is the normalized response of a list-operations query.
type ListOperationsResult struct {
	Operations []OperationSummary `json:"Operations"`
}

// DependencySummary is one grouped downstream dependency with its call count.
type DependencySummary struct {
	Name      string `json:"Name"`
	CallCount int    `json:"CallCount"`
}

// ListDependenciesResult is the normalized response of a list-dependencies query.
type ListDependenciesResult struct {
	Dependencies []DependencySummary `json:"Dependencies"`
}

// Node is one service in a topology map, deduplicated by name and environment.
type Node struct {
	KeyAttributes KeyAttributes       `json:"KeyAttributes"`
	AttributeMaps []map[string]string `json:"AttributeMaps,omitempty"`
}

// NodeRef identifies a node by its deduplication key.
type NodeRef struct {
	Name        string `json:"Name"`
	Environment string `json:"Environment"`
}

// Edge is an aggregated call relationship between two nodes. CallCount is
// the number of result rows grouped into this edge.
type Edge struct {
	Source    NodeRef `json:"Source"`
	Target    NodeRef `json:"Target"`
	CallCount int     `json:"CallCount"`
}

// ServiceMapResult is the normalized response of a service-map query.
type ServiceMapResult struct {
	Nodes                      []Node              `json:"Nodes"`
	Edges                      []Edge              `json:"Edges"`
	AvailableGroupByAttributes map[string][]string `json:"AvailableGroupByAttributes"`
}
