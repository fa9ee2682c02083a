// Package transform converts tabular query results into domain entities.
//
// Every function in this package follows a best-effort policy: malformed or
// missing fields degrade to empty results, placeholder values, or the
// generic platform fallback. Nothing here returns an error or panics, and
// callers must not rely on these functions to reject bad input.
package transform

import "strings"

// Platform tags recognized in environment strings.
const (
	PlatformEKS     = "eks"
	PlatformEC2     = "ec2"
	PlatformECS     = "ecs"
	PlatformLambda  = "lambda"
	PlatformGeneric = "generic"
)

// Environment is the parsed form of a platform:detail environment string.
type Environment struct {
	Platform         string
	Cluster          string
	Namespace        string
	AutoScalingGroup string
}

// ParseEnvironmentType parses a colon-delimited platform+detail encoding
// such as "eks:cluster/namespace" or "ec2:asg-name". Unrecognized or
// malformed input falls back to the generic platform.
func ParseEnvironmentType(env string) Environment {
	parts := strings.SplitN(env, ":", 2)
	if len(parts) != 2 {
		return Environment{Platform: PlatformGeneric}
	}

	platform, detail := parts[0], parts[1]
	switch platform {
	case PlatformEKS:
		e := Environment{Platform: PlatformEKS}
		if idx := strings.Index(detail, "/"); idx >= 0 {
			e.Cluster = detail[:idx]
			e.Namespace = detail[idx+1:]
		} else {
			e.Cluster = detail
		}
		return e

	case PlatformEC2:
		e := Environment{Platform: PlatformEC2}
		if detail != "" && detail != "default" {
			e.AutoScalingGroup = detail
		}
		return e

	case PlatformECS:
		return Environment{Platform: PlatformECS, Cluster: detail}

	case PlatformLambda:
		// Detail carries no information for lambda environments.
		return Environment{Platform: PlatformLambda}

	default:
		return Environment{Platform: PlatformGeneric}
	}
}

// Attribute map keys emitted per platform.
const (
	attrPlatformType       = "PlatformType"
	attrEKSCluster         = "EKS.Cluster"
	attrEKSNamespace       = "EKS.Namespace"
	attrEKSWorkload        = "EKS.Workload"
	attrEC2AutoScalingGrp  = "EC2.AutoScalingGroup"
	attrECSCluster         = "ECS.Cluster"
	attrLambdaFunctionName = "Lambda.FunctionName"
)

// BuildAttributeMaps projects a parsed environment into its platform
// attribute map. The platformType column value takes precedence over the
// parsed platform when present. The result is always a single-element
// slice, a shape kept for callers that accept multiple maps per entity.
func BuildAttributeMaps(platformType string, env Environment, entityName string) []map[string]string {
	if platformType == "" {
		platformType = env.Platform
	}
	attrs := map[string]string{attrPlatformType: platformType}

	switch env.Platform {
	case PlatformEKS:
		attrs[attrEKSCluster] = env.Cluster
		attrs[attrEKSNamespace] = env.Namespace
		attrs[attrEKSWorkload] = entityName
	case PlatformEC2:
		if env.AutoScalingGroup != "" {
			attrs[attrEC2AutoScalingGrp] = env.AutoScalingGroup
		}
	case PlatformECS:
		attrs[attrECSCluster] = env.Cluster
	case PlatformLambda:
		attrs[attrLambdaFunctionName] = entityName
	}

	return []map[string]string{attrs}
}
