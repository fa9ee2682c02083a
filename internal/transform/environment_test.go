package transform

import (
	"reflect"
	"testing"
)

func TestParseEnvironmentType(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want Environment
	}{
		{
			name: "eks with cluster and namespace",
			env:  "eks:demo-cluster/default",
			want: Environment{Platform: "eks", Cluster: "demo-cluster", Namespace: "default"},
		},
		{
			name: "eks without namespace",
			env:  "eks:demo-cluster",
			want: Environment{Platform: "eks", Cluster: "demo-cluster"},
		},
		{
			name: "ec2 default has no asg",
			env:  "ec2:default",
			want: Environment{Platform: "ec2"},
		},
		{
			name: "ec2 with asg name",
			env:  "ec2:web-asg",
			want: Environment{Platform: "ec2", AutoScalingGroup: "web-asg"},
		},
		{
			name: "ec2 empty detail",
			env:  "ec2:",
			want: Environment{Platform: "ec2"},
		},
		{
			name: "ecs cluster",
			env:  "ecs:prod-cluster",
			want: Environment{Platform: "ecs", Cluster: "prod-cluster"},
		},
		{
			name: "lambda detail ignored",
			env:  "lambda:default",
			want: Environment{Platform: "lambda"},
		},
		{
			name: "unknown platform falls back to generic",
			env:  "k8s:somewhere",
			want: Environment{Platform: "generic"},
		},
		{
			name: "missing colon falls back to generic",
			env:  "not-a-valid-string",
			want: Environment{Platform: "generic"},
		},
		{
			name: "empty string falls back to generic",
			env:  "",
			want: Environment{Platform: "generic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseEnvironmentType(tt.env); got != tt.want {
				t.Errorf("ParseEnvironmentType(%q) = %+v, want %+v", tt.env, got, tt.want)
			}
		})
	}
}

func TestBuildAttributeMaps(t *testing.T) {
	tests := []struct {
		name         string
		platformType string
		env          Environment
		entityName   string
		want         map[string]string
	}{
		{
			name:       "eks emits cluster namespace and workload",
			env:        Environment{Platform: "eks", Cluster: "demo", Namespace: "default"},
			entityName: "auth",
			want: map[string]string{
				"PlatformType":  "eks",
				"EKS.Cluster":   "demo",
				"EKS.Namespace": "default",
				"EKS.Workload":  "auth",
			},
		},
		{
			name:       "ec2 with asg",
			env:        Environment{Platform: "ec2", AutoScalingGroup: "web-asg"},
			entityName: "web",
			want: map[string]string{
				"PlatformType":         "ec2",
				"EC2.AutoScalingGroup": "web-asg",
			},
		},
		{
			name:       "ec2 without asg emits only the platform marker",
			env:        Environment{Platform: "ec2"},
			entityName: "web",
			want:       map[string]string{"PlatformType": "ec2"},
		},
		{
			name:       "ecs emits cluster",
			env:        Environment{Platform: "ecs", Cluster: "prod"},
			entityName: "cart",
			want: map[string]string{
				"PlatformType": "ecs",
				"ECS.Cluster":  "prod",
			},
		},
		{
			name:       "lambda emits function name",
			env:        Environment{Platform: "lambda"},
			entityName: "billing-fn",
			want: map[string]string{
				"PlatformType":        "lambda",
				"Lambda.FunctionName": "billing-fn",
			},
		},
		{
			name:       "generic emits only the platform marker",
			env:        Environment{Platform: "generic"},
			entityName: "thing",
			want:       map[string]string{"PlatformType": "generic"},
		},
		{
			name:         "explicit platform type takes precedence",
			platformType: "AWS::EKS",
			env:          Environment{Platform: "eks", Cluster: "demo", Namespace: "default"},
			entityName:   "auth",
			want: map[string]string{
				"PlatformType":  "AWS::EKS",
				"EKS.Cluster":   "demo",
				"EKS.Namespace": "default",
				"EKS.Workload":  "auth",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildAttributeMaps(tt.platformType, tt.env, tt.entityName)

			if len(got) != 1 {
				t.Fatalf("Attribute maps must be a single-element slice, got %d elements", len(got))
			}
			if !reflect.DeepEqual(got[0], tt.want) {
				t.Errorf("Attribute map mismatch:\ngot  %v\nwant %v", got[0], tt.want)
			}
		})
	}
}
