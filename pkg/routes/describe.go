package routes

import "github.com/JaimeStill/lectern/pkg/openapi"

// Describe adds every documented route in groups to spec, with paths
// relative to the mount point. Routes without a Method or OpenAPI entry are
// skipped.
func Describe(spec *openapi.Spec, groups ...Group) error {
	for _, group := range groups {
		if err := describeGroup(spec, "", group); err != nil {
			return err
		}
	}
	return nil
}

func describeGroup(spec *openapi.Spec, parentPrefix string, group Group) error {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		if route.Method == "" || route.OpenAPI == nil {
			continue
		}
		if err := spec.AddOperation(route.Method, fullPrefix+route.Pattern, route.OpenAPI); err != nil {
			return err
		}
	}
	for _, child := range group.Children {
		if err := describeGroup(spec, fullPrefix, child); err != nil {
			return err
		}
	}
	return nil
}
