package project

import "fmt"

// ConfigurationError reports a module description that cannot be built at all
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("module configuration: %s is required", e.Field)
	}
	return fmt.Sprintf("module configuration: %s %s", e.Field, e.Reason)
}
