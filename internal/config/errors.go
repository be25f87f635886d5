package config

import "fmt"

// ConfigurationError reports malformed settings or roster input. The
// simulation never starts when one is returned.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e ConfigurationError) Unwrap() error { return e.Err }
