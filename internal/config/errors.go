package config

import (
	"fmt"
	"strings"
)

// ConfigurationError reports missing or invalid integration settings. It is
// never worth retrying: the configuration has to be fixed first.
type ConfigurationError struct {
	Missing []string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("configuration error: missing required value(s): %s", strings.Join(e.Missing, ", "))
	}
	return "configuration error: " + e.Reason
}
