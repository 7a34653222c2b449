package executor

import (
	"encoding/json"
	"strings"
)

// DecodeJSON parses JSON embedded in command stdout into v. Empty or
// garbled output is common from the privileged layer and degrades to
// "no data" (false) rather than an error.
//
// ConvertTo-Json emits a bare object for single results and an array
// for many, so a decode into a slice retries wrapped in brackets.
func DecodeJSON(stdout string, v any) bool {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return false
	}

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return true
	}

	// Single-object output decoded into a slice target.
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte("["+trimmed+"]"), v); err == nil {
			return true
		}
	}

	return false
}
