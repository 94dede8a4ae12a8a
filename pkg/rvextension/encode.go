package rvextension

import (
	"encoding/json"
	"fmt"
	"strings"
)

// quote renders s as a host string literal. The host escapes a quote by
// doubling it.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// EncodeArray renders data as a host array of strings.
func EncodeArray(data []string) string {
	parts := make([]string, len(data))
	for i, d := range data {
		parts[i] = quote(d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// encodeValue renders a handler result. Strings and Stringers become host
// strings, everything else is JSON, which the host parses as array syntax.
func encodeValue(v any) string {
	switch t := v.(type) {
	case string:
		return quote(t)
	case fmt.Stringer:
		return quote(t.String())
	}
	b, err := json.Marshal(v)
	if err != nil {
		return quote(fmt.Sprint(v))
	}
	return string(b)
}

// formatDispatchResponse formats the dispatcher result for the host
func formatDispatchResponse(command string, result any, err error) string {
	if err != nil {
		return fmt.Sprintf(`["error", %s, %s]`, quote(command), quote(err.Error()))
	}
	if result == nil {
		return fmt.Sprintf(`["ok", %s]`, quote(command))
	}
	return fmt.Sprintf(`["ok", %s, %s]`, quote(command), encodeValue(result))
}

// splitCommand splits the single-string call form "command|arg|arg".
func splitCommand(input string) (string, []string) {
	parts := strings.Split(input, "|")
	return parts[0], parts[1:]
}
