// Package coerce converts the loosely typed values that flow through MQTT
// payloads and the entity state store into floats and booleans. A failed
// conversion is an error, never a silent fallback: callers that want a
// default must decide that themselves, and callers that want "do not apply"
// semantics (command handlers) skip the update on error.
package coerce

import (
	"fmt"
	"strconv"
	"strings"
)

// Boolean token tables, matched case-insensitively. These mirror the
// conventions Home Assistant and its MQTT integrations use for switch-like
// payloads ("ON"/"OFF") plus the common yaml-ish spellings.
var (
	boolTrue  = map[string]bool{"y": true, "yes": true, "true": true, "on": true}
	boolFalse = map[string]bool{"n": true, "no": true, "false": true, "off": true}
)

// Float parses value as a float64. The empty string is a conversion error,
// not zero.
func Float(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("coerce %q to float: %w", value, err)
	}
	return f, nil
}

// Bool parses value as a boolean using the token tables above. Tokens are
// matched case-insensitively; anything outside both tables is an error.
func Bool(value string) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case boolTrue[v]:
		return true, nil
	case boolFalse[v]:
		return false, nil
	default:
		return false, fmt.Errorf("coerce %q to bool: unrecognized token", value)
	}
}

// FormatFloat renders a float the way it is stored and published: plain
// decimal, shortest representation that round-trips. Plain decimal keeps
// large values readable on state topics ("1000000", not "1e+06"), and
// stable formatting keeps the store's equality-skip check meaningful
// across write/read cycles.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatBool renders a boolean in the ON/OFF wire convention used by switch
// and binary_sensor state topics.
func FormatBool(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}
