// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"regexp"
	"strings"
)

// A label is a line of the form NAME=VALUE or NAME: VALUE embedded in a
// commit message, where NAME is [A-Z][A-Z0-9_-]*.
var labelPattern = regexp.MustCompile(`^([A-Z][A-Z0-9_-]*)(=|: )(.*)$`)

// ParseLabel extracts a (name, value) pair from a single message line.
// The value is trimmed and must contain at least one non-whitespace
// character; prose lines report ok == false.
func ParseLabel(line string) (name, value string, ok bool) {
	m := labelPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	value = strings.TrimSpace(m[3])
	if value == "" {
		return "", "", false
	}
	return m[1], value, true
}

// ExtractLabels scans every line of a commit message. Duplicate names
// keep the last occurrence.
func ExtractLabels(message string) map[string]string {
	labels := make(map[string]string)
	for _, line := range strings.Split(message, "\n") {
		if name, value, ok := ParseLabel(line); ok {
			labels[name] = value
		}
	}
	return labels
}

// FormatLabel renders a label back into its canonical NAME=VALUE form.
func FormatLabel(name, value string) string {
	return name + "=" + value
}
