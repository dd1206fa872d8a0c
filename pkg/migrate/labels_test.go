// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		line  string
		name  string
		value string
		ok    bool
	}{
		{"SOME_LABEL=value", "SOME_LABEL", "value", true},
		{"OTHER: spaced value", "OTHER", "spaced value", true},
		{"A-B=x", "A-B", "x", true},
		{"REVIEW=  padded  ", "REVIEW", "padded", true},
		{"lowercase=no", "", "", false},
		{"1LABEL=no", "", "", false},
		{"NOVALUE=", "", "", false},
		{"NOVALUE=   ", "", "", false},
		{"NOSEP value", "", "", false},
		{"just a prose line", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		name, value, ok := ParseLabel(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.name, name, tt.line)
		assert.Equal(t, tt.value, value, tt.line)
	}
}

func TestExtractLabelsLastWins(t *testing.T) {
	message := "subject line\n\nBUG=1\nnothing here\nBUG=2\nREVIEWER: alice\n"
	labels := ExtractLabels(message)
	assert.Equal(t, map[string]string{"BUG": "2", "REVIEWER": "alice"}, labels)
}

func TestLabelRoundTrip(t *testing.T) {
	labels := ExtractLabels("X=1\nLONG_NAME-2: two\n")
	for name, value := range labels {
		gotName, gotValue, ok := ParseLabel(FormatLabel(name, value))
		assert.True(t, ok)
		assert.Equal(t, name, gotName)
		assert.Equal(t, value, gotValue)
	}
}

func TestLabelInternalWhitespacePreserved(t *testing.T) {
	name, value, ok := ParseLabel("NOTE: keep  internal   spacing")
	assert.True(t, ok)
	assert.Equal(t, "NOTE", name)
	assert.Equal(t, "keep  internal   spacing", value)
}
