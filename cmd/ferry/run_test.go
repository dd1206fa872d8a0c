// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".ferry/repos"), expandPath("~/.ferry/repos"))
	assert.Equal(t, home, expandPath("~"))
	assert.Equal(t, "/var/cache/ferry", expandPath("/var/cache/ferry"))
	assert.Equal(t, "relative/dir", expandPath("relative/dir"))
}
