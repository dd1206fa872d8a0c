// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferryscm/ferry/modules/wildmatch"
)

func TestFolderDestinationDeletesUnmatchedFiles(t *testing.T) {
	workdir := t.TempDir()
	writeFile(t, workdir, "file1.txt", "")
	local := t.TempDir()
	writeFile(t, local, "file2.txt", "")

	d := NewFolderDestination("p", local)
	_, err := d.Write(context.Background(), &TransformResult{
		Workdir:             workdir,
		OriginRef:           "ref",
		DestinationExcludes: wildmatch.Empty,
	}, testConsole())
	require.NoError(t, err)

	files, err := listFiles(local)
	require.NoError(t, err)
	assert.Equal(t, []string{"file1.txt"}, files)
}

func TestFolderDestinationPreservesExcludedFiles(t *testing.T) {
	workdir := t.TempDir()
	writeFile(t, workdir, "test.txt", "")
	writeFile(t, workdir, "dir/file.txt", "")

	local := t.TempDir()
	writeFile(t, local, "root_file", "")
	writeFile(t, local, "root_file2", "")
	writeFile(t, local, "one/file.txt", "")
	writeFile(t, local, "one/file.java", "")
	writeFile(t, local, "two/file.java", "")

	excludes, err := wildmatch.New([]string{"root_file", `**\.java`}, nil)
	require.NoError(t, err)

	d := NewFolderDestination("p", local)
	_, err = d.Write(context.Background(), &TransformResult{
		Workdir:             workdir,
		OriginRef:           "ref",
		DestinationExcludes: excludes,
	}, testConsole())
	require.NoError(t, err)

	files, err := listFiles(local)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"dir/file.txt",
		"one/file.java",
		"root_file",
		"test.txt",
		"two/file.java",
	}, files)
}

func TestFolderDestinationDefaultPath(t *testing.T) {
	workdir := t.TempDir()
	writeFile(t, workdir, "out.txt", "content")

	cwd := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(cwd))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	d := NewFolderDestination("ferry_project", "")
	d.now = func() time.Time { return time.Date(2015, 7, 13, 11, 34, 59, 0, time.UTC) }
	wr, err := d.Write(context.Background(), &TransformResult{
		Workdir:             workdir,
		OriginRef:           "ref",
		DestinationExcludes: wildmatch.Empty,
	}, testConsole())
	require.NoError(t, err)
	assert.True(t, wr.KeepWorkdir)

	// Non-alphanumerics are stripped from the project segment.
	matches, err := filepath.Glob(filepath.Join(cwd, "ferry", "out", "ferryproject", "*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	b, err := os.ReadFile(filepath.Join(matches[0], "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(b))
}

func TestFolderDestinationOverwritesChangedFiles(t *testing.T) {
	workdir := t.TempDir()
	writeFile(t, workdir, "same.txt", "new content")
	local := t.TempDir()
	writeFile(t, local, "same.txt", "old content")

	d := NewFolderDestination("p", local)
	_, err := d.Write(context.Background(), &TransformResult{
		Workdir:             workdir,
		OriginRef:           "ref",
		DestinationExcludes: wildmatch.Empty,
	}, testConsole())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"same.txt": "new content"}, treeOf(t, local))
}

func TestFolderDestinationHasNoPreviousRef(t *testing.T) {
	d := NewFolderDestination("p", t.TempDir())
	ref, err := d.PreviousRef(context.Background(), "GitOrigin-RevId")
	require.NoError(t, err)
	assert.Equal(t, Reference(""), ref)
}
