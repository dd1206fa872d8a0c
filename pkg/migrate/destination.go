// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/ferryscm/ferry/modules/wildmatch"
)

// TransformResult is the handoff from the engine to a destination: the
// transformed tree plus the metadata of the commit to record.
type TransformResult struct {
	Workdir   string
	OriginRef Reference
	Author    Author
	Message   string
	// Date is the author date; destinations stamp their own commit time.
	Date time.Time
	// DestinationExcludes protects matching destination paths from the
	// write's deletion pass.
	DestinationExcludes *wildmatch.Matcher
}

// WriteResult reports where a write landed.
type WriteResult struct {
	Ref Reference
	// KeepWorkdir asks the engine to leave the working directory on
	// disk for inspection.
	KeepWorkdir bool
}

// Destination is the write side of a migration.
type Destination interface {
	Write(ctx context.Context, res *TransformResult, console *Console) (*WriteResult, error)
	// PreviousRef recovers the most recent origin revision recorded in
	// the destination under labelName; zero when none is found.
	PreviousRef(ctx context.Context, labelName string) (Reference, error)
}

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]+`)

// FolderDestination writes the transformed tree into a local directory,
// deleting pre-existing files unless they match the exclude matcher.
type FolderDestination struct {
	project     string
	localFolder string
	now         func() time.Time
}

func NewFolderDestination(project, localFolder string) *FolderDestination {
	return &FolderDestination{project: project, localFolder: localFolder, now: time.Now}
}

func (d *FolderDestination) folder() (string, error) {
	if d.localFolder != "" {
		return d.localFolder, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", WrapError(KindVCS, err, "resolving working directory")
	}
	name := nonAlphanumeric.ReplaceAllString(d.project, "")
	return filepath.Join(cwd, "ferry", "out", name, d.now().Format("20060102150405.000")), nil
}

func (d *FolderDestination) Write(ctx context.Context, res *TransformResult, console *Console) (*WriteResult, error) {
	folder, err := d.folder()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, WrapError(KindVCS, err, "creating %q", folder)
	}
	excludes := res.DestinationExcludes
	if excludes == nil {
		excludes = wildmatch.Empty
	}
	existing, err := listFiles(folder)
	if err != nil {
		return nil, WrapError(KindVCS, err, "listing %q", folder)
	}
	for _, f := range existing {
		if excludes.Matches(f) {
			continue
		}
		if err := os.Remove(filepath.Join(folder, filepath.FromSlash(f))); err != nil {
			return nil, WrapError(KindVCS, err, "deleting %q", f)
		}
	}
	if err := removeEmptyDirs(folder); err != nil {
		return nil, WrapError(KindVCS, err, "pruning %q", folder)
	}
	if err := copyTree(res.Workdir, folder); err != nil {
		return nil, WrapError(KindVCS, err, "copying tree into %q", folder)
	}
	console.Infof("Wrote %s to %s", res.OriginRef.Short(), folder)
	return &WriteResult{Ref: Reference(folder), KeepWorkdir: true}, nil
}

// PreviousRef always reports none: a folder records no migration state.
func (d *FolderDestination) PreviousRef(ctx context.Context, labelName string) (Reference, error) {
	return "", nil
}
