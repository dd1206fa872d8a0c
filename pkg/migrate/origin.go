// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// VisitResult controls history walks.
type VisitResult int

const (
	VisitContinue VisitResult = iota
	VisitTerminate
)

// ChangeVisitor receives changes newest-first during a history walk.
type ChangeVisitor func(*Change) VisitResult

// Origin is the read side of a migration.
type Origin interface {
	// Resolve turns a user-supplied reference string into a stable
	// Reference, falling back to the configured default when ref is
	// empty. The result stays checkout-able for the rest of the run.
	Resolve(ctx context.Context, ref string) (Reference, error)
	// Checkout materializes the tree at ref into workdir, replacing
	// whatever the directory held.
	Checkout(ctx context.Context, ref Reference, workdir string) error
	// Changes lists the first-parent chain in the half-open range
	// (from, to], oldest first. A zero from means start-of-history.
	Changes(ctx context.Context, from, to Reference) ([]*Change, error)
	// Change returns the single change at ref.
	Change(ctx context.Context, ref Reference) (*Change, error)
	// VisitChanges walks the first-parent chain from start toward the
	// root until the visitor terminates or history ends.
	VisitChanges(ctx context.Context, start Reference, visitor ChangeVisitor) error
	// LabelName is the label stamped on migrated revisions.
	LabelName() string
}

const folderOriginLabel = "FolderOrigin-RevId"

// FolderOrigin reads a plain directory tree. Every run observes a single
// synthetic change whose reference is the folder path.
type FolderOrigin struct {
	folder string
	author Author
}

func NewFolderOrigin(folder string, author Author) (*FolderOrigin, error) {
	if folder == "" {
		return nil, NewError(KindConfig, "folder origin requires a path")
	}
	if author.IsZero() {
		return nil, NewError(KindConfig, "folder origin requires an author for its synthetic change")
	}
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, WrapError(KindConfig, err, "folder origin %q", folder)
	}
	return &FolderOrigin{folder: abs, author: author}, nil
}

func (o *FolderOrigin) Resolve(ctx context.Context, ref string) (Reference, error) {
	folder := o.folder
	if ref != "" {
		abs, err := filepath.Abs(ref)
		if err != nil {
			return "", WrapError(KindConfig, err, "folder origin reference %q", ref)
		}
		folder = abs
	}
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return "", NewError(KindVCS, "folder origin %q is not a readable directory", folder)
	}
	return Reference(folder), nil
}

func (o *FolderOrigin) Checkout(ctx context.Context, ref Reference, workdir string) error {
	if err := os.RemoveAll(workdir); err != nil {
		return WrapError(KindVCS, err, "cleaning workdir %q", workdir)
	}
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return WrapError(KindVCS, err, "creating workdir %q", workdir)
	}
	if err := copyTree(ref.String(), workdir); err != nil {
		return WrapError(KindVCS, err, "copying %q", ref)
	}
	// A folder may itself be version-controlled; its metadata is not
	// part of the tree being migrated.
	return os.RemoveAll(filepath.Join(workdir, ".git"))
}

func (o *FolderOrigin) change(ref Reference) *Change {
	return &Change{
		Ref:     ref,
		Author:  o.author,
		Message: "Import of " + ref.String(),
		Date:    time.Now(),
		Labels:  map[string]string{},
	}
}

func (o *FolderOrigin) Changes(ctx context.Context, from, to Reference) ([]*Change, error) {
	return []*Change{o.change(to)}, nil
}

func (o *FolderOrigin) Change(ctx context.Context, ref Reference) (*Change, error) {
	return o.change(ref), nil
}

func (o *FolderOrigin) VisitChanges(ctx context.Context, start Reference, visitor ChangeVisitor) error {
	visitor(o.change(start))
	return nil
}

func (o *FolderOrigin) LabelName() string {
	return folderOriginLabel
}
