// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ferryscm/ferry/modules/wildmatch"
)

// Mode selects how a range of origin changes lands in the destination.
type Mode string

const (
	// ModeSquash collapses every new change into one destination commit.
	ModeSquash Mode = "SQUASH"
	// ModeIterative writes one destination commit per origin change.
	ModeIterative Mode = "ITERATIVE"
)

// Workflow is one named, configured migration pipeline.
type Workflow struct {
	Project             string
	Name                string
	Origin              Origin
	Destination         Destination
	Authoring           *Authoring
	Transform           Transformation
	LastRevision        Reference
	OriginExcludes      *wildmatch.Matcher
	DestinationExcludes *wildmatch.Matcher
	Mode                Mode
	ReversibleCheck     bool
	AskConfirmation     bool
}

// Config is the object graph constructed by the configuration
// front-end; read-only once the engine runs.
type Config struct {
	Project   string
	Workflows map[string]*Workflow
}

// Engine executes workflow runs. Single-threaded and synchronous; one
// engine must not share its bare caches with a concurrent run.
type Engine struct {
	cfg         *Config
	console     *Console
	workdirRoot string
	lastRevFlag Reference
}

func NewEngine(cfg *Config, console *Console, workdirRoot string) *Engine {
	return &Engine{cfg: cfg, console: console, workdirRoot: workdirRoot}
}

// SetLastRevision overrides every workflow's last-revision discovery,
// as requested on the command line.
func (e *Engine) SetLastRevision(ref Reference) {
	e.lastRevFlag = ref
}

// Run executes the named workflow, migrating up to sourceRef (or the
// origin's default reference when empty).
func (e *Engine) Run(ctx context.Context, name, sourceRef string) error {
	w, ok := e.cfg.Workflows[name]
	if !ok {
		names := make([]string, 0, len(e.cfg.Workflows))
		for n := range e.cfg.Workflows {
			names = append(names, n)
		}
		sort.Strings(names)
		return NewError(KindConfig, "workflow %q is not defined, available: %s", name, strings.Join(names, ", "))
	}

	toRef, err := w.Origin.Resolve(ctx, sourceRef)
	if err != nil {
		return err
	}
	e.console.Verbosef("resolved origin reference: %s", toRef)

	fromRef, err := e.fromRef(ctx, w)
	if err != nil {
		return err
	}
	if fromRef != "" {
		e.console.Verbosef("migrating changes after %s", fromRef)
	}

	changes, err := w.Origin.Changes(ctx, fromRef, toRef)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return NewError(KindNoWork, "no new changes to migrate for %q after %s", name, fromRef.Short())
	}
	e.console.Infof("Running workflow %s/%s: %d change(s) up to %s", w.Project, w.Name, len(changes), toRef.Short())

	if w.Mode == ModeIterative {
		return e.runIterative(ctx, w, changes)
	}
	return e.runSquash(ctx, w, changes, toRef)
}

func (e *Engine) fromRef(ctx context.Context, w *Workflow) (Reference, error) {
	if e.lastRevFlag != "" {
		return e.lastRevFlag, nil
	}
	if w.LastRevision != "" {
		return w.LastRevision, nil
	}
	return w.Destination.PreviousRef(ctx, w.Origin.LabelName())
}

func (e *Engine) runSquash(ctx context.Context, w *Workflow, changes []*Change, toRef Reference) error {
	workdir, err := e.newWorkdir(w.Name)
	if err != nil {
		return err
	}
	keep, err := func() (bool, error) {
		if err := e.prepare(ctx, w, toRef, workdir); err != nil {
			return false, err
		}
		newest := changes[len(changes)-1]
		res := &TransformResult{
			Workdir:             workdir,
			OriginRef:           toRef,
			Author:              w.Authoring.Resolve(newest.Author),
			Message:             e.squashMessage(w, changes, toRef),
			Date:                newest.Date,
			DestinationExcludes: w.DestinationExcludes,
		}
		return e.write(ctx, w, res)
	}()
	e.cleanupWorkdir(workdir, keep)
	return err
}

func (e *Engine) runIterative(ctx context.Context, w *Workflow, changes []*Change) error {
	for i, c := range changes {
		e.console.Infof("Migrating change %d/%d: %s", i+1, len(changes), c)
		workdir, err := e.newWorkdir(w.Name)
		if err != nil {
			return err
		}
		keep, err := func() (bool, error) {
			if err := e.prepare(ctx, w, c.Ref, workdir); err != nil {
				return false, err
			}
			res := &TransformResult{
				Workdir:             workdir,
				OriginRef:           c.Ref,
				Author:              w.Authoring.Resolve(c.Author),
				Message:             e.iterativeMessage(w, c),
				Date:                c.Date,
				DestinationExcludes: w.DestinationExcludes,
			}
			return e.write(ctx, w, res)
		}()
		e.cleanupWorkdir(workdir, keep)
		if err != nil {
			// Changes already written stay committed; the run stops here.
			return err
		}
	}
	return nil
}

// prepare checks out ref into workdir, prunes origin-excluded paths and
// applies the transformation pipeline, honoring the reversibility check.
func (e *Engine) prepare(ctx context.Context, w *Workflow, ref Reference, workdir string) error {
	if err := w.Origin.Checkout(ctx, ref, workdir); err != nil {
		return err
	}
	if err := e.pruneExcluded(workdir, w.OriginExcludes); err != nil {
		return err
	}
	if w.Transform == nil {
		return nil
	}
	if !w.ReversibleCheck {
		return w.Transform.Transform(ctx, workdir, e.console)
	}

	snapshot := workdir + ".orig"
	if err := copyTree(workdir, snapshot); err != nil {
		return WrapError(KindVCS, err, "snapshotting tree for reversibility check")
	}
	defer os.RemoveAll(snapshot)
	if err := w.Transform.Transform(ctx, workdir, e.console); err != nil {
		return err
	}
	reverse, err := w.Transform.Reverse()
	if err != nil {
		return err
	}
	scratch := workdir + ".rev"
	if err := copyTree(workdir, scratch); err != nil {
		return WrapError(KindVCS, err, "copying tree for reversibility check")
	}
	defer os.RemoveAll(scratch)
	if err := reverse.Transform(ctx, scratch, e.console); err != nil {
		return err
	}
	equal, mismatch, err := treesEqual(snapshot, scratch)
	if err != nil {
		return WrapError(KindVCS, err, "comparing trees for reversibility check")
	}
	if !equal {
		return NewError(KindReversibility, "transformation %s is not reversible: %q differs after reversing", w.Transform, mismatch)
	}
	return nil
}

func (e *Engine) write(ctx context.Context, w *Workflow, res *TransformResult) (bool, error) {
	if w.AskConfirmation {
		ok, err := e.console.Confirm("Proceed writing %s to the destination?", res.OriginRef.Short())
		if err != nil {
			return false, err
		}
		if !ok {
			return false, NewError(KindCanceled, "migration of %s canceled by user", res.OriginRef.Short())
		}
	}
	wr, err := w.Destination.Write(ctx, res, e.console)
	if err != nil {
		return false, err
	}
	return wr.KeepWorkdir, nil
}

// pruneExcluded deletes workdir files matched by the origin excludes.
func (e *Engine) pruneExcluded(workdir string, excludes *wildmatch.Matcher) error {
	if excludes == nil || excludes.IsEmpty() {
		return nil
	}
	files, err := listFiles(workdir)
	if err != nil {
		return WrapError(KindVCS, err, "listing workdir")
	}
	removed := 0
	for _, f := range files {
		if !excludes.Matches(f) {
			continue
		}
		if err := os.Remove(filepath.Join(workdir, filepath.FromSlash(f))); err != nil {
			return WrapError(KindVCS, err, "removing excluded file %q", f)
		}
		removed++
	}
	if removed > 0 {
		e.console.Verbosef("removed %d file(s) excluded in origin", removed)
		return removeEmptyDirs(workdir)
	}
	return nil
}

func (e *Engine) squashMessage(w *Workflow, changes []*Change, toRef Reference) string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "Import of %s\n\n", w.Project)
	fmt.Fprintf(b, "This change squashes the following changes, oldest first:\n")
	for _, c := range changes {
		fmt.Fprintf(b, "  - %s %s by %s\n", c.Ref.Short(), c.FirstLine(), c.Author)
	}
	b.WriteString("\n")
	labelName := w.Origin.LabelName()
	merged := make(map[string]string)
	for _, c := range changes {
		for name, value := range c.Labels {
			merged[name] = value
		}
	}
	delete(merged, labelName)
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(FormatLabel(name, merged[name]))
		b.WriteString("\n")
	}
	b.WriteString(FormatLabel(labelName, toRef.String()))
	b.WriteString("\n")
	return b.String()
}

func (e *Engine) iterativeMessage(w *Workflow, c *Change) string {
	b := new(strings.Builder)
	b.WriteString(strings.TrimRight(c.Message, "\n"))
	b.WriteString("\n\n")
	b.WriteString(FormatLabel(w.Origin.LabelName(), c.Ref.String()))
	b.WriteString("\n")
	return b.String()
}

func (e *Engine) newWorkdir(name string) (string, error) {
	root := e.workdirRoot
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return "", WrapError(KindVCS, err, "creating work dir root %q", root)
		}
	}
	dir, err := os.MkdirTemp(root, "ferry-"+nonAlphanumeric.ReplaceAllString(name, "")+"-")
	if err != nil {
		return "", WrapError(KindVCS, err, "creating working directory")
	}
	return dir, nil
}

func (e *Engine) cleanupWorkdir(workdir string, keep bool) {
	if keep {
		e.console.Verbosef("working directory retained at %s", workdir)
		return
	}
	_ = os.RemoveAll(workdir)
}
