// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferryscm/ferry/modules/wildmatch"
)

const testOriginLabel = "TestOrigin-RevId"

// fakeOrigin serves a fixed linear history out of in-memory trees.
type fakeOrigin struct {
	defaultRef Reference
	trees      map[Reference]map[string]string
	history    []*Change // oldest first
	changesArg Reference // records the from passed to Changes
}

func (o *fakeOrigin) Resolve(ctx context.Context, ref string) (Reference, error) {
	if ref == "" {
		if o.defaultRef == "" {
			return "", NewError(KindConfig, "no reference configured")
		}
		return o.defaultRef, nil
	}
	return Reference(ref), nil
}

func (o *fakeOrigin) Checkout(ctx context.Context, ref Reference, workdir string) error {
	tree, ok := o.trees[ref]
	if !ok {
		return NewError(KindVCS, "unknown reference %s", ref)
	}
	if err := os.RemoveAll(workdir); err != nil {
		return err
	}
	for rel, content := range tree {
		p := filepath.Join(workdir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return os.MkdirAll(workdir, 0o755)
}

func (o *fakeOrigin) Changes(ctx context.Context, from, to Reference) ([]*Change, error) {
	o.changesArg = from
	var out []*Change
	started := from == ""
	for _, c := range o.history {
		if started {
			out = append(out, c)
		}
		if c.Ref == from {
			started = true
		}
		if c.Ref == to {
			break
		}
	}
	return out, nil
}

func (o *fakeOrigin) Change(ctx context.Context, ref Reference) (*Change, error) {
	for _, c := range o.history {
		if c.Ref == ref {
			return c, nil
		}
	}
	return nil, NewError(KindVCS, "unknown change %s", ref)
}

func (o *fakeOrigin) VisitChanges(ctx context.Context, start Reference, visitor ChangeVisitor) error {
	started := false
	for i := len(o.history) - 1; i >= 0; i-- {
		if !started {
			if o.history[i].Ref != start {
				continue
			}
			started = true
		}
		if visitor(o.history[i]) == VisitTerminate {
			return nil
		}
	}
	return nil
}

func (o *fakeOrigin) LabelName() string {
	return testOriginLabel
}

// recordingDestination captures every write it receives.
type recordingDestination struct {
	previous Reference
	results  []*TransformResult
	trees    []map[string]string
}

func (d *recordingDestination) Write(ctx context.Context, res *TransformResult, console *Console) (*WriteResult, error) {
	files, err := listFiles(res.Workdir)
	if err != nil {
		return nil, err
	}
	tree := make(map[string]string, len(files))
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(res.Workdir, filepath.FromSlash(f)))
		if err != nil {
			return nil, err
		}
		tree[f] = string(b)
	}
	d.results = append(d.results, res)
	d.trees = append(d.trees, tree)
	return &WriteResult{Ref: "destination-commit"}, nil
}

func (d *recordingDestination) PreviousRef(ctx context.Context, labelName string) (Reference, error) {
	return d.previous, nil
}

func date(day int) time.Time {
	return time.Date(2015, 7, day, 12, 0, 0, 0, time.UTC)
}

func testWorkflow(t *testing.T, origin *fakeOrigin, dest Destination) *Workflow {
	t.Helper()
	auth, err := NewAuthoring(Whitelist, botAuthor, []string{"alice@example.com"})
	require.NoError(t, err)
	return &Workflow{
		Project:             "example",
		Name:                "default",
		Origin:              origin,
		Destination:         dest,
		Authoring:           auth,
		OriginExcludes:      wildmatch.Empty,
		DestinationExcludes: wildmatch.Empty,
		Mode:                ModeSquash,
	}
}

func newTestEngine(w *Workflow) *Engine {
	cfg := &Config{Project: w.Project, Workflows: map[string]*Workflow{w.Name: w}}
	return NewEngine(cfg, testConsole(), "")
}

func linearHistory() *fakeOrigin {
	older := &Change{
		Ref:    "aaaa",
		Author: aliceAuthor,
		// The BUG label must survive into the squash message.
		Message: "older change\n\nBUG=123",
		Date:    date(1),
		Labels:  map[string]string{"BUG": "123"},
	}
	newer := &Change{
		Ref:     "bbbb",
		Author:  eveAuthor,
		Message: "newer change",
		Date:    date(2),
		Labels:  map[string]string{},
		Parents: []Reference{"aaaa"},
	}
	return &fakeOrigin{
		defaultRef: "bbbb",
		history:    []*Change{older, newer},
		trees: map[Reference]map[string]string{
			"aaaa": {"file.txt": "v1"},
			"bbbb": {"file.txt": "v2", "extra.txt": "x"},
		},
	}
}

func TestRunSquash(t *testing.T) {
	origin := linearHistory()
	dest := &recordingDestination{}
	w := testWorkflow(t, origin, dest)
	require.NoError(t, newTestEngine(w).Run(context.Background(), "default", ""))

	require.Len(t, dest.results, 1)
	res := dest.results[0]
	assert.Equal(t, Reference("bbbb"), res.OriginRef)
	// Author comes from the newest change; eve is not whitelisted.
	assert.Equal(t, botAuthor, res.Author)
	assert.True(t, res.Date.Equal(date(2)))
	assert.Equal(t, map[string]string{"file.txt": "v2", "extra.txt": "x"}, dest.trees[0])

	msg := res.Message
	assert.Contains(t, msg, "Import of example")
	assert.Contains(t, msg, "older change by Alice <alice@example.com>")
	assert.Contains(t, msg, "newer change by Eve <eve@example.com>")
	assert.Less(t, strings.Index(msg, "older change"), strings.Index(msg, "newer change"))
	assert.Contains(t, msg, "BUG=123\n")
	assert.True(t, strings.HasSuffix(msg, testOriginLabel+"=bbbb\n"))
}

func TestRunIterative(t *testing.T) {
	origin := linearHistory()
	dest := &recordingDestination{}
	w := testWorkflow(t, origin, dest)
	w.Mode = ModeIterative
	require.NoError(t, newTestEngine(w).Run(context.Background(), "default", ""))

	require.Len(t, dest.results, 2)
	assert.Equal(t, Reference("aaaa"), dest.results[0].OriginRef)
	assert.Equal(t, Reference("bbbb"), dest.results[1].OriginRef)
	assert.Equal(t, map[string]string{"file.txt": "v1"}, dest.trees[0])
	assert.Equal(t, map[string]string{"file.txt": "v2", "extra.txt": "x"}, dest.trees[1])
	// Alice is whitelisted, eve is not.
	assert.Equal(t, aliceAuthor, dest.results[0].Author)
	assert.Equal(t, botAuthor, dest.results[1].Author)
	assert.Contains(t, dest.results[0].Message, testOriginLabel+"=aaaa")
	assert.Contains(t, dest.results[0].Message, "older change")
	assert.Contains(t, dest.results[1].Message, testOriginLabel+"=bbbb")
}

func TestRunNoWork(t *testing.T) {
	origin := linearHistory()
	dest := &recordingDestination{previous: "bbbb"}
	w := testWorkflow(t, origin, dest)
	err := newTestEngine(w).Run(context.Background(), "default", "")
	require.Error(t, err)
	assert.Equal(t, KindNoWork, KindOf(err))
	assert.Equal(t, 4, ExitCode(err))
	assert.Empty(t, dest.results)
	// The destination's recorded revision fed the range.
	assert.Equal(t, Reference("bbbb"), origin.changesArg)
}

func TestRunLastRevisionOverride(t *testing.T) {
	origin := linearHistory()
	dest := &recordingDestination{previous: "bbbb"}
	w := testWorkflow(t, origin, dest)
	w.LastRevision = "aaaa"
	require.NoError(t, newTestEngine(w).Run(context.Background(), "default", ""))
	assert.Equal(t, Reference("aaaa"), origin.changesArg)
	require.Len(t, dest.results, 1)
}

func TestRunLastRevisionFlagWins(t *testing.T) {
	origin := linearHistory()
	dest := &recordingDestination{}
	w := testWorkflow(t, origin, dest)
	w.LastRevision = "bbbb"
	e := newTestEngine(w)
	e.SetLastRevision("aaaa")
	require.NoError(t, e.Run(context.Background(), "default", ""))
	assert.Equal(t, Reference("aaaa"), origin.changesArg)
}

func TestRunUnknownWorkflow(t *testing.T) {
	origin := linearHistory()
	w := testWorkflow(t, origin, &recordingDestination{})
	err := newTestEngine(w).Run(context.Background(), "nope", "")
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
	assert.Contains(t, err.Error(), "default")
}

func TestRunPrunesOriginExcludes(t *testing.T) {
	origin := linearHistory()
	origin.trees["bbbb"]["sub/BUILD"] = "build file"
	origin.trees["bbbb"]["BUILD"] = "build file"
	dest := &recordingDestination{}
	w := testWorkflow(t, origin, dest)
	var err error
	w.OriginExcludes, err = wildmatch.New([]string{"**/BUILD"}, nil)
	require.NoError(t, err)
	require.NoError(t, newTestEngine(w).Run(context.Background(), "default", ""))
	require.Len(t, dest.trees, 1)
	assert.Equal(t, map[string]string{"file.txt": "v2", "extra.txt": "x"}, dest.trees[0])
}

func TestRunAppliesTransform(t *testing.T) {
	origin := linearHistory()
	dest := &recordingDestination{}
	w := testWorkflow(t, origin, dest)
	var err error
	w.Transform, err = NewMove("", "imported")
	require.NoError(t, err)
	w.ReversibleCheck = true
	require.NoError(t, newTestEngine(w).Run(context.Background(), "default", ""))
	require.Len(t, dest.trees, 1)
	assert.Equal(t, map[string]string{
		"imported/file.txt":  "v2",
		"imported/extra.txt": "x",
	}, dest.trees[0])
}

// lossyTransform drops a file and offers a no-op as its inverse.
type lossyTransform struct{}

func (lossyTransform) Transform(ctx context.Context, workdir string, console *Console) error {
	return os.Remove(filepath.Join(workdir, "extra.txt"))
}

func (l lossyTransform) Reverse() (Transformation, error) {
	return nopTransform{}, nil
}

func (lossyTransform) String() string { return "lossy()" }

type nopTransform struct{}

func (nopTransform) Transform(ctx context.Context, workdir string, console *Console) error {
	return nil
}

func (n nopTransform) Reverse() (Transformation, error) { return n, nil }

func (nopTransform) String() string { return "nop()" }

// irreversibleTransform refuses to produce an inverse.
type irreversibleTransform struct{ nopTransform }

func (irreversibleTransform) Reverse() (Transformation, error) {
	return nil, NewError(KindConfig, "transformation is not reversible")
}

func TestRunReversibilityCheckFails(t *testing.T) {
	origin := linearHistory()
	dest := &recordingDestination{}
	w := testWorkflow(t, origin, dest)
	w.Transform = lossyTransform{}
	w.ReversibleCheck = true
	err := newTestEngine(w).Run(context.Background(), "default", "")
	require.Error(t, err)
	assert.Equal(t, KindReversibility, KindOf(err))
	assert.Empty(t, dest.results)
}

func TestRunIrreversibleTransformIsConfigError(t *testing.T) {
	origin := linearHistory()
	dest := &recordingDestination{}
	w := testWorkflow(t, origin, dest)
	w.Transform = irreversibleTransform{}
	w.ReversibleCheck = true
	err := newTestEngine(w).Run(context.Background(), "default", "")
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
	assert.Empty(t, dest.results)
}

func TestRunConfirmationDeclined(t *testing.T) {
	origin := linearHistory()
	dest := &recordingDestination{}
	w := testWorkflow(t, origin, dest)
	w.AskConfirmation = true
	cfg := &Config{Project: w.Project, Workflows: map[string]*Workflow{w.Name: w}}
	console := newTestConsole(strings.NewReader("n\n"), io.Discard, false)
	err := NewEngine(cfg, console, "").Run(context.Background(), "default", "")
	require.Error(t, err)
	assert.Equal(t, KindCanceled, KindOf(err))
	assert.Equal(t, 3, ExitCode(err))
	assert.Empty(t, dest.results)
}

func TestRunConfirmationAccepted(t *testing.T) {
	origin := linearHistory()
	dest := &recordingDestination{}
	w := testWorkflow(t, origin, dest)
	w.AskConfirmation = true
	cfg := &Config{Project: w.Project, Workflows: map[string]*Workflow{w.Name: w}}
	console := newTestConsole(strings.NewReader("y\n"), io.Discard, false)
	require.NoError(t, NewEngine(cfg, console, "").Run(context.Background(), "default", ""))
	require.Len(t, dest.results, 1)
}

func TestRunEndToEndFolderDestination(t *testing.T) {
	origin := linearHistory()
	local := t.TempDir()
	writeFile(t, local, "stale.txt", "old")
	dest := NewFolderDestination("example", local)
	w := testWorkflow(t, origin, dest)
	var err error
	w.Transform, err = NewMove("", "src")
	require.NoError(t, err)
	require.NoError(t, newTestEngine(w).Run(context.Background(), "default", ""))
	assert.Equal(t, map[string]string{
		"src/file.txt":  "v2",
		"src/extra.txt": "x",
	}, treeOf(t, local))
}
