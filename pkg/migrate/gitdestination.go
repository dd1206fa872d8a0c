// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/ferryscm/ferry/modules/git"
)

// localFetchRef is where the destination's current tip is tracked
// inside the bare cache between fetch and commit.
const localFetchRef = "refs/ferry/fetch"

// GitDestination appends commits to a remote git repository. Each write
// builds a tree equal to the workdir (plus protected destination paths),
// commits it on top of the fetched tip, and pushes.
type GitDestination struct {
	url      string
	fetchRef string
	pushRef  string
	storage  string
	now      func() time.Time
}

func NewGitDestination(url, fetchRef, pushRef, storage string) (*GitDestination, error) {
	if url == "" {
		return nil, NewError(KindConfig, "git destination requires a repository URL")
	}
	if fetchRef == "" || pushRef == "" {
		return nil, NewError(KindConfig, "git destination requires fetch and push references")
	}
	return &GitDestination{url: url, fetchRef: fetchRef, pushRef: pushRef, storage: storage, now: time.Now}, nil
}

func fullRef(ref string) string {
	if strings.HasPrefix(ref, "refs/") {
		return ref
	}
	return "refs/heads/" + ref
}

func (d *GitDestination) repoPath(ctx context.Context) (string, error) {
	p := git.StoragePath(d.storage, d.url)
	if err := git.Init(ctx, p); err != nil {
		return "", WrapError(KindVCS, err, "initializing cache for %s", d.url)
	}
	return p, nil
}

// fetchTip updates localFetchRef from the remote and returns the tip
// commit, empty when the remote ref does not exist yet.
func (d *GitDestination) fetchTip(ctx context.Context, repo string) (string, error) {
	refspec := "+" + fullRef(d.fetchRef) + ":" + localFetchRef
	if err := git.Fetch(ctx, repo, d.url, refspec); err != nil {
		if strings.Contains(err.Error(), "couldn't find remote ref") {
			return "", nil
		}
		return "", WrapError(KindVCS, err, "fetching %s from %s", d.fetchRef, d.url)
	}
	sha, err := git.RevParse(ctx, repo, localFetchRef)
	if err != nil {
		return "", WrapError(KindVCS, err, "resolving fetched tip of %s", d.url)
	}
	return sha, nil
}

func (d *GitDestination) Write(ctx context.Context, res *TransformResult, console *Console) (*WriteResult, error) {
	repo, err := d.repoPath(ctx)
	if err != nil {
		return nil, err
	}
	parent, err := d.fetchTip(ctx, repo)
	if err != nil {
		return nil, err
	}
	excludes := res.DestinationExcludes
	if parent != "" && excludes != nil && !excludes.IsEmpty() {
		// Protected destination paths are restored into the workdir so
		// the new tree keeps them.
		paths, err := git.LsTree(ctx, repo, parent)
		if err != nil {
			return nil, WrapError(KindVCS, err, "listing destination tip")
		}
		var keep []string
		for _, p := range paths {
			if excludes.Matches(p) {
				keep = append(keep, p)
			}
		}
		if err := git.CheckoutPaths(ctx, repo, parent, res.Workdir, keep); err != nil {
			return nil, WrapError(KindVCS, err, "restoring excluded destination paths")
		}
	}

	index, err := os.CreateTemp("", "ferry-index-*")
	if err != nil {
		return nil, WrapError(KindVCS, err, "creating temporary index")
	}
	indexPath := index.Name()
	_ = index.Close()
	_ = os.Remove(indexPath)
	defer os.Remove(indexPath)
	env := []string{"GIT_INDEX_FILE=" + indexPath}

	if _, err := git.RunWith(ctx, repo, "", env, "read-tree", "--empty"); err != nil {
		return nil, WrapError(KindVCS, err, "resetting index")
	}
	if _, err := git.RunWith(ctx, repo, res.Workdir, env,
		"--work-tree", res.Workdir, "add", "--all", "--force", "."); err != nil {
		return nil, WrapError(KindVCS, err, "staging tree")
	}
	tree, err := git.RunWith(ctx, repo, "", env, "write-tree")
	if err != nil {
		return nil, WrapError(KindVCS, err, "writing tree")
	}

	commitEnv := []string{
		"GIT_AUTHOR_NAME=" + res.Author.Name,
		"GIT_AUTHOR_EMAIL=" + res.Author.Email,
		"GIT_AUTHOR_DATE=" + res.Date.Format(time.RFC3339),
		"GIT_COMMITTER_NAME=" + res.Author.Name,
		"GIT_COMMITTER_EMAIL=" + res.Author.Email,
		"GIT_COMMITTER_DATE=" + d.now().Format(time.RFC3339),
	}
	args := []string{"commit-tree", tree, "-m", res.Message}
	if parent != "" {
		args = append(args, "-p", parent)
	}
	commit, err := git.RunWith(ctx, repo, "", commitEnv, args...)
	if err != nil {
		return nil, WrapError(KindVCS, err, "creating commit")
	}

	console.Verbosef("pushing %s to %s %s", commit, d.url, d.pushRef)
	if _, err := git.RunWith(ctx, repo, "", nil, "push", d.url, commit+":"+fullRef(d.pushRef)); err != nil {
		return nil, WrapError(KindVCS, err, "pushing to %s", d.url)
	}
	console.Infof("Pushed %s to %s %s", commit[:12], d.url, d.pushRef)
	return &WriteResult{Ref: Reference(commit)}, nil
}

// PreviousRef scans destination history newest-first for the last
// migrated origin revision stamped under labelName.
func (d *GitDestination) PreviousRef(ctx context.Context, labelName string) (Reference, error) {
	repo, err := d.repoPath(ctx)
	if err != nil {
		return "", err
	}
	tip, err := d.fetchTip(ctx, repo)
	if err != nil {
		return "", err
	}
	if tip == "" {
		return "", nil
	}
	commits, err := git.Log(ctx, repo, 0, tip)
	if err != nil {
		return "", WrapError(KindVCS, err, "reading destination history")
	}
	for _, c := range commits {
		for _, line := range c.Message {
			if name, value, ok := ParseLabel(line); ok && name == labelName {
				return Reference(value), nil
			}
		}
	}
	return "", nil
}
