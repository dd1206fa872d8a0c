// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ferryscm/ferry/modules/git"
)

const gitOriginLabel = "GitOrigin-RevId"

// RepoType selects the symbolic-reference translation applied before
// fetching from the origin.
type RepoType string

const (
	RepoTypePlain  RepoType = "plain"
	RepoTypeGerrit RepoType = "gerrit"
	RepoTypeGitHub RepoType = "github"
)

// TranslateRef maps user-facing references (change numbers, PR numbers)
// to fetchable refs. Anything already under refs/ passes through.
func (t RepoType) TranslateRef(ref string) string {
	if strings.HasPrefix(ref, "refs/") {
		return ref
	}
	switch t {
	case RepoTypeGitHub:
		if _, err := strconv.Atoi(ref); err == nil {
			return "refs/pull/" + ref + "/head"
		}
	case RepoTypeGerrit:
		change := ref
		patchset := "1"
		if c, p, ok := strings.Cut(ref, "/"); ok {
			change, patchset = c, p
		}
		if n, err := strconv.Atoi(change); err == nil {
			if _, err := strconv.Atoi(patchset); err == nil {
				return fmt.Sprintf("refs/changes/%02d/%d/%s", n%100, n, patchset)
			}
		}
	}
	return ref
}

// GitOrigin reads revisions out of a remote git repository through a
// bare cache under the storage root.
type GitOrigin struct {
	url        string
	defaultRef string
	repoType   RepoType
	storage    string
	console    *Console
}

func NewGitOrigin(url, defaultRef string, repoType RepoType, storage string, console *Console) (*GitOrigin, error) {
	if url == "" {
		return nil, NewError(KindConfig, "git origin requires a repository URL")
	}
	switch repoType {
	case "", RepoTypePlain:
		repoType = RepoTypePlain
	case RepoTypeGerrit, RepoTypeGitHub:
	default:
		return nil, NewError(KindConfig, "unknown git origin repo type %q", repoType)
	}
	return &GitOrigin{
		url:        url,
		defaultRef: defaultRef,
		repoType:   repoType,
		storage:    storage,
		console:    console,
	}, nil
}

// URL returns the configured repository URL.
func (o *GitOrigin) URL() string {
	return o.url
}

func (o *GitOrigin) repoPath(ctx context.Context) (string, error) {
	p := git.StoragePath(o.storage, o.url)
	if err := git.Init(ctx, p); err != nil {
		return "", WrapError(KindVCS, err, "initializing cache for %s", o.url)
	}
	return p, nil
}

func (o *GitOrigin) Resolve(ctx context.Context, ref string) (Reference, error) {
	if ref == "" {
		ref = o.defaultRef
	}
	if ref == "" {
		return "", NewError(KindConfig, "no reference given and git origin %s has no default reference", o.url)
	}
	repo, err := o.repoPath(ctx)
	if err != nil {
		return "", err
	}
	if git.IsCommitSHA(ref) {
		// Some hosting providers refuse fetch-by-sha; fetch the default
		// refspec and look the commit up locally.
		o.console.Verbosef("fetching %s to resolve %s", o.url, ref)
		if err := git.Fetch(ctx, repo, o.url, "+refs/*:refs/*"); err != nil {
			return "", WrapError(KindVCS, err, "fetching %s", o.url)
		}
		sha, err := git.RevParse(ctx, repo, ref+"^{commit}")
		if err != nil {
			return "", WrapError(KindVCS, err, "%s is not reachable from %s", ref, o.url)
		}
		return Reference(sha), nil
	}
	fetchRef := o.repoType.TranslateRef(ref)
	o.console.Verbosef("fetching %s %s", o.url, fetchRef)
	if err := git.Fetch(ctx, repo, o.url, fetchRef); err != nil {
		return "", WrapError(KindVCS, err, "fetching %s from %s", fetchRef, o.url)
	}
	sha, err := git.RevParse(ctx, repo, "FETCH_HEAD")
	if err != nil {
		return "", WrapError(KindVCS, err, "resolving FETCH_HEAD after fetching %s", fetchRef)
	}
	return Reference(sha), nil
}

func (o *GitOrigin) Checkout(ctx context.Context, ref Reference, workdir string) error {
	repo, err := o.repoPath(ctx)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(workdir); err != nil {
		return WrapError(KindVCS, err, "cleaning workdir %q", workdir)
	}
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return WrapError(KindVCS, err, "creating workdir %q", workdir)
	}
	if err := git.CheckoutTree(ctx, repo, ref.String(), workdir); err != nil {
		return WrapError(KindVCS, err, "checking out %s", ref)
	}
	return nil
}

func (o *GitOrigin) toChange(c *git.Commit) *Change {
	message := strings.Join(c.Message, "\n")
	parents := make([]Reference, 0, len(c.Parents))
	for _, p := range c.Parents {
		parents = append(parents, Reference(p))
	}
	return &Change{
		Ref:     Reference(c.Hash),
		Author:  Author{Name: c.AuthorName, Email: c.AuthorEmail},
		Message: message,
		Date:    c.When,
		Labels:  ExtractLabels(message),
		Parents: parents,
	}
}

func (o *GitOrigin) log(ctx context.Context, limit int, rangeArg string) ([]*git.Commit, error) {
	repo, err := o.repoPath(ctx)
	if err != nil {
		return nil, err
	}
	commits, err := git.Log(ctx, repo, limit, rangeArg)
	if err != nil {
		return nil, WrapError(KindVCS, err, "reading log for %s", rangeArg)
	}
	return commits, nil
}

func (o *GitOrigin) Changes(ctx context.Context, from, to Reference) ([]*Change, error) {
	rangeArg := to.String()
	if from != "" {
		rangeArg = from.String() + ".." + to.String()
	}
	commits, err := o.log(ctx, 0, rangeArg)
	if err != nil {
		return nil, err
	}
	// git prints newest first; callers get oldest first.
	changes := make([]*Change, 0, len(commits))
	for i := len(commits) - 1; i >= 0; i-- {
		changes = append(changes, o.toChange(commits[i]))
	}
	return changes, nil
}

func (o *GitOrigin) Change(ctx context.Context, ref Reference) (*Change, error) {
	commits, err := o.log(ctx, 1, ref.String())
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, NewError(KindVCS, "no change found at %s", ref)
	}
	return o.toChange(commits[0]), nil
}

func (o *GitOrigin) VisitChanges(ctx context.Context, start Reference, visitor ChangeVisitor) error {
	commits, err := o.log(ctx, 0, start.String())
	if err != nil {
		return err
	}
	for _, c := range commits {
		if visitor(o.toChange(c)) == VisitTerminate {
			return nil
		}
	}
	return nil
}

func (o *GitOrigin) LabelName() string {
	return gitOriginLabel
}
