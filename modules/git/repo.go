package git

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ferryscm/ferry/modules/command"
)

var commitSHAPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// IsCommitSHA reports whether s is a complete lowercase SHA-1 commit id.
func IsCommitSHA(s string) bool {
	return commitSHAPattern.MatchString(s)
}

func runBare(ctx context.Context, repoPath string, arg ...string) error {
	stderr := command.NewStderr()
	cmdArgs := append([]string{"--git-dir", repoPath}, arg...)
	cmd := command.NewFromOptions(ctx, &command.RunOpts{Stderr: stderr}, "git", cmdArgs...)
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("git %s: %v. stderr: %s", arg[0], err, strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("git %s: %v", arg[0], err)
	}
	return nil
}

// Init creates a bare repository at repoPath. It is idempotent: running
// it against an already-initialized repository is harmless.
func Init(ctx context.Context, repoPath string) error {
	if err := os.MkdirAll(repoPath, 0o755); err != nil {
		return err
	}
	stderr := command.NewStderr()
	cmd := command.NewFromOptions(ctx, &command.RunOpts{Stderr: stderr},
		"git", "init", "--bare", repoPath)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git init --bare %s: %v. stderr: %s", repoPath, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Fetch fetches the given refspecs from url into repoPath.
func Fetch(ctx context.Context, repoPath, url string, refspec ...string) error {
	arg := append([]string{"fetch", "-f", url}, refspec...)
	return runBare(ctx, repoPath, arg...)
}

// RevParse resolves rev against repoPath's object database and returns
// the full commit id.
func RevParse(ctx context.Context, repoPath, rev string) (string, error) {
	stderr := command.NewStderr()
	cmd := command.NewFromOptions(ctx, &command.RunOpts{Stderr: stderr},
		"git", "--git-dir", repoPath, "rev-parse", "--verify", rev)
	line, err := cmd.OneLine()
	if err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("git rev-parse %s: %v. stderr: %s", rev, err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("git rev-parse %s: %v", rev, err)
	}
	return line, nil
}

// CheckoutTree materializes rev into workdir, overwriting whatever the
// directory holds.
func CheckoutTree(ctx context.Context, repoPath, rev, workdir string) error {
	stderr := command.NewStderr()
	cmd := command.NewFromOptions(ctx, &command.RunOpts{Stderr: stderr},
		"git", "--git-dir", repoPath, "--work-tree", workdir, "checkout", "-q", "-f", rev)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git checkout %s: %v. stderr: %s", rev, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// CheckoutPaths restores the named paths at rev into workdir.
func CheckoutPaths(ctx context.Context, repoPath, rev, workdir string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	stderr := command.NewStderr()
	arg := []string{"--git-dir", repoPath, "--work-tree", workdir, "checkout", "-q", rev, "--"}
	arg = append(arg, paths...)
	cmd := command.NewFromOptions(ctx, &command.RunOpts{Stderr: stderr}, "git", arg...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git checkout %s -- <paths>: %v. stderr: %s", rev, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// RunWith runs an arbitrary git command against repoPath with extra
// environment and an optional working directory, returning trimmed
// stdout. Failures carry captured stderr.
func RunWith(ctx context.Context, repoPath, dir string, extraEnv []string, arg ...string) (string, error) {
	stderr := command.NewStderr()
	cmdArgs := append([]string{"--git-dir", repoPath}, arg...)
	cmd := command.NewFromOptions(ctx, &command.RunOpts{
		Dir:      dir,
		ExtraEnv: extraEnv,
		Stderr:   stderr,
	}, "git", cmdArgs...)
	line, err := cmd.OneLine()
	if err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("git %s: %v. stderr: %s", arg[0], err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("git %s: %v", arg[0], err)
	}
	return line, nil
}

// LsTree lists the file paths present in the tree at rev.
func LsTree(ctx context.Context, repoPath, rev string) ([]string, error) {
	reader, err := NewReader(ctx, repoPath, "ls-tree", "-r", "--name-only", "-z", rev)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(reader)
	if err := reader.Close(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	var paths []string
	for _, p := range strings.Split(string(raw), "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}
