package git

import (
	"context"
	"fmt"
	"io"

	"github.com/ferryscm/ferry/modules/command"
)

type commandReader struct {
	cmd    *command.Command
	reader io.ReadCloser
	stderr *command.LimitStderr
}

func (c *commandReader) Read(p []byte) (int, error) {
	return c.reader.Read(p)
}

func (c *commandReader) Close() error {
	_ = c.reader.Close()
	if err := c.cmd.Wait(); err != nil {
		if c.stderr.Len() > 0 {
			return fmt.Errorf("%v. stderr: %s", err, c.stderr.String())
		}
		return err
	}
	return nil
}

// NewReader starts a git command against repoPath and returns its stdout
// as a stream. Closing the reader reaps the process; a non-zero exit
// surfaces with captured stderr attached.
func NewReader(ctx context.Context, repoPath string, arg ...string) (io.ReadCloser, error) {
	stderr := command.NewStderr()
	cmdArgs := append([]string{"--git-dir", repoPath}, arg...)
	cmd := command.NewFromOptions(ctx, &command.RunOpts{Stderr: stderr}, "git", cmdArgs...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		return nil, err
	}
	return &commandReader{cmd: cmd, reader: stdout, stderr: stderr}, nil
}
