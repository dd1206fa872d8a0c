package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"
)

const (
	// Captured stderr is bounded so that a runaway subprocess cannot grow
	// an error message without limit.
	stderrBufferLimit = 8 * 1024
	stderrBufferGrow  = 512
)

// LimitStderr is a bounded stderr sink. Writes beyond the limit are
// accepted and discarded, so the subprocess never blocks on a full pipe.
type LimitStderr struct {
	*strings.Builder
	limit int
}

func NewStderr() *LimitStderr {
	b := &strings.Builder{}
	b.Grow(stderrBufferGrow)
	return &LimitStderr{Builder: b, limit: stderrBufferLimit}
}

func (w *LimitStderr) Write(p []byte) (int, error) {
	n := len(p)
	var err error
	if w.limit > 0 {
		if len(p) > w.limit {
			p = p[:w.limit]
		}
		w.limit -= len(p)
		_, err = w.Builder.Write(p)
	}
	return n, err
}

// RunOpts configures a single subprocess invocation.
type RunOpts struct {
	Dir      string   // working directory, NoDir for inherited
	Environ  []string // replaces the inherited environment when set
	ExtraEnv []string // appended after Environ
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
}

// Command wraps exec.Cmd with context awareness and stderr capture
// suited for driving VCS tools.
type Command struct {
	rawCmd    *exec.Cmd
	context   context.Context
	startTime time.Time
}

func NewFromOptions(ctx context.Context, opt *RunOpts, name string, arg ...string) *Command {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Dir = opt.Dir
	if len(opt.Environ) == 0 {
		cmd.Env = append(cmd.Env, os.Environ()...)
	} else {
		cmd.Env = append(cmd.Env, opt.Environ...)
	}
	if len(opt.ExtraEnv) != 0 {
		cmd.Env = append(cmd.Env, opt.ExtraEnv...)
	}
	cmd.Stdin = opt.Stdin
	cmd.Stdout = opt.Stdout
	cmd.Stderr = opt.Stderr
	return &Command{rawCmd: cmd, context: ctx}
}

func New(ctx context.Context, dir string, name string, arg ...string) *Command {
	return NewFromOptions(ctx, &RunOpts{Dir: dir}, name, arg...)
}

func (c *Command) Start() error {
	c.startTime = time.Now()
	if c.rawCmd.Stderr == nil {
		c.rawCmd.Stderr = os.Stderr
	}
	logrus.Debugf("exec: %s", c)
	return c.rawCmd.Start()
}

func (c *Command) Wait() error {
	if err := c.rawCmd.Wait(); err != nil && c.context.Err() != context.DeadlineExceeded {
		return err
	}
	return c.context.Err()
}

func (c *Command) Run() error {
	if err := c.Start(); err != nil {
		return err
	}
	return c.Wait()
}

func (c *Command) UseTime() time.Duration {
	return time.Since(c.startTime)
}

func (c *Command) StdoutPipe() (io.ReadCloser, error) {
	return c.rawCmd.StdoutPipe()
}

// RunEx runs the command, capturing stderr into the exec.ExitError when
// no explicit stderr sink was configured.
func (c *Command) RunEx() error {
	captureErr := c.rawCmd.Stderr == nil
	var stderr *LimitStderr
	if captureErr {
		stderr = NewStderr()
		c.rawCmd.Stderr = stderr
	}
	err := c.Run()
	if err != nil && captureErr {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			ee.Stderr = []byte(stderr.String())
		}
	}
	return err
}

// Output runs the command and returns its stdout. stderr is captured into
// the returned error unless a sink was configured.
func (c *Command) Output() ([]byte, error) {
	if c.rawCmd.Stdout != nil {
		return nil, errors.New("exec: Stdout already set")
	}
	var stdout bytes.Buffer
	c.rawCmd.Stdout = &stdout
	err := c.RunEx()
	return stdout.Bytes(), err
}

// OneLine runs the command and returns its stdout trimmed of whitespace.
func (c *Command) OneLine() (string, error) {
	b, err := c.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (c *Command) String() string {
	b := new(strings.Builder)
	if c.rawCmd.Dir != "" {
		b.WriteString("[")
		b.WriteString(c.rawCmd.Dir)
		b.WriteString("] ")
	}
	b.WriteString(shellquote.Join(c.rawCmd.Args...))
	return b.String()
}
