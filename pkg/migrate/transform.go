// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Transformation mutates a working tree in place. Reverse yields the
// inverse transformation; implementations without an inverse return a
// configuration error.
type Transformation interface {
	Transform(ctx context.Context, workdir string, console *Console) error
	Reverse() (Transformation, error)
	String() string
}

// Move relocates a file or directory within the working tree. Empty
// path strings address the tree root.
type Move struct {
	before string
	after  string
}

func NewMove(before, after string) (*Move, error) {
	for _, p := range []string{before, after} {
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "/") {
			return nil, NewError(KindConfig, "move path %q must be relative", p)
		}
		for _, seg := range strings.Split(p, "/") {
			if seg == ".." {
				return nil, NewError(KindConfig, "move path %q must not contain '..'", p)
			}
		}
	}
	if before == after {
		return nil, NewError(KindConfig, "move with equal 'before' and 'after' (%q) does nothing", before)
	}
	return &Move{before: before, after: after}, nil
}

// Reverse swaps before and after. Move is always reversible.
func (m *Move) Reverse() (Transformation, error) {
	return &Move{before: m.after, after: m.before}, nil
}

func (m *Move) String() string {
	return fmt.Sprintf("move(%q, %q)", m.before, m.after)
}

func (m *Move) Transform(ctx context.Context, workdir string, console *Console) error {
	console.Verbosef("applying %s", m)
	dst := filepath.Join(workdir, filepath.FromSlash(m.after))
	if m.before == "" {
		return moveChildren(workdir, dst)
	}
	src := filepath.Join(workdir, filepath.FromSlash(m.before))
	info, err := os.Stat(src)
	if err != nil {
		return NewError(KindTransform, "move: %q does not exist in the checkout", m.before)
	}
	if m.after == "" {
		if !info.IsDir() {
			return NewError(KindTransform, "move: %q is not a directory, cannot move its contents to the root", m.before)
		}
		if err := moveChildren(src, workdir); err != nil {
			return err
		}
		return os.Remove(src)
	}
	if dstInfo, err := os.Stat(dst); err == nil {
		if !dstInfo.IsDir() {
			return NewError(KindTransform, "move: destination %q already exists as a file", m.after)
		}
		// An existing directory receives the source inside it.
		dst = filepath.Join(dst, filepath.Base(src))
		if _, err := os.Stat(dst); err == nil {
			return NewError(KindTransform, "move: destination %q already exists", filepath.ToSlash(filepath.Join(m.after, filepath.Base(src))))
		}
	} else if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return WrapError(KindTransform, err, "move: cannot create parent of %q", m.after)
	}
	if err := os.Rename(src, dst); err != nil {
		return WrapError(KindTransform, err, "move %q to %q", m.before, m.after)
	}
	return nil
}

// moveChildren relocates every entry of srcDir into dstDir, creating it
// when needed. dstDir may live inside srcDir (moving the root into a
// subdirectory); the destination itself is skipped.
func moveChildren(srcDir, dstDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return WrapError(KindTransform, err, "move: reading %q", srcDir)
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return WrapError(KindTransform, err, "move: creating %q", dstDir)
	}
	absDst, err := filepath.Abs(dstDir)
	if err != nil {
		return WrapError(KindTransform, err, "move")
	}
	for _, e := range entries {
		src := filepath.Join(srcDir, e.Name())
		absSrc, err := filepath.Abs(src)
		if err != nil {
			return WrapError(KindTransform, err, "move")
		}
		if absSrc == absDst || strings.HasPrefix(absDst+string(os.PathSeparator), absSrc+string(os.PathSeparator)) {
			continue
		}
		target := filepath.Join(dstDir, e.Name())
		if _, err := os.Lstat(target); err == nil {
			return NewError(KindTransform, "move: destination entry %q already exists", e.Name())
		}
		if err := os.Rename(src, target); err != nil {
			return WrapError(KindTransform, err, "move %q", e.Name())
		}
	}
	return nil
}

// Sequence applies an ordered list of transformations, stopping at the
// first failure.
type Sequence struct {
	list []Transformation
}

func NewSequence(list ...Transformation) *Sequence {
	return &Sequence{list: list}
}

func (s *Sequence) Transform(ctx context.Context, workdir string, console *Console) error {
	for _, t := range s.list {
		if err := t.Transform(ctx, workdir, console); err != nil {
			return err
		}
	}
	return nil
}

// Reverse returns a Sequence of the element reverses in reverse order.
func (s *Sequence) Reverse() (Transformation, error) {
	reversed := make([]Transformation, 0, len(s.list))
	for i := len(s.list) - 1; i >= 0; i-- {
		r, err := s.list[i].Reverse()
		if err != nil {
			return nil, err
		}
		reversed = append(reversed, r)
	}
	return &Sequence{list: reversed}, nil
}

func (s *Sequence) String() string {
	names := make([]string, 0, len(s.list))
	for _, t := range s.list {
		names = append(names, t.String())
	}
	return "sequence(" + strings.Join(names, ", ") + ")"
}
